package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"samanvay/internal/domain/access"
	agencyDomain "samanvay/internal/domain/agency"
	"samanvay/internal/domain/outbox"
	domain "samanvay/internal/domain/project"
	"samanvay/internal/domain/uow"
	"samanvay/pkg/id"
	"samanvay/pkg/metrics"

	"go.uber.org/zap"
)

const warnDocumentFailed = "assignment order document could not be generated; the assignments were saved"

type Usecase struct {
	repo domain.Repository
	uow  uow.UnitOfWork
	docs DocumentGenerator
	log  *zap.Logger
	now  func() time.Time
}

// NewUsecase: the UoW is required for every mutating operation.
func NewUsecase(projects domain.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{
		repo: projects,
		uow:  tx,
		log:  zap.NewNop(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) WithDocuments(d DocumentGenerator) *Usecase { u.docs = d; return u }
func (u *Usecase) WithLogger(l *zap.Logger) *Usecase          { u.log = l; return u }
func (u *Usecase) WithClock(now func() time.Time) *Usecase    { u.now = now; return u }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func canRead(a access.Actor, p *domain.Project) bool {
	if !a.Has(access.PermProjectRead) {
		return false
	}
	switch a.Role {
	case access.RoleCentralAdmin:
		return true
	case access.RoleStateOfficer:
		return a.CanManageState(p.State)
	case access.RoleAgency:
		return assignedTo(p, a)
	}
	return false
}

func (u *Usecase) Create(ctx context.Context, actor access.Actor, in CreateProjectInput) (*ProjectDTO, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.State = strings.TrimSpace(in.State)
	switch {
	case in.Name == "":
		return nil, validationf("name is required")
	case in.State == "":
		return nil, validationf("state is required")
	case !domain.Component(in.Component).Valid():
		return nil, validationf("component must be one of Adarsh Gram, GIA, Hostel")
	case in.Budget < 0:
		return nil, validationf("budget must not be negative")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return nil, validationf("start and end dates are required")
	case in.EndDate.Before(in.StartDate):
		return nil, validationf("end date is before start date")
	}
	if !actor.Has(access.PermProjectCreate) || !actor.CanManageState(in.State) {
		return nil, access.ErrForbidden
	}

	p := &domain.Project{
		ProjectID: id.NewID32(),
		Name:      in.Name,
		State:     in.State,
		Component: domain.Component(in.Component),
		Budget:    in.Budget,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		Status:    domain.StatusPendingApproval,
		CreatedBy: actor.Subject,
	}
	if err := u.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	dto := toProjectDTO(p)
	return &dto, nil
}

func (u *Usecase) Get(ctx context.Context, actor access.Actor, projectID string) (*ProjectDTO, error) {
	p, err := u.repo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, p) {
		return nil, access.ErrForbidden
	}
	dto := toProjectDTO(p)
	return &dto, nil
}

// List narrows the filter to what the actor may see: officers their state,
// agencies the projects they are assigned to.
func (u *Usecase) List(ctx context.Context, actor access.Actor, in ListInput) ([]ProjectDTO, error) {
	if !actor.Has(access.PermProjectRead) {
		return nil, access.ErrForbidden
	}
	f := domain.ListFilter{State: in.State, AgencyID: in.AgencyID}
	switch actor.Role {
	case access.RoleStateOfficer:
		if f.State != "" && f.State != actor.State {
			return nil, access.ErrForbidden
		}
		f.State = actor.State
	case access.RoleAgency:
		if f.AgencyID != "" && f.AgencyID != actor.AgencyID {
			return nil, access.ErrForbidden
		}
		f.AgencyID = actor.AgencyID
	}
	ps, err := u.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectDTO, 0, len(ps))
	for i := range ps {
		out = append(out, toProjectDTO(&ps[i]))
	}
	return out, nil
}

// CreateAssignments appends every assignment in one transaction. The
// assignment order document is generated after commit; its failure is
// reported as a warning and recorded in the outbox.
func (u *Usecase) CreateAssignments(ctx context.Context, actor access.Actor, projectID string, in []AssignmentInput) (*AssignmentResult, error) {
	if u.uow == nil {
		return nil, errors.New("project usecase: unit of work not configured")
	}
	if len(in) == 0 {
		return nil, validationf("at least one assignment is required")
	}
	built := make([]*domain.Assignment, 0, len(in))
	for i, a := range in {
		as, err := domain.NewAssignment(strings.TrimSpace(a.AgencyID), a.AllocatedFunds, a.Checklist)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", i, err)
		}
		built = append(built, as)
	}

	var (
		dto     ProjectDTO
		created []AssignmentDTO
		state   string
	)
	now := u.now()
	err := u.uow.WithinProjectTx(ctx, projectID, func(r uow.Repos, p *domain.Project) error {
		if !actor.Has(access.PermAssignmentCreate) || !actor.CanManageState(p.State) {
			return access.ErrForbidden
		}
		if err := checkAgencies(ctx, r.Agencies, p.State, built); err != nil {
			return err
		}

		first := len(p.Assignments)
		if err := p.AddAssignments(built...); err != nil {
			return err
		}
		for i := first; i < len(p.Assignments); i++ {
			a := &p.Assignments[i]
			if err := r.Projects.CreateAssignment(ctx, a); err != nil {
				return err
			}
			texts := make([]string, 0, len(a.Milestones))
			for _, m := range a.Milestones {
				texts = append(texts, m.Text)
			}
			ev, err := outbox.NewEvent(outbox.TypeAssignmentCreated, p.ProjectID, outbox.RecipientAgency(a.AgencyID), outbox.AssignmentCreated{
				ProjectID:       p.ProjectID,
				ProjectName:     p.Name,
				AssignmentIndex: a.Position,
				AgencyID:        a.AgencyID,
				AllocatedFunds:  a.AllocatedFunds,
				Milestones:      texts,
			})
			if err != nil {
				return err
			}
			if err := r.Outbox.Create(ctx, ev); err != nil {
				return err
			}
			created = append(created, toAssignmentDTO(a))
		}

		p.Recompute(now)
		if err := r.Projects.SaveAggregate(ctx, p); err != nil {
			return err
		}
		dto = toProjectDTO(p)
		state = p.State
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.AssignmentsCreated.Add(float64(len(created)))

	res := &AssignmentResult{Project: dto}
	if u.docs == nil {
		return res, nil
	}
	ref, err := u.docs.AssignmentOrder(ctx, AssignmentOrder{
		Project:     dto,
		Assignments: created,
		IssuedBy:    actor.Subject,
		IssuedAt:    now,
	})
	if err != nil {
		u.documentFailed(ctx, dto.ProjectID, state, err)
		res.Warnings = append(res.Warnings, warnDocumentFailed)
		return res, nil
	}
	res.Document = ref
	return res, nil
}

func checkAgencies(ctx context.Context, repo agencyDomain.Repository, state string, as []*domain.Assignment) error {
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		if seen[a.AgencyID] {
			continue
		}
		seen[a.AgencyID] = true
		ag, err := repo.GetByAgencyID(ctx, a.AgencyID)
		if errors.Is(err, agencyDomain.ErrNotFound) {
			return validationf("agency %s does not exist", a.AgencyID)
		}
		if err != nil {
			return err
		}
		if ag.State != state {
			return validationf("agency %s operates in %s, not %s", a.AgencyID, ag.State, state)
		}
	}
	return nil
}

// documentFailed logs and records the failure; it never fails the caller.
func (u *Usecase) documentFailed(ctx context.Context, projectID, state string, cause error) {
	metrics.DocumentFailures.Inc()
	u.log.Warn("assignment order generation failed",
		zap.String("project_id", projectID),
		zap.Error(cause),
	)
	ev, err := outbox.NewEvent(outbox.TypeDocumentFailed, projectID, outbox.RecipientState(state), outbox.DocumentFailed{
		ProjectID: projectID,
		Reason:    cause.Error(),
	})
	if err == nil {
		err = u.uow.WithinTx(ctx, func(r uow.Repos) error { return r.Outbox.Create(ctx, ev) })
	}
	if err != nil {
		u.log.Error("record document failure", zap.String("project_id", projectID), zap.Error(err))
	}
}

func assignedTo(p *domain.Project, actor access.Actor) bool {
	for i := range p.Assignments {
		if actor.IsAgency(p.Assignments[i].AgencyID) {
			return true
		}
	}
	return false
}

// Submit attaches proof and moves the milestone to Pending Review. Only the
// agency named on the assignment may submit.
func (u *Usecase) Submit(ctx context.Context, actor access.Actor, loc MilestoneLocator, proofs []string) (*MilestoneDTO, error) {
	if u.uow == nil {
		return nil, errors.New("project usecase: unit of work not configured")
	}
	var dto MilestoneDTO
	now := u.now()
	err := u.uow.WithinProjectTx(ctx, loc.ProjectID, func(r uow.Repos, p *domain.Project) error {
		// outsiders are denied before the locator is resolved
		if !actor.Has(access.PermMilestoneSubmit) || !assignedTo(p, actor) {
			return access.ErrForbidden
		}
		a, m, err := loc.resolve(p)
		if err != nil {
			return err
		}
		if !actor.IsAgency(a.AgencyID) {
			return access.ErrForbidden
		}
		if err := m.Submit(proofs, now); err != nil {
			return err
		}
		if err := r.Projects.SaveMilestone(ctx, m); err != nil {
			return err
		}
		p.Recompute(now)
		if err := r.Projects.SaveAggregate(ctx, p); err != nil {
			return err
		}
		ev, err := outbox.NewEvent(outbox.TypeMilestoneSubmitted, p.ProjectID, outbox.RecipientState(p.State), outbox.MilestoneSubmitted{
			ProjectID:       p.ProjectID,
			MilestoneID:     m.MilestoneID,
			AssignmentIndex: a.Position,
			MilestoneIndex:  m.Position,
			AgencyID:        a.AgencyID,
			ProofImages:     m.ProofImages,
		})
		if err != nil {
			return err
		}
		if err := r.Outbox.Create(ctx, ev); err != nil {
			return err
		}
		dto = toMilestoneDTO(a.Position, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncMilestoneTransition("submitted")
	return &dto, nil
}

// Review approves or rejects a submitted milestone and returns the project
// with its recomputed progress.
func (u *Usecase) Review(ctx context.Context, actor access.Actor, loc MilestoneLocator, action, comments string) (*ProjectDTO, error) {
	if u.uow == nil {
		return nil, errors.New("project usecase: unit of work not configured")
	}
	var dto ProjectDTO
	now := u.now()
	err := u.uow.WithinProjectTx(ctx, loc.ProjectID, func(r uow.Repos, p *domain.Project) error {
		if !actor.Has(access.PermMilestoneReview) || !actor.CanReview(p.State) {
			return access.ErrForbidden
		}
		a, m, err := loc.resolve(p)
		if err != nil {
			return err
		}
		if err := m.Review(domain.ReviewAction(action), comments, actor.Subject, now); err != nil {
			return err
		}
		if err := r.Projects.SaveMilestone(ctx, m); err != nil {
			return err
		}
		p.Recompute(now)
		if err := r.Projects.SaveAggregate(ctx, p); err != nil {
			return err
		}
		ev, err := outbox.NewEvent(outbox.TypeMilestoneReviewed, p.ProjectID, outbox.RecipientAgency(a.AgencyID), outbox.MilestoneReviewed{
			ProjectID:       p.ProjectID,
			MilestoneID:     m.MilestoneID,
			AssignmentIndex: a.Position,
			MilestoneIndex:  m.Position,
			Action:          action,
			State:           string(m.State),
			Comments:        m.Comments,
			Progress:        p.Progress,
		})
		if err != nil {
			return err
		}
		if err := r.Outbox.Create(ctx, ev); err != nil {
			return err
		}
		dto = toProjectDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if domain.ReviewAction(action) == domain.ActionApprove {
		metrics.IncMilestoneTransition("approved")
	} else {
		metrics.IncMilestoneTransition("rejected")
	}
	return &dto, nil
}

// PendingReviews lists projects with only their Pending Review milestones.
// The project+agency form is the global form with two more predicates, so
// its result is always contained in the global one.
func (u *Usecase) PendingReviews(ctx context.Context, actor access.Actor, in PendingInput) ([]ProjectDTO, error) {
	if !actor.Has(access.PermPendingRead) {
		return nil, access.ErrForbidden
	}
	f := domain.PendingFilter{State: in.State, ProjectID: in.ProjectID, AgencyID: in.AgencyID}
	switch actor.Role {
	case access.RoleStateOfficer:
		if f.State != "" && f.State != actor.State {
			return nil, access.ErrForbidden
		}
		f.State = actor.State
	case access.RoleAgency:
		if f.AgencyID != "" && f.AgencyID != actor.AgencyID {
			return nil, access.ErrForbidden
		}
		f.AgencyID = actor.AgencyID
	}
	ps, err := u.repo.ListPendingReviews(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectDTO, 0, len(ps))
	for i := range ps {
		out = append(out, toProjectDTO(&ps[i]))
	}
	return out, nil
}

// SweepDelayed re-derives the status of projects past their end date. A
// project that fails is logged and skipped.
func (u *Usecase) SweepDelayed(ctx context.Context) (int, error) {
	if u.uow == nil {
		return 0, errors.New("project usecase: unit of work not configured")
	}
	now := u.now()
	overdue, err := u.repo.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, o := range overdue {
		changed := false
		err := u.uow.WithinProjectTx(ctx, o.ProjectID, func(r uow.Repos, p *domain.Project) error {
			before := p.Status
			p.Recompute(now)
			if p.Status == before {
				return nil
			}
			changed = true
			return r.Projects.SaveAggregate(ctx, p)
		})
		if err != nil {
			u.log.Warn("delay sweep skipped project", zap.String("project_id", o.ProjectID), zap.Error(err))
			continue
		}
		if changed {
			updated++
		}
	}
	metrics.StatusSweeps.Add(float64(updated))
	return updated, nil
}
