package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"samanvay/internal/domain/access"
	"samanvay/internal/domain/outbox"
	domain "samanvay/internal/domain/project"
	"samanvay/internal/domain/uow"
	"samanvay/internal/testutil/agencymock"
	"samanvay/internal/testutil/outboxmock"
	"samanvay/internal/testutil/projectmock"
	"samanvay/internal/testutil/uowmock"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	fixedNow = time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)

	admin   = access.Actor{Subject: "admin-1", Role: access.RoleCentralAdmin}
	officer = access.Actor{Subject: "officer-od", Role: access.RoleStateOfficer, State: "Odisha"}
	kerala  = access.Actor{Subject: "officer-kl", Role: access.RoleStateOfficer, State: "Kerala"}
	agencyA = access.Actor{Subject: "user-a", Role: access.RoleAgency, AgencyID: "agency-a"}
	agencyB = access.Actor{Subject: "user-b", Role: access.RoleAgency, AgencyID: "agency-b"}
)

type docStub struct {
	fn    func(ctx context.Context, o AssignmentOrder) (*DocumentRef, error)
	calls int
}

func (d *docStub) AssignmentOrder(ctx context.Context, o AssignmentOrder) (*DocumentRef, error) {
	d.calls++
	return d.fn(ctx, o)
}

// odishaProject has one assignment for agency-a with the given checklist.
func odishaProject(t *testing.T, checklist ...string) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:        1,
		ProjectID: "P-1",
		Name:      "Adarsh Gram Phase II",
		State:     "Odisha",
		Component: domain.ComponentAdarshGram,
		Budget:    10_000_000,
		StartDate: fixedNow.AddDate(0, -1, 0),
		EndDate:   fixedNow.AddDate(1, 0, 0),
		Status:    domain.StatusPendingApproval,
	}
	if len(checklist) > 0 {
		a, err := domain.NewAssignment("agency-a", 10_000_000, checklist)
		if err != nil {
			t.Fatalf("NewAssignment: %v", err)
		}
		if err := p.AddAssignments(a); err != nil {
			t.Fatalf("AddAssignments: %v", err)
		}
		p.Recompute(fixedNow)
	}
	return p
}

type fixture struct {
	uc     *Usecase
	p      *domain.Project
	events *outboxmock.Repo
}

func newFixture(t *testing.T, p *domain.Project) *fixture {
	t.Helper()
	events := &outboxmock.Repo{}
	repos := uow.Repos{
		Projects: &projectmock.Repo{},
		Agencies: agencymock.InState("Odisha"),
		Outbox:   events,
	}
	uc := NewUsecase(&projectmock.Repo{}, uowmock.Serving(repos, p)).
		WithClock(func() time.Time { return fixedNow })
	return &fixture{uc: uc, p: p, events: events}
}

// ----- Create -----

func TestCreate(t *testing.T) {
	var stored *domain.Project
	uc := NewUsecase(&projectmock.Repo{
		CreateFn: func(_ context.Context, p *domain.Project) error {
			stored = p
			return nil
		},
	}, uowmock.New())

	in := CreateProjectInput{
		Name: " Hostel Block ", State: "Odisha", Component: "Hostel", Budget: 500,
		StartDate: fixedNow, EndDate: fixedNow.AddDate(0, 6, 0),
	}
	dto, err := uc.Create(context.Background(), officer, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(dto.ProjectID) != 32 || dto.Name != "Hostel Block" || dto.Status != string(domain.StatusPendingApproval) || dto.Progress != 0 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if stored == nil || stored.CreatedBy != officer.Subject {
		t.Fatalf("project not stored with creator: %+v", stored)
	}

	if _, err := uc.Create(context.Background(), kerala, in); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("other state's officer: want ErrForbidden, got %v", err)
	}
	if _, err := uc.Create(context.Background(), agencyA, in); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("agency: want ErrForbidden, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	uc := NewUsecase(&projectmock.Repo{
		CreateFn: func(context.Context, *domain.Project) error {
			t.Fatalf("Create must not be called for invalid input")
			return nil
		},
	}, uowmock.New())

	valid := CreateProjectInput{Name: "n", State: "Odisha", Component: "GIA", Budget: 1, StartDate: fixedNow, EndDate: fixedNow}
	cases := map[string]func(in *CreateProjectInput){
		"blank name":      func(in *CreateProjectInput) { in.Name = "  " },
		"no state":        func(in *CreateProjectInput) { in.State = "" },
		"bad component":   func(in *CreateProjectInput) { in.Component = "Roads" },
		"negative budget": func(in *CreateProjectInput) { in.Budget = -1 },
		"end before":      func(in *CreateProjectInput) { in.EndDate = fixedNow.Add(-time.Hour) },
		"no dates":        func(in *CreateProjectInput) { in.StartDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			if _, err := uc.Create(context.Background(), admin, in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

// ----- Get / List -----

func TestGet_Visibility(t *testing.T) {
	p := odishaProject(t, "x")
	uc := NewUsecase(&projectmock.Repo{
		GetByProjectIDFn: func(context.Context, string) (*domain.Project, error) { return p, nil },
	}, uowmock.New())

	for _, a := range []access.Actor{admin, officer, agencyA} {
		if _, err := uc.Get(context.Background(), a, "P-1"); err != nil {
			t.Fatalf("%s should see the project: %v", a.Subject, err)
		}
	}
	for _, a := range []access.Actor{kerala, agencyB, {Role: "guest"}} {
		if _, err := uc.Get(context.Background(), a, "P-1"); !errors.Is(err, access.ErrForbidden) {
			t.Fatalf("%s: want ErrForbidden, got %v", a.Subject, err)
		}
	}
}

func TestList_ScopesFilter(t *testing.T) {
	var got domain.ListFilter
	uc := NewUsecase(&projectmock.Repo{
		ListFn: func(_ context.Context, f domain.ListFilter) ([]domain.Project, error) {
			got = f
			return nil, nil
		},
	}, uowmock.New())
	ctx := context.Background()

	if _, err := uc.List(ctx, officer, ListInput{}); err != nil || got.State != "Odisha" {
		t.Fatalf("officer filter: %+v err=%v", got, err)
	}
	if _, err := uc.List(ctx, agencyA, ListInput{State: "Kerala"}); err != nil || got.AgencyID != "agency-a" || got.State != "Kerala" {
		t.Fatalf("agency filter: %+v err=%v", got, err)
	}
	if _, err := uc.List(ctx, admin, ListInput{AgencyID: "agency-z"}); err != nil || got.AgencyID != "agency-z" || got.State != "" {
		t.Fatalf("admin filter: %+v err=%v", got, err)
	}
	if _, err := uc.List(ctx, officer, ListInput{State: "Kerala"}); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("officer asking for another state: want ErrForbidden, got %v", err)
	}
	if _, err := uc.List(ctx, agencyA, ListInput{AgencyID: "agency-b"}); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("agency asking for another agency: want ErrForbidden, got %v", err)
	}
}

// ----- CreateAssignments -----

func TestCreateAssignments_Success(t *testing.T) {
	f := newFixture(t, odishaProject(t))
	docs := &docStub{fn: func(_ context.Context, o AssignmentOrder) (*DocumentRef, error) {
		if len(o.Assignments) != 2 || o.IssuedBy != officer.Subject {
			t.Fatalf("unexpected order: %+v", o)
		}
		return &DocumentRef{Filename: "order.txt", URL: "http://x/documents/order.txt"}, nil
	}}
	f.uc.WithDocuments(docs)

	res, err := f.uc.CreateAssignments(context.Background(), officer, "P-1", []AssignmentInput{
		{AgencyID: "agency-a", AllocatedFunds: 6_000_000, Checklist: []string{"Site Clearance", "Foundation"}},
		{AgencyID: "agency-b", AllocatedFunds: 4_000_000, Checklist: []string{"Roofing"}},
	})
	if err != nil {
		t.Fatalf("CreateAssignments: %v", err)
	}
	if len(res.Project.Assignments) != 2 || res.Project.AllocatedFunds != 10_000_000 {
		t.Fatalf("unexpected project: %+v", res.Project)
	}
	if res.Project.Status != string(domain.StatusOnTrack) || res.Project.Version != 1 {
		t.Fatalf("status/version not updated: %s v%d", res.Project.Status, res.Project.Version)
	}
	if res.Document == nil || res.Document.Filename != "order.txt" || len(res.Warnings) != 0 {
		t.Fatalf("unexpected document/warnings: %+v %v", res.Document, res.Warnings)
	}

	ev := f.events.Created()
	if len(ev) != 2 {
		t.Fatalf("want one event per assignment, got %d", len(ev))
	}
	if ev[1].Type != outbox.TypeAssignmentCreated || ev[1].Recipient != "agency:agency-b" {
		t.Fatalf("unexpected event: %+v", ev[1])
	}
}

func TestCreateAssignments_DocumentFailureIsSoft(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, odishaProject(t))
	f.uc.WithLogger(zap.New(core)).WithDocuments(&docStub{fn: func(context.Context, AssignmentOrder) (*DocumentRef, error) {
		return nil, errors.New("disk full")
	}})

	res, err := f.uc.CreateAssignments(context.Background(), admin, "P-1", []AssignmentInput{
		{AgencyID: "agency-a", AllocatedFunds: 1, Checklist: []string{"x"}},
	})
	if err != nil {
		t.Fatalf("document failure must not fail the call: %v", err)
	}
	if res.Document != nil || len(res.Warnings) != 1 {
		t.Fatalf("want one warning and no document, got %+v", res)
	}
	if len(res.Project.Assignments) != 1 {
		t.Fatalf("assignment must be kept")
	}

	ev := f.events.Created()
	if len(ev) != 2 || ev[1].Type != outbox.TypeDocumentFailed || ev[1].Recipient != "state:Odisha" {
		t.Fatalf("document failure should be recorded in the outbox: %+v", ev)
	}
	if logs.FilterMessage("assignment order generation failed").Len() != 1 {
		t.Fatalf("document failure should be logged at warn")
	}
}

func TestCreateAssignments_Rejections(t *testing.T) {
	ok := []AssignmentInput{{AgencyID: "agency-a", AllocatedFunds: 1, Checklist: []string{"x"}}}

	cases := []struct {
		name  string
		actor access.Actor
		in    []AssignmentInput
		want  error
	}{
		{"no assignments", officer, nil, domain.ErrValidation},
		{"empty checklist", officer, []AssignmentInput{{AgencyID: "agency-a", AllocatedFunds: 1}}, domain.ErrValidation},
		{"over budget", officer, []AssignmentInput{
			{AgencyID: "agency-a", AllocatedFunds: 9_000_000, Checklist: []string{"x"}},
			{AgencyID: "agency-a", AllocatedFunds: 2_000_000, Checklist: []string{"y"}},
		}, domain.ErrValidation},
		{"other state", kerala, ok, access.ErrForbidden},
		{"agency cannot assign", agencyA, ok, access.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, odishaProject(t))
			_, err := f.uc.CreateAssignments(context.Background(), tc.actor, "P-1", tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if len(f.p.Assignments) != 0 || len(f.events.Created()) != 0 {
				t.Fatalf("project must be unchanged: %d assignments, %d events", len(f.p.Assignments), len(f.events.Created()))
			}
		})
	}
}

func TestCreateAssignments_AgencyEligibility(t *testing.T) {
	p := odishaProject(t)
	repos := uow.Repos{
		Projects: &projectmock.Repo{},
		Agencies: agencymock.InState("Kerala"),
		Outbox:   &outboxmock.Repo{},
	}
	uc := NewUsecase(&projectmock.Repo{}, uowmock.Serving(repos, p))
	in := []AssignmentInput{{AgencyID: "agency-a", AllocatedFunds: 1, Checklist: []string{"x"}}}

	if _, err := uc.CreateAssignments(context.Background(), officer, "P-1", in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("agency from another state: want ErrValidation, got %v", err)
	}

	repos.Agencies = &agencymock.Repo{} // knows no agencies
	uc = NewUsecase(&projectmock.Repo{}, uowmock.Serving(repos, p))
	if _, err := uc.CreateAssignments(context.Background(), officer, "P-1", in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown agency: want ErrValidation, got %v", err)
	}
}

func TestCreateAssignments_UnknownProject(t *testing.T) {
	f := newFixture(t, odishaProject(t))
	_, err := f.uc.CreateAssignments(context.Background(), officer, "missing", []AssignmentInput{
		{AgencyID: "agency-a", AllocatedFunds: 1, Checklist: []string{"x"}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// ----- Submit / Review -----

func TestSubmit(t *testing.T) {
	f := newFixture(t, odishaProject(t, "Site Clearance", "Foundation"))
	ctx := context.Background()

	dto, err := f.uc.Submit(ctx, agencyA, MilestoneLocator{ProjectID: "P-1", AssignmentIndex: 0, MilestoneIndex: 1}, []string{"proof/f.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if dto.State != string(domain.MilestonePendingReview) || dto.Index != 1 || dto.ProofImages[0] != "proof/f.jpg" {
		t.Fatalf("unexpected milestone: %+v", dto)
	}
	ev := f.events.Created()
	if len(ev) != 1 || ev[0].Type != outbox.TypeMilestoneSubmitted || ev[0].Recipient != "state:Odisha" {
		t.Fatalf("unexpected events: %+v", ev)
	}

	// again, now by stable id: invalid state
	_, err = f.uc.Submit(ctx, agencyA, MilestoneLocator{ProjectID: "P-1", MilestoneID: dto.MilestoneID}, []string{"again.jpg"})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("resubmitting pending milestone: want ErrInvalidState, got %v", err)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		actor  access.Actor
		loc    MilestoneLocator
		proofs []string
		want   error
	}{
		{"other agency", agencyB, MilestoneLocator{ProjectID: "P-1"}, []string{"p"}, access.ErrForbidden},
		{"officer", officer, MilestoneLocator{ProjectID: "P-1"}, []string{"p"}, access.ErrForbidden},
		{"other agency, bad index", agencyB, MilestoneLocator{ProjectID: "P-1", MilestoneIndex: 5}, []string{"p"}, access.ErrForbidden},
		{"other agency, bad id", agencyB, MilestoneLocator{ProjectID: "P-1", MilestoneID: "nope"}, []string{"p"}, access.ErrForbidden},
		{"bad index", agencyA, MilestoneLocator{ProjectID: "P-1", MilestoneIndex: 5}, []string{"p"}, domain.ErrNotFound},
		{"bad id", agencyA, MilestoneLocator{ProjectID: "P-1", MilestoneID: "nope"}, []string{"p"}, domain.ErrNotFound},
		{"no proof", agencyA, MilestoneLocator{ProjectID: "P-1"}, nil, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, odishaProject(t, "Site Clearance"))
			if _, err := f.uc.Submit(context.Background(), tc.actor, tc.loc, tc.proofs); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if s := f.p.Assignments[0].Milestones[0].State; s != domain.MilestoneIncomplete {
				t.Fatalf("state changed to %s", s)
			}
		})
	}
}

func TestReview(t *testing.T) {
	f := newFixture(t, odishaProject(t, "Site Clearance", "Foundation"))
	ctx := context.Background()
	loc := MilestoneLocator{ProjectID: "P-1"}

	if _, err := f.uc.Submit(ctx, agencyA, loc, []string{"site.jpg"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.uc.Review(ctx, kerala, loc, "approve", "ok"); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("other state's officer: want ErrForbidden, got %v", err)
	}
	if _, err := f.uc.Review(ctx, admin, loc, "approve", "ok"); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("admin does not review: want ErrForbidden, got %v", err)
	}
	for _, bad := range []MilestoneLocator{
		{ProjectID: "P-1", AssignmentIndex: 3},
		{ProjectID: "P-1", MilestoneID: "nope"},
	} {
		if _, err := f.uc.Review(ctx, kerala, bad, "approve", "ok"); !errors.Is(err, access.ErrForbidden) {
			t.Fatalf("other state's officer on %+v: want ErrForbidden, got %v", bad, err)
		}
	}
	if _, err := f.uc.Review(ctx, officer, loc, "approve", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank comments: want ErrValidation, got %v", err)
	}

	dto, err := f.uc.Review(ctx, officer, loc, "approve", "Verified on site")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if dto.Progress != 50 || dto.Assignments[0].Checklist[0].State != string(domain.MilestoneApproved) {
		t.Fatalf("unexpected project: %+v", dto)
	}
	if dto.Assignments[0].Checklist[0].ReviewedBy != officer.Subject {
		t.Fatalf("reviewer not recorded")
	}

	ev := f.events.Created()
	last := ev[len(ev)-1]
	if last.Type != outbox.TypeMilestoneReviewed || last.Recipient != "agency:agency-a" {
		t.Fatalf("unexpected event: %+v", last)
	}

	if _, err := f.uc.Review(ctx, officer, loc, "approve", "again"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("double approval: want ErrInvalidState, got %v", err)
	}
}

func TestReview_ConcurrentUpdateSurfaces(t *testing.T) {
	p := odishaProject(t, "x")
	p.Assignments[0].Milestones[0].State = domain.MilestonePendingReview
	repos := uow.Repos{
		Projects: &projectmock.Repo{SaveAggregateFn: func(context.Context, *domain.Project) error {
			return domain.ErrConcurrentUpdate
		}},
		Outbox: &outboxmock.Repo{},
	}
	uc := NewUsecase(&projectmock.Repo{}, uowmock.Serving(repos, p))

	_, err := uc.Review(context.Background(), officer, MilestoneLocator{ProjectID: "P-1"}, "reject", "Photos missing")
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("want ErrConcurrentUpdate, got %v", err)
	}
}

// ----- PendingReviews -----

func TestPendingReviews_ScopesFilter(t *testing.T) {
	var got domain.PendingFilter
	uc := NewUsecase(&projectmock.Repo{
		ListPendingReviewsFn: func(_ context.Context, f domain.PendingFilter) ([]domain.Project, error) {
			got = f
			return []domain.Project{*odishaProject(t, "x")}, nil
		},
	}, uowmock.New())
	ctx := context.Background()

	out, err := uc.PendingReviews(ctx, officer, PendingInput{})
	if err != nil || len(out) != 1 || got.State != "Odisha" {
		t.Fatalf("officer: %+v err=%v", got, err)
	}
	if _, err := uc.PendingReviews(ctx, agencyA, PendingInput{ProjectID: "P-1"}); err != nil || got.AgencyID != "agency-a" || got.ProjectID != "P-1" {
		t.Fatalf("agency: %+v err=%v", got, err)
	}
	if _, err := uc.PendingReviews(ctx, admin, PendingInput{ProjectID: "P-1", AgencyID: "agency-b"}); err != nil || got != (domain.PendingFilter{ProjectID: "P-1", AgencyID: "agency-b"}) {
		t.Fatalf("admin scoped: %+v err=%v", got, err)
	}
	if _, err := uc.PendingReviews(ctx, agencyA, PendingInput{AgencyID: "agency-b"}); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("agency peeking at another agency: want ErrForbidden, got %v", err)
	}
	if _, err := uc.PendingReviews(ctx, officer, PendingInput{State: "Kerala"}); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("officer peeking at another state: want ErrForbidden, got %v", err)
	}
}

// ----- SweepDelayed -----

func TestSweepDelayed(t *testing.T) {
	late := odishaProject(t, "x")
	late.EndDate = fixedNow.Add(-time.Hour)
	saved := 0
	repos := uow.Repos{Projects: &projectmock.Repo{
		SaveAggregateFn: func(_ context.Context, p *domain.Project) error {
			saved++
			if p.Status != domain.StatusDelayed {
				t.Fatalf("status = %s, want Delayed", p.Status)
			}
			return nil
		},
	}}
	uc := NewUsecase(&projectmock.Repo{
		ListOverdueFn: func(_ context.Context, cutoff time.Time) ([]domain.Project, error) {
			if !cutoff.Equal(fixedNow) {
				t.Fatalf("cutoff = %v", cutoff)
			}
			return []domain.Project{{ProjectID: "P-1"}, {ProjectID: "gone"}}, nil
		},
	}, uowmock.Serving(repos, late)).WithClock(func() time.Time { return fixedNow })

	n, err := uc.SweepDelayed(context.Background())
	if err != nil {
		t.Fatalf("SweepDelayed: %v", err)
	}
	if n != 1 || saved != 1 {
		t.Fatalf("updated=%d saved=%d, want 1/1", n, saved)
	}
}
