package projectmock

import (
	"context"
	"errors"
	"time"

	domain "samanvay/internal/domain/project"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("projectmock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
// Reads with no func set return errUnimplemented; writes default to a no-op.
type Repo struct {
	CreateFn                  func(ctx context.Context, p *domain.Project) error
	GetByProjectIDFn          func(ctx context.Context, projectID string) (*domain.Project, error)
	GetByProjectIDForUpdateFn func(ctx context.Context, projectID string) (*domain.Project, error)
	ListFn                    func(ctx context.Context, f domain.ListFilter) ([]domain.Project, error)
	ListPendingReviewsFn      func(ctx context.Context, f domain.PendingFilter) ([]domain.Project, error)
	ListOverdueFn             func(ctx context.Context, cutoff time.Time) ([]domain.Project, error)
	CreateAssignmentFn        func(ctx context.Context, a *domain.Assignment) error
	SaveMilestoneFn           func(ctx context.Context, m *domain.Milestone) error
	SaveAggregateFn           func(ctx context.Context, p *domain.Project) error
}

func (m *Repo) Create(ctx context.Context, p *domain.Project) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByProjectID(ctx context.Context, projectID string) (*domain.Project, error) {
	if m.GetByProjectIDFn != nil {
		return m.GetByProjectIDFn(ctx, projectID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByProjectIDForUpdate(ctx context.Context, projectID string) (*domain.Project, error) {
	if m.GetByProjectIDForUpdateFn != nil {
		return m.GetByProjectIDForUpdateFn(ctx, projectID)
	}
	return nil, errUnimplemented
}

func (m *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListPendingReviews(ctx context.Context, f domain.PendingFilter) ([]domain.Project, error) {
	if m.ListPendingReviewsFn != nil {
		return m.ListPendingReviewsFn(ctx, f)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListOverdue(ctx context.Context, cutoff time.Time) ([]domain.Project, error) {
	if m.ListOverdueFn != nil {
		return m.ListOverdueFn(ctx, cutoff)
	}
	return nil, errUnimplemented
}

func (m *Repo) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	if m.CreateAssignmentFn != nil {
		return m.CreateAssignmentFn(ctx, a)
	}
	return nil
}

func (m *Repo) SaveMilestone(ctx context.Context, ms *domain.Milestone) error {
	if m.SaveMilestoneFn != nil {
		return m.SaveMilestoneFn(ctx, ms)
	}
	return nil
}

func (m *Repo) SaveAggregate(ctx context.Context, p *domain.Project) error {
	if m.SaveAggregateFn != nil {
		return m.SaveAggregateFn(ctx, p)
	}
	p.Version++
	return nil
}
