package project

import (
	"context"
	"time"
)

type ListFilter struct {
	State    string
	AgencyID string
}

// PendingFilter narrows the pending-review listing. Every field is optional;
// adding a field can only remove results.
type PendingFilter struct {
	State     string
	ProjectID string
	AgencyID  string
}

type Repository interface {
	Create(ctx context.Context, p *Project) error

	// Get with assignments and milestones ordered by position
	GetByProjectID(ctx context.Context, projectID string) (*Project, error)
	// Same as GetByProjectID, but takes a row lock on the project first (tx only)
	GetByProjectIDForUpdate(ctx context.Context, projectID string) (*Project, error)

	List(ctx context.Context, f ListFilter) ([]Project, error)
	ListPendingReviews(ctx context.Context, f PendingFilter) ([]Project, error)
	// Projects not yet completed whose end date is before the cutoff
	ListOverdue(ctx context.Context, cutoff time.Time) ([]Project, error)

	CreateAssignment(ctx context.Context, a *Assignment) error
	SaveMilestone(ctx context.Context, m *Milestone) error
	// Persists status/progress and bumps Version; ErrConcurrentUpdate when the
	// stored version no longer matches p.Version.
	SaveAggregate(ctx context.Context, p *Project) error
}
