package agency

import "context"

type Repository interface {
	Create(ctx context.Context, a *Agency) error
	// ErrNotFound when no active agency has this id
	GetByAgencyID(ctx context.Context, agencyID string) (*Agency, error)
	// List all agencies, or only those of one state when state is not empty
	List(ctx context.Context, state string) ([]Agency, error)
}
