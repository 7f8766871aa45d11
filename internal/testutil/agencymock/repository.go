package agencymock

import (
	"context"

	domain "samanvay/internal/domain/agency"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn        func(ctx context.Context, a *domain.Agency) error
	GetByAgencyIDFn func(ctx context.Context, agencyID string) (*domain.Agency, error)
	ListFn          func(ctx context.Context, state string) ([]domain.Agency, error)
}

// InState returns a repo that knows every agency id as an agency of state.
func InState(state string) *Repo {
	return &Repo{
		GetByAgencyIDFn: func(_ context.Context, agencyID string) (*domain.Agency, error) {
			return &domain.Agency{AgencyID: agencyID, Name: agencyID, State: state}, nil
		},
	}
}

func (m *Repo) Create(ctx context.Context, a *domain.Agency) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByAgencyID(ctx context.Context, agencyID string) (*domain.Agency, error) {
	if m.GetByAgencyIDFn != nil {
		return m.GetByAgencyIDFn(ctx, agencyID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) List(ctx context.Context, state string) ([]domain.Agency, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, state)
	}
	return nil, nil
}
