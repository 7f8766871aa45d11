package uow

import (
	"context"

	"samanvay/internal/domain/agency"
	"samanvay/internal/domain/outbox"
	"samanvay/internal/domain/project"
)

// Repos are bound to the running transaction.
type Repos struct {
	Projects project.Repository
	Agencies agency.Repository
	Outbox   outbox.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the project row first, then pass the loaded aggregate in
	WithinProjectTx(ctx context.Context, projectID string, fn func(r Repos, p *project.Project) error) error
}
