package outbox

import (
	"context"
	"fmt"

	"samanvay/internal/domain/access"
	"samanvay/internal/domain/outbox"
	"samanvay/internal/domain/project"
)

const maxListLimit = 200

// Service exposes the delivery log to central admins.
type Service struct{ repo outbox.Repository }

func NewService(repo outbox.Repository) *Service { return &Service{repo: repo} }

func (s *Service) List(ctx context.Context, actor access.Actor, status string, limit int) ([]outbox.Event, error) {
	if !actor.Has(access.PermOutboxManage) {
		return nil, access.ErrForbidden
	}
	st := outbox.Status(status)
	switch st {
	case "", outbox.StatusPending, outbox.StatusSent, outbox.StatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", project.ErrValidation, status)
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByStatus(ctx, st, limit)
}

// Replay puts an event back in the queue with a fresh retry budget.
func (s *Service) Replay(ctx context.Context, actor access.Actor, eventID string) error {
	if !actor.Has(access.PermOutboxManage) {
		return access.ErrForbidden
	}
	return s.repo.Replay(ctx, eventID)
}
