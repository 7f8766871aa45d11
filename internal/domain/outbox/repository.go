package outbox

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	// Pending events whose next retry is due, oldest first
	FetchDue(ctx context.Context, now time.Time, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id uint64) error
	// Increments the retry count; the event becomes failed once maxRetries is reached
	MarkFailed(ctx context.Context, id uint64, cause string, maxRetries int, now time.Time) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]Event, error)
	// Resets a failed event to pending; ErrNotFound when eventID is unknown
	Replay(ctx context.Context, eventID string) error
}
