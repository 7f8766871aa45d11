package outboxmock

import (
	"context"
	"sync"
	"time"

	domain "samanvay/internal/domain/outbox"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository. Create
// also records every event so tests can assert on what was written.
type Repo struct {
	CreateFn       func(ctx context.Context, e *domain.Event) error
	FetchDueFn     func(ctx context.Context, now time.Time, limit int) ([]domain.Event, error)
	MarkSentFn     func(ctx context.Context, id uint64) error
	MarkFailedFn   func(ctx context.Context, id uint64, cause string, maxRetries int, now time.Time) error
	ListByStatusFn func(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error)
	ReplayFn       func(ctx context.Context, eventID string) error

	mu      sync.Mutex
	created []domain.Event
}

func (m *Repo) Created() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.created...)
}

func (m *Repo) Create(ctx context.Context, e *domain.Event) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.created = append(m.created, *e)
	m.mu.Unlock()
	return nil
}

func (m *Repo) FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.Event, error) {
	if m.FetchDueFn != nil {
		return m.FetchDueFn(ctx, now, limit)
	}
	return nil, nil
}

func (m *Repo) MarkSent(ctx context.Context, id uint64) error {
	if m.MarkSentFn != nil {
		return m.MarkSentFn(ctx, id)
	}
	return nil
}

func (m *Repo) MarkFailed(ctx context.Context, id uint64, cause string, maxRetries int, now time.Time) error {
	if m.MarkFailedFn != nil {
		return m.MarkFailedFn(ctx, id, cause, maxRetries, now)
	}
	return nil
}

func (m *Repo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status, limit)
	}
	return nil, nil
}

func (m *Repo) Replay(ctx context.Context, eventID string) error {
	if m.ReplayFn != nil {
		return m.ReplayFn(ctx, eventID)
	}
	return nil
}
