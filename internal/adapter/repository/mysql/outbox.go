package mysql

import (
	"context"
	"time"

	outboxDomain "samanvay/internal/domain/outbox"

	"gorm.io/gorm"
)

type OutboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) *OutboxRepository { return &OutboxRepository{db: db} }

func (r *OutboxRepository) Create(ctx context.Context, e *outboxDomain.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *OutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]outboxDomain.Event, error) {
	var out []outboxDomain.Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", outboxDomain.StatusPending, now).
		// an aggregate waiting on a retry holds back its later events
		Where(`NOT EXISTS (SELECT 1 FROM outbox_events prev
			WHERE prev.aggregate_id = outbox_events.aggregate_id
			AND prev.status = ? AND prev.id < outbox_events.id
			AND prev.next_retry_at > ?)`, outboxDomain.StatusPending, now).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&outboxDomain.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        outboxDomain.StatusSent,
			"next_retry_at": nil,
			"last_error":    "",
		}).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64, cause string, maxRetries int, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e outboxDomain.Event
		if err := tx.Select("id", "retry_count").Where("id = ?", id).First(&e).Error; err != nil {
			return err
		}
		retries := e.RetryCount + 1
		updates := map[string]any{
			"retry_count": retries,
			"last_error":  cause,
		}
		if retries >= maxRetries {
			updates["status"] = outboxDomain.StatusFailed
			updates["next_retry_at"] = nil
		} else {
			updates["status"] = outboxDomain.StatusPending
			updates["next_retry_at"] = now.Add(outboxDomain.Backoff(retries))
		}
		return tx.Model(&outboxDomain.Event{}).Where("id = ?", id).Updates(updates).Error
	})
}

func (r *OutboxRepository) ListByStatus(ctx context.Context, status outboxDomain.Status, limit int) ([]outboxDomain.Event, error) {
	q := r.db.WithContext(ctx).Model(&outboxDomain.Event{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []outboxDomain.Event
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepository) Replay(ctx context.Context, eventID string) error {
	res := r.db.WithContext(ctx).
		Model(&outboxDomain.Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"status":        outboxDomain.StatusPending,
			"retry_count":   0,
			"next_retry_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return outboxDomain.ErrNotFound
	}
	return nil
}
