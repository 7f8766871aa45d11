package outbox

import (
	"context"
	"time"

	"samanvay/internal/domain/outbox"
	"samanvay/pkg/metrics"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, e outbox.Envelope) error
}

// Dispatcher delivers pending outbox events. Delivery is at-least-once: an
// event published but not yet marked sent is published again next round.
type Dispatcher struct {
	repo       outbox.Repository
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
	now        func() time.Time
}

func NewDispatcher(repo outbox.Repository, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 8,
		interval:   5 * time.Second,
		batchSize:  50,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) WithMaxRetries(n int) *Dispatcher {
	d.maxRetries = n
	return d
}

func (d *Dispatcher) WithInterval(i time.Duration) *Dispatcher {
	d.interval = i
	return d
}

func (d *Dispatcher) WithBatchSize(n int) *Dispatcher {
	d.batchSize = n
	return d
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Start polls until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("outbox fetch failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce publishes one batch in creation order and returns how many
// events were sent. Once an event of an aggregate fails, the rest of that
// aggregate's events wait for the next pass.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (int, error) {
	now := d.now()
	events, err := d.repo.FetchDue(ctx, now, d.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	blocked := make(map[string]bool)
	for i := range events {
		e := &events[i]
		if blocked[e.AggregateID] {
			continue
		}
		if err := d.publisher.Publish(ctx, e.Envelope()); err != nil {
			blocked[e.AggregateID] = true
			result := "retry"
			if e.RetryCount+1 >= d.maxRetries {
				result = "failed"
			}
			metrics.IncOutboxDispatched(e.Type, result)
			d.logger.Warn("publish event failed",
				zap.String("event_id", e.EventID),
				zap.String("type", e.Type),
				zap.String("aggregate_id", e.AggregateID),
				zap.Int("retry", e.RetryCount+1),
				zap.Error(err),
			)
			if err := d.repo.MarkFailed(ctx, e.ID, err.Error(), d.maxRetries, now); err != nil {
				d.logger.Error("mark event failed", zap.String("event_id", e.EventID), zap.Error(err))
			}
			continue
		}
		if err := d.repo.MarkSent(ctx, e.ID); err != nil {
			d.logger.Error("mark event sent", zap.String("event_id", e.EventID), zap.Error(err))
			continue
		}
		metrics.IncOutboxDispatched(e.Type, "sent")
		sent++
	}
	return sent, nil
}
