package task

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper re-derives project statuses that depend only on the clock.
type Sweeper interface {
	SweepDelayed(ctx context.Context) (int, error)
}

// Manager owns the background schedule.
type Manager struct {
	scheduler gocron.Scheduler
	log       *zap.Logger
	timeout   time.Duration
}

func NewManager(logger *zap.Logger) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Manager{scheduler: s, log: logger, timeout: time.Minute}, nil
}

// RegisterDelaySweep runs s every interval. A run still in progress when the
// next one is due pushes the next one back.
func (m *Manager) RegisterDelaySweep(s Sweeper, every time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { m.sweep(s) }),
		gocron.WithName("delay-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (m *Manager) sweep(s Sweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	n, err := s.SweepDelayed(ctx)
	if err != nil {
		m.log.Error("delay sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		m.log.Info("delay sweep", zap.Int("updated", n))
	}
}

func (m *Manager) Start() {
	m.scheduler.Start()
	m.log.Info("task manager started")
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		m.log.Error("task manager shutdown", zap.Error(err))
	}
	m.log.Info("task manager stopped")
}
