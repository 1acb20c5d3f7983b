package decisionlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes decisions older than a retention window on a cron
// schedule.
type Sweeper struct {
	store    *Store
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a retention sweeper. The schedule uses standard cron
// syntax, e.g. "0 3 * * *" for daily at 3 AM.
func NewSweeper(store *Store, schedule string, maxAge time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention window must be positive, got %s", maxAge)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		maxAge:   maxAge,
		cron:     cron.New(),
		logger:   logger,
	}, nil
}

// Start schedules the sweep and returns immediately. The sweeper stops when
// ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("decision log retention sweeper started",
		"schedule", s.schedule,
		"max_age", s.maxAge.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Sweep runs one retention pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.maxAge)
	return s.store.Purge(ctx, cutoff)
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("decision log sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("decision log sweep completed", "deleted", deleted)
	} else {
		s.logger.Debug("decision log sweep completed, nothing to delete")
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("decision log retention sweeper stopped")
}
