package ingest

import (
	"context"
	"sync"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"
)

// DefaultInterval is the time between cycle starts
const DefaultInterval = 15 * time.Minute

// Runner runs one ingestion cycle
type Runner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// Scheduler triggers cycles on a fixed interval. The tick function blocks
// until its cycle returns, so ticks never overlap.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	immediate bool
	clock     quartz.Clock
	log       slog.Logger

	mu   sync.RWMutex
	last *CycleReport
}

// NewScheduler creates a scheduler. With immediate set, Run starts a cycle
// before waiting for the first tick.
func NewScheduler(runner Runner, interval time.Duration, immediate bool, clock quartz.Clock, logger slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		immediate: immediate,
		clock:     clock,
		log:       logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info(ctx, "ingestion scheduler started", slog.F("interval", s.interval))

	if s.immediate {
		_ = s.tick(ctx)
	}
	w := s.clock.TickerFunc(ctx, s.interval, func() error {
		return s.tick(ctx)
	}, "ingest", "cycle")

	err := w.Wait()
	s.log.Info(context.Background(), "ingestion scheduler stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// tick runs one cycle. It returns nil for every cycle outcome so the ticker
// keeps going.
func (s *Scheduler) tick(ctx context.Context) error {
	report, err := s.runner.RunCycle(ctx)
	if xerrors.Is(err, ErrCycleInProgress) {
		s.log.Warn(ctx, "skipping tick, previous cycle still running")
		return nil
	}
	if err != nil {
		s.log.Error(ctx, "ingestion cycle failed", slog.Error(err))
		return nil
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return nil
}

// LastReport returns the report of the most recent completed cycle, nil
// before the first one.
func (s *Scheduler) LastReport() *CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
