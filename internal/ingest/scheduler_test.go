package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRunner) RunCycle(context.Context) (*CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &CycleReport{ID: uuid.New(), Succeeded: r.calls}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func startScheduler(t *testing.T, runner Runner, immediate bool) (*Scheduler, *quartz.Mock, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().TickerFunc("ingest")
	defer trap.Close()

	s := NewScheduler(runner, 15*time.Minute, immediate, mClock, slogtest.Make(t, nil))
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	trap.MustWait(ctx).MustRelease(ctx)
	return s, mClock, cancel, done
}

func TestSchedulerRunsImmediatelyThenEveryInterval(t *testing.T) {
	runner := &countingRunner{}
	s, mClock, cancel, done := startScheduler(t, runner, true)
	ctx := context.Background()

	assert.Equal(t, 1, runner.count())
	require.NotNil(t, s.LastReport())
	assert.Equal(t, 1, s.LastReport().Succeeded)

	mClock.Advance(15 * time.Minute).MustWait(ctx)
	assert.Equal(t, 2, runner.count())
	mClock.Advance(15 * time.Minute).MustWait(ctx)
	assert.Equal(t, 3, runner.count())
	assert.Equal(t, 3, s.LastReport().Succeeded)

	cancel()
	assert.NoError(t, <-done)
}

func TestSchedulerWaitsForFirstTick(t *testing.T) {
	runner := &countingRunner{}
	s, mClock, cancel, done := startScheduler(t, runner, false)
	ctx := context.Background()

	assert.Equal(t, 0, runner.count())
	assert.Nil(t, s.LastReport())

	mClock.Advance(15 * time.Minute).MustWait(ctx)
	assert.Equal(t, 1, runner.count())

	cancel()
	assert.NoError(t, <-done)
}

func TestSchedulerKeepsTickingThroughSkippedCycles(t *testing.T) {
	runner := &countingRunner{err: ErrCycleInProgress}
	s, mClock, cancel, done := startScheduler(t, runner, true)
	ctx := context.Background()

	mClock.Advance(15 * time.Minute).MustWait(ctx)
	mClock.Advance(15 * time.Minute).MustWait(ctx)
	assert.Equal(t, 3, runner.count())
	assert.Nil(t, s.LastReport())

	cancel()
	assert.NoError(t, <-done)
}
