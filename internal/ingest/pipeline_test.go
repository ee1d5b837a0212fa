package ingest

import (
	"context"
	"testing"
	"time"

	prom_testutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
)

func TestCycleUpdatesEveryStore(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Results, 3)
	for _, res := range report.Results {
		assert.Equal(t, StateDone, res.State, res.Error)
		assert.Equal(t, models.OutcomeInserted, res.Outcome)
	}

	cam, err := h.cameras.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, cam.PeopleCount)
	assert.Equal(t, models.TrafficLow, cam.TrafficLevel)
	assert.Equal(t, "1_Thunder_Alley.jpg", cam.ImageRef)

	loc, err := h.locations.GetByName(ctx, "Thunder Alley")
	require.NoError(t, err)
	assert.Equal(t, models.TrafficMedium, loc.TrafficLevel)

	img, err := afero.ReadFile(h.fs, "/static/1_Thunder_Alley.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("annotated-one"), img)

	history, err := h.observations.Query(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 20, history[0].PeopleCount)

	key, err := bucket.MustDefault().ForString("2024-06-03T17:10:00Z")
	require.NoError(t, err)
	b, err := h.profiles.Get(ctx, 1, key)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.SampleCount)
	assert.Equal(t, 3, b.High)
}

func TestCycleIsolatesCameraFailures(t *testing.T) {
	h := newHarness(t, 4)
	ctx := context.Background()

	h.registry.images["http://cams/1.jpg"] = []byte("fail")
	h.registry.listings["Library"][0].UpdatedAt = "yesterday-ish"

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed)

	one := report.Result(1)
	require.NotNil(t, one)
	assert.Equal(t, StateFailed, one.State)
	assert.Equal(t, StateFetchingObservation, one.FailedAt)
	assert.ErrorIs(t, one.Err, models.ErrDetectorFailure)

	three := report.Result(3)
	require.NotNil(t, three)
	assert.ErrorIs(t, three.Err, models.ErrInvalidTimestamp)

	assert.Equal(t, StateDone, report.Result(2).State)

	// Failed cameras leave no trace in any store
	for _, id := range []int64{1, 3} {
		cam, err := h.cameras.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, cam.PeopleCount)
		assert.Nil(t, cam.Timestamp)

		history, err := h.observations.Query(ctx, id, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	}
	key, err := bucket.MustDefault().ForString("2024-06-03T17:10:00Z")
	require.NoError(t, err)
	b, err := h.profiles.Get(ctx, 1, key)
	require.NoError(t, err)
	assert.Nil(t, b)

	cam, err := h.cameras.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, cam.PeopleCount)
}

func TestCycleBuildingListingFailure(t *testing.T) {
	h := newHarness(t, 4)
	h.registry.listErr["Library"] = xerrors.New("registry unavailable")

	report, err := h.pipeline.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	three := report.Result(3)
	require.NotNil(t, three)
	assert.Equal(t, StateFetchingObservation, three.FailedAt)
	assert.Contains(t, three.Error, "registry unavailable")
}

func TestCycleDuplicateSnapshot(t *testing.T) {
	h := newHarness(t, 4)
	ctx := context.Background()

	_, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	// The registry has not refreshed: same updated_at, new count
	h.detector.counts["one"] = 9
	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 3, report.Duplicates)
	assert.Equal(t, models.OutcomeSkippedDuplicate, report.Result(1).Outcome)

	history, err := h.observations.Query(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].PeopleCount)

	cam, err := h.cameras.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, cam.PeopleCount)

	key, err := bucket.MustDefault().ForString("2024-06-03T17:10:00Z")
	require.NoError(t, err)
	b, err := h.profiles.Get(ctx, 1, key)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SampleCount)
	assert.Equal(t, 9, b.High)
}

func TestCycleSkipsUnregisteredCameras(t *testing.T) {
	h := newHarness(t, 4)
	h.registry.listings["Library"] = append(h.registry.listings["Library"],
		registry.CameraInfo{ID: 99, Description: "Loading Dock", URL: "http://cams/99.jpg", UpdatedAt: "2024-06-03T17:10:00Z"})

	report, err := h.pipeline.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Results, 3)
	assert.Nil(t, report.Result(99))
}

func TestCycleBoundsConcurrency(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.pipeline.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.detector.peak)
}

func TestCyclesDoNotOverlap(t *testing.T) {
	h := newHarness(t, 1)
	h.detector.entered = make(chan struct{})
	h.detector.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.pipeline.RunCycle(context.Background())
		done <- err
	}()

	<-h.detector.entered
	_, err := h.pipeline.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	// Let the first cycle drain its three cameras
	h.detector.release <- struct{}{}
	for i := 0; i < 2; i++ {
		<-h.detector.entered
		h.detector.release <- struct{}{}
	}
	require.NoError(t, <-done)

	h.detector.entered, h.detector.release = nil, nil
	_, err = h.pipeline.RunCycle(context.Background())
	assert.NoError(t, err)
}

func TestCycleFailsWhenDiscoveryFails(t *testing.T) {
	h := newHarness(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.pipeline.RunCycle(ctx)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCycleKeepsNewerLiveStateImage(t *testing.T) {
	h := newHarnessWithLiveState(t, 2, true)
	ctx := context.Background()

	h.detector.counts["new"] = 10
	h.detector.counts["old"] = 2
	h.registry.images["http://cams/1.jpg"] = []byte("new")
	h.registry.listings["Student Union"][0].UpdatedAt = "2024-06-03T17:40:00Z"

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stale)

	// The registry now serves an earlier snapshot for camera 1
	h.registry.images["http://cams/1.jpg"] = []byte("old")
	h.registry.listings["Student Union"][0].UpdatedAt = "2024-06-03T17:10:00Z"

	report, err = h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stale)

	one := report.Result(1)
	require.NotNil(t, one)
	assert.Equal(t, StateDone, one.State, one.Error)
	assert.True(t, one.Stale)
	assert.False(t, report.Result(2).Stale)

	cam, err := h.cameras.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, cam.PeopleCount)
	require.NotNil(t, cam.Timestamp)
	assert.True(t, cam.Timestamp.Equal(time.Date(2024, 6, 3, 17, 40, 0, 0, time.UTC)))

	img, err := afero.ReadFile(h.fs, "/static/1_Thunder_Alley.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("annotated-new"), img)

	// The older sample still belongs in history
	history, err := h.observations.Query(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	assert.Equal(t, float64(1), prom_testutil.ToFloat64(h.metrics.staleSnapshots))
}
