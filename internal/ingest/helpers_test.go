package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/detector"
	"github.com/campuspulse/occupancy-backend-go/internal/imagestore"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
)

type fakeRegistry struct {
	mu       sync.Mutex
	listings map[string][]registry.CameraInfo
	listErr  map[string]error
	images   map[string][]byte
}

func (f *fakeRegistry) Cameras(_ context.Context, building string) ([]registry.CameraInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[building]; err != nil {
		return nil, err
	}
	return f.listings[building], nil
}

func (f *fakeRegistry) FetchImage(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[url]
	if !ok {
		return nil, xerrors.Errorf("GET %s: 404", url)
	}
	return img, nil
}

// fakeDetector answers by image content. "fail" stills error out.
type fakeDetector struct {
	mu      sync.Mutex
	counts  map[string]int
	entered chan struct{}
	release chan struct{}
	active  int
	peak    int
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) (detector.Result, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.counts[string(image)]
	if !ok {
		return detector.Result{}, xerrors.Errorf("model crashed: %w", models.ErrDetectorFailure)
	}
	return detector.Result{PeopleCount: count, Annotated: append([]byte("annotated-"), image...)}, nil
}

type harness struct {
	pipeline     *Pipeline
	metrics      *Metrics
	registry     *fakeRegistry
	detector     *fakeDetector
	fs           afero.Fs
	cameras      *repository.CameraRepository
	locations    *repository.LocationRepository
	profiles     *repository.ProfileRepository
	observations *repository.ObservationRepository
}

// newHarness seeds two buildings: "Student Union" with cameras 1 and 2 at
// "Thunder Alley", and "Library" with camera 3.
func newHarness(t *testing.T, workers int) *harness {
	t.Helper()
	return newHarnessWithLiveState(t, workers, false)
}

func newHarnessWithLiveState(t *testing.T, workers int, rejectStale bool) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "ingest.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		registry: &fakeRegistry{
			listings: map[string][]registry.CameraInfo{
				"Student Union": {
					{ID: 1, Description: "Thunder Alley", URL: "http://cams/1.jpg", UpdatedAt: "2024-06-03T17:10:00Z"},
					{ID: 2, Description: "Thunder Alley East", URL: "http://cams/2.jpg", UpdatedAt: "2024-06-03T17:10:05Z"},
				},
				"Library": {
					{ID: 3, Description: "Library", URL: "http://cams/3.jpg", UpdatedAt: "2024-06-03 10:09:00"},
				},
			},
			listErr: map[string]error{},
			images: map[string][]byte{
				"http://cams/1.jpg": []byte("one"),
				"http://cams/2.jpg": []byte("two"),
				"http://cams/3.jpg": []byte("three"),
			},
		},
		detector:     &fakeDetector{counts: map[string]int{"one": 3, "two": 4, "three": 20}},
		fs:           afero.NewMemMapFs(),
		cameras:      repository.NewCameraRepository(db, rejectStale),
		locations:    repository.NewLocationRepository(db),
		profiles:     repository.NewProfileRepository(db, bucket.MustDefault()),
		observations: repository.NewObservationRepository(db),
	}

	for _, loc := range []models.Location{
		{Name: "Thunder Alley", BuildingGroup: "Student Union"},
		{Name: "Library", BuildingGroup: "Library"},
	} {
		_, err := h.locations.Upsert(ctx, loc)
		require.NoError(t, err)
	}
	for _, cam := range []models.Camera{
		{CameraID: 1, Name: "Thunder Alley", LocationName: "Thunder Alley"},
		{CameraID: 2, Name: "Thunder Alley East", LocationName: "Thunder Alley"},
		{CameraID: 3, Name: "Library", LocationName: "Library"},
	} {
		require.NoError(t, h.cameras.Upsert(ctx, cam))
	}

	images, err := imagestore.New(h.fs, "/static")
	require.NoError(t, err)
	h.metrics, err = NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	h.pipeline = New(Options{
		Locations:    h.locations,
		Cameras:      h.cameras,
		Profiles:     h.profiles,
		Observations: h.observations,
		Registry:     h.registry,
		Detector:     h.detector,
		Images:       images,
		Workers:      workers,
		Metrics:      h.metrics,
		Logger:       slogtest.Make(t, &slogtest.Options{IgnoreErrors: true}),
	})
	return h
}
