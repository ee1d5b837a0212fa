// Package ingest runs the ingestion cycle: discover the cameras of every
// known location, fetch and count each one, then fold the count into the
// live state, the profile and the history.
package ingest

import (
	"context"
	"sync"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/detector"
	"github.com/campuspulse/occupancy-backend-go/internal/imagestore"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
)

// DefaultWorkers bounds concurrent camera processing
const DefaultWorkers = 4

// ErrCycleInProgress is returned by RunCycle while another cycle runs
var ErrCycleInProgress = xerrors.New("ingestion cycle already in progress")

// Registry lists cameras and downloads their stills
type Registry interface {
	Cameras(ctx context.Context, building string) ([]registry.CameraInfo, error)
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// ImageSaver persists the still served for a camera
type ImageSaver interface {
	Save(ref string, data []byte) error
}

// Options configures a Pipeline
type Options struct {
	Locations    repository.LocationStore
	Cameras      repository.LiveStateStore
	Profiles     repository.ProfileStore
	Observations repository.ObservationStore
	Registry     Registry
	Detector     detector.Detector
	Images       ImageSaver

	Workers int
	Clock   quartz.Clock
	Logger  slog.Logger
	Metrics *Metrics
}

// Pipeline runs ingestion cycles. At most one cycle runs at a time.
type Pipeline struct {
	opts Options
	log  slog.Logger
	run  sync.Mutex
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Metrics == nil {
		opts.Metrics, _ = NewMetrics(nil)
	}
	return &Pipeline{opts: opts, log: opts.Logger.Named("ingest")}
}

// work is one camera to process in a cycle
type work struct {
	camera models.Camera
	info   registry.CameraInfo
}

// RunCycle runs one cycle and returns its report. Per camera failures are
// recorded in the report and never fail the cycle; an error is returned
// only when the cycle could not start.
//
// Cancelling ctx stops new cameras from starting. Cameras already in flight
// finish, each detector call being bounded by its own timeout.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !p.run.TryLock() {
		p.opts.Metrics.recordCycle(CycleStatusSkipped)
		return nil, ErrCycleInProgress
	}
	defer p.run.Unlock()

	report := &CycleReport{ID: uuid.New(), StartedAt: p.opts.Clock.Now()}
	log := p.log.With(slog.F("cycle_id", report.ID))
	log.Info(ctx, "ingestion cycle started")

	items, failed, err := p.discover(ctx)
	if err != nil {
		p.opts.Metrics.recordCycle(CycleStatusFailed)
		log.Error(ctx, "ingestion cycle could not discover cameras", slog.Error(err))
		return nil, xerrors.Errorf("discover cameras: %w", err)
	}

	results := make([]CameraResult, len(items))
	inflight := context.WithoutCancel(ctx)

	var eg errgroup.Group
	eg.SetLimit(p.opts.Workers)
	for i, item := range items {
		if ctx.Err() != nil {
			results[i] = CameraResult{CameraID: item.camera.CameraID, LocationName: item.camera.LocationName}
			results[i].fail(StateIdle, ctx.Err())
			continue
		}
		eg.Go(func() error {
			results[i] = p.processCamera(inflight, item)
			return nil
		})
	}
	_ = eg.Wait()

	report.Results = make([]CameraResult, 0, len(failed)+len(results))
	report.Results = append(append(report.Results, failed...), results...)
	report.FinishedAt = p.opts.Clock.Now()
	report.tally()

	for _, res := range report.Results {
		if res.State == StateFailed {
			log.Warn(ctx, "camera failed",
				slog.F("camera_id", res.CameraID),
				slog.F("location", res.LocationName),
				slog.F("failed_at", res.FailedAt),
				slog.Error(res.Err),
			)
		}
	}

	p.opts.Metrics.recordCycle(CycleStatusCompleted)
	p.opts.Metrics.recordReport(report)
	log.Info(ctx, "ingestion cycle finished",
		slog.F("succeeded", report.Succeeded),
		slog.F("failed", report.Failed),
		slog.F("duplicates", report.Duplicates),
		slog.F("stale", report.Stale),
		slog.F("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// discover lists the registry once per building group and matches the
// listed cameras against the ones known to the store. A failed listing
// fails every known camera of that building for this cycle.
func (p *Pipeline) discover(ctx context.Context) ([]work, []CameraResult, error) {
	locations, err := p.opts.Locations.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	cameras, err := p.opts.Cameras.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	buildingOf := make(map[string]string, len(locations))
	for _, loc := range locations {
		buildingOf[loc.Name] = loc.BuildingGroup
	}

	byBuilding := make(map[string][]models.Camera)
	var buildings []string
	for _, cam := range cameras {
		b, ok := buildingOf[cam.LocationName]
		if !ok || b == "" {
			continue
		}
		if _, seen := byBuilding[b]; !seen {
			buildings = append(buildings, b)
		}
		byBuilding[b] = append(byBuilding[b], cam)
	}

	listings := make([][]registry.CameraInfo, len(buildings))
	errs := make([]error, len(buildings))
	var eg errgroup.Group
	eg.SetLimit(p.opts.Workers)
	for i, b := range buildings {
		eg.Go(func() error {
			listings[i], errs[i] = p.opts.Registry.Cameras(ctx, b)
			return nil
		})
	}
	_ = eg.Wait()

	var items []work
	var failed []CameraResult
	for i, b := range buildings {
		if errs[i] != nil {
			for _, cam := range byBuilding[b] {
				res := CameraResult{CameraID: cam.CameraID, LocationName: cam.LocationName}
				res.fail(StateFetchingObservation, errs[i])
				failed = append(failed, res)
			}
			continue
		}

		known := make(map[int64]models.Camera, len(byBuilding[b]))
		for _, cam := range byBuilding[b] {
			known[cam.CameraID] = cam
		}
		for _, info := range listings[i] {
			cam, ok := known[info.ID]
			if !ok {
				p.log.Debug(ctx, "skipping unregistered camera", slog.F("camera_id", info.ID), slog.F("building", b))
				continue
			}
			items = append(items, work{camera: cam, info: info})
		}
	}
	return items, failed, nil
}

// processCamera walks one camera through the state machine. Nothing is
// written unless the observation was fetched and counted.
func (p *Pipeline) processCamera(ctx context.Context, w work) CameraResult {
	res := CameraResult{CameraID: w.camera.CameraID, LocationName: w.camera.LocationName, State: StateIdle}

	res.State = StateFetchingObservation
	ts, err := bucket.ParseTimestamp(w.info.UpdatedAt)
	if err != nil {
		res.fail(StateFetchingObservation, err)
		return res
	}
	res.Timestamp = ts

	if w.info.URL == "" {
		res.fail(StateFetchingObservation, xerrors.New("registry listed no image url"))
		return res
	}
	still, err := p.opts.Registry.FetchImage(ctx, w.info.URL)
	if err != nil {
		res.fail(StateFetchingObservation, err)
		return res
	}

	started := p.opts.Clock.Now()
	detection, err := p.opts.Detector.Detect(ctx, still)
	p.opts.Metrics.detectorLatency.Observe(p.opts.Clock.Since(started).Seconds())
	if err != nil {
		res.fail(StateFetchingObservation, err)
		return res
	}
	if detection.PeopleCount < 0 {
		res.fail(StateFetchingObservation, xerrors.Errorf("negative count %d: %w", detection.PeopleCount, models.ErrDetectorFailure))
		return res
	}
	res.PeopleCount = detection.PeopleCount

	res.State = StateUpdatingLiveState
	ref := w.camera.ImageRef
	if ref == "" {
		ref = imagestore.Ref(w.camera.CameraID, w.camera.Name)
	}
	image := detection.Annotated
	if image == nil {
		image = still
	}
	applied, err := p.opts.Cameras.SetCurrent(ctx, w.camera.CameraID, detection.PeopleCount, ts, ref)
	if err != nil {
		res.fail(StateUpdatingLiveState, err)
		return res
	}
	// A rejected snapshot leaves the newer still in place
	if applied {
		if err := p.opts.Images.Save(ref, image); err != nil {
			res.fail(StateUpdatingLiveState, models.Storage("save image", err))
			return res
		}
	} else {
		res.Stale = true
	}

	res.State = StateUpdatingProfile
	if _, err := p.opts.Profiles.Update(ctx, w.camera.CameraID, ts, detection.PeopleCount); err != nil {
		res.fail(StateUpdatingProfile, err)
		return res
	}

	res.State = StateAppendingHistory
	outcome, err := p.opts.Observations.Append(ctx, models.Observation{
		CameraID:    w.camera.CameraID,
		Timestamp:   ts,
		PeopleCount: detection.PeopleCount,
	})
	if err != nil {
		res.fail(StateAppendingHistory, err)
		return res
	}
	res.Outcome = outcome

	res.State = StateDone
	return res
}
