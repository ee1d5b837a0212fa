package service

import (
	"context"

	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/ingest"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
	"github.com/campuspulse/occupancy-backend-go/internal/spatial"
)

// ReportSource exposes the most recent ingestion cycle
type ReportSource interface {
	LastReport() *ingest.CycleReport
}

// QueryService serves the read side: locations, live state, profiles and
// history
type QueryService struct {
	locations    repository.LocationStore
	cameras      repository.LiveStateStore
	profiles     repository.ProfileStore
	observations repository.ObservationStore
	bucketer     *bucket.Bucketer
	clock        quartz.Clock
	reports      ReportSource
}

// NewQueryService creates a new query service. reports may be nil when no
// scheduler runs in this process.
func NewQueryService(
	locations repository.LocationStore,
	cameras repository.LiveStateStore,
	profiles repository.ProfileStore,
	observations repository.ObservationStore,
	bucketer *bucket.Bucketer,
	clock quartz.Clock,
	reports ReportSource,
) *QueryService {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &QueryService{
		locations:    locations,
		cameras:      cameras,
		profiles:     profiles,
		observations: observations,
		bucketer:     bucketer,
		clock:        clock,
		reports:      reports,
	}
}

// ListLocations returns every location. With both filter coordinates set
// the list is ordered nearest first and carries distances.
func (s *QueryService) ListLocations(ctx context.Context, filter models.LocationFilter) ([]models.LocationSummary, error) {
	if (filter.Lat == nil) != (filter.Lng == nil) {
		return nil, xerrors.Errorf("lat and lng must be given together: %w", models.ErrInvalidInput)
	}
	if filter.Lat != nil && !spatial.ValidCoordinate(*filter.Lat, *filter.Lng) {
		return nil, xerrors.Errorf("coordinates out of range: %w", models.ErrInvalidInput)
	}

	locations, err := s.locations.List(ctx)
	if err != nil {
		return nil, xerrors.Errorf("list locations: %w", err)
	}

	summaries := make([]models.LocationSummary, len(locations))
	for i, loc := range locations {
		summaries[i] = models.LocationSummary{
			ID:        loc.ID,
			Name:      loc.Name,
			Longitude: loc.Longitude,
			Latitude:  loc.Latitude,
		}
	}
	if filter.Lat == nil {
		return summaries, nil
	}

	ranked := spatial.Nearest(*filter.Lat, *filter.Lng, len(summaries), func(i int) (float64, float64) {
		return summaries[i].Latitude, summaries[i].Longitude
	})
	sorted := make([]models.LocationSummary, len(ranked))
	for i, r := range ranked {
		d := r.DistanceM
		sorted[i] = summaries[r.Index]
		sorted[i].DistanceM = &d
	}
	return sorted, nil
}

// LocationCameras returns the live view of every camera at a location
func (s *QueryService) LocationCameras(ctx context.Context, name string) ([]models.CameraView, error) {
	if err := s.requireLocation(ctx, name); err != nil {
		return nil, err
	}

	cameras, err := s.cameras.ListByLocation(ctx, name)
	if err != nil {
		return nil, xerrors.Errorf("list cameras: %w", err)
	}

	views := make([]models.CameraView, len(cameras))
	for i, c := range cameras {
		views[i] = c.View()
	}
	return views, nil
}

// Analytics returns the profile buckets of a location for one weekday,
// latest interval first
func (s *QueryService) Analytics(ctx context.Context, location, weekday string, filter models.AnalyticsFilter) ([]models.ProfileBucket, error) {
	day, ok := bucket.ParseWeekday(weekday)
	if !ok {
		return nil, xerrors.Errorf("weekday %q: %w", weekday, models.ErrInvalidInput)
	}
	switch filter.Season {
	case models.SeasonAny, models.SeasonSummer, models.SeasonRegular:
	default:
		return nil, xerrors.Errorf("season %q: %w", filter.Season, models.ErrInvalidInput)
	}
	if err := s.requireLocation(ctx, location); err != nil {
		return nil, err
	}

	buckets, err := s.profiles.ListByLocationWeekday(ctx, location, day, filter.Season, repository.MaxAnalyticsRows)
	if err != nil {
		return nil, xerrors.Errorf("list profile buckets: %w", err)
	}
	return buckets, nil
}

// Usual pairs each camera's live count with its profile bucket for the
// current local time. Usual is nil for buckets without samples yet.
func (s *QueryService) Usual(ctx context.Context, location string) ([]models.UsualView, error) {
	if err := s.requireLocation(ctx, location); err != nil {
		return nil, err
	}

	cameras, err := s.cameras.ListByLocation(ctx, location)
	if err != nil {
		return nil, xerrors.Errorf("list cameras: %w", err)
	}

	key := s.bucketer.For(s.clock.Now("query", "usual"))
	views := make([]models.UsualView, 0, len(cameras))
	for _, c := range cameras {
		b, err := s.profiles.Get(ctx, c.CameraID, key)
		if err != nil {
			return nil, xerrors.Errorf("get profile bucket: %w", err)
		}

		view := models.UsualView{
			CameraID:      c.CameraID,
			LocationName:  c.LocationName,
			PeopleCount:   c.PeopleCount,
			TrafficLevel:  c.TrafficLevel,
			Weekday:       key.WeekdayName(),
			IsSummer:      key.IsSummer,
			IntervalStart: key.IntervalStart.String(),
			Usual:         b,
		}
		if b != nil {
			level := models.DeriveTrafficLevel(int(b.Average + 0.5))
			view.UsualLevel = &level
		}
		views = append(views, view)
	}
	return views, nil
}

// CameraHistory returns the latest observations of a camera, newest first
func (s *QueryService) CameraHistory(ctx context.Context, cameraID int64, filter models.ObservationFilter) ([]models.Observation, error) {
	if filter.Limit < 0 {
		return nil, xerrors.Errorf("limit %d: %w", filter.Limit, models.ErrInvalidInput)
	}

	camera, err := s.cameras.Get(ctx, cameraID)
	if err != nil {
		return nil, xerrors.Errorf("get camera: %w", err)
	}
	if camera == nil {
		return nil, xerrors.Errorf("camera %d: %w", cameraID, models.ErrNotFound)
	}

	history, err := s.observations.Query(ctx, cameraID, filter.Limit)
	if err != nil {
		return nil, xerrors.Errorf("query history: %w", err)
	}
	return history, nil
}

// LastCycle returns the report of the latest ingestion cycle, nil when none
// has completed
func (s *QueryService) LastCycle() *ingest.CycleReport {
	if s.reports == nil {
		return nil
	}
	return s.reports.LastReport()
}

func (s *QueryService) requireLocation(ctx context.Context, name string) error {
	loc, err := s.locations.GetByName(ctx, name)
	if err != nil {
		return xerrors.Errorf("get location: %w", err)
	}
	if loc == nil {
		return xerrors.Errorf("location %q: %w", name, models.ErrNotFound)
	}
	return nil
}
