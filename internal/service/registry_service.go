package service

import (
	"context"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/campuspulse/occupancy-backend-go/internal/imagestore"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/registry"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
)

// RegistryLister lists building groups and their cameras
type RegistryLister interface {
	Locations(ctx context.Context) ([]string, error)
	Cameras(ctx context.Context, building string) ([]registry.CameraInfo, error)
}

// Coordinates of a location, keyed by location name in the locations file
type Coordinates struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// locationsFile is the YAML layout of LOCATIONS_FILE:
//
//	locations:
//	  Thunder Alley:
//	    latitude: 33.5107
//	    longitude: -112.1289
type locationsFile struct {
	Locations map[string]Coordinates `yaml:"locations"`
}

// LoadCoordinates reads the locations file. An empty path yields no
// coordinates.
func LoadCoordinates(fs afero.Fs, path string) (map[string]Coordinates, error) {
	if path == "" {
		return map[string]Coordinates{}, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, xerrors.Errorf("read locations file: %w", err)
	}

	var file locationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, xerrors.Errorf("parse locations file: %w", err)
	}
	if file.Locations == nil {
		file.Locations = map[string]Coordinates{}
	}
	return file.Locations, nil
}

// SyncSummary counts what one registry sync touched
type SyncSummary struct {
	Buildings       int `json:"buildings"`
	Cameras         int `json:"cameras"`
	FailedBuildings int `json:"failed_buildings"`
}

// RegistryService mirrors the registry into the location and camera stores
type RegistryService struct {
	registry    RegistryLister
	locations   repository.LocationStore
	cameras     repository.LiveStateStore
	coordinates map[string]Coordinates
	log         slog.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(reg RegistryLister, locations repository.LocationStore, cameras repository.LiveStateStore, coordinates map[string]Coordinates, logger slog.Logger) *RegistryService {
	if coordinates == nil {
		coordinates = map[string]Coordinates{}
	}
	return &RegistryService{
		registry:    reg,
		locations:   locations,
		cameras:     cameras,
		coordinates: coordinates,
		log:         logger.Named("registry"),
	}
}

// Sync upserts one location per registry camera, named after the camera
// description and grouped under its building, and the camera itself. A
// building whose listing fails is skipped until the next sync.
func (s *RegistryService) Sync(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary

	buildings, err := s.registry.Locations(ctx)
	if err != nil {
		return summary, err
	}

	for _, building := range buildings {
		cameras, err := s.registry.Cameras(ctx, building)
		if err != nil {
			summary.FailedBuildings++
			s.log.Warn(ctx, "registry listing failed", slog.F("building", building), slog.Error(err))
			continue
		}
		summary.Buildings++

		for _, cam := range cameras {
			if cam.Description == "" {
				s.log.Debug(ctx, "skipping camera without description", slog.F("camera_id", cam.ID))
				continue
			}

			coords := s.coordinates[cam.Description]
			if _, err := s.locations.Upsert(ctx, models.Location{
				Name:          cam.Description,
				BuildingGroup: building,
				Latitude:      coords.Latitude,
				Longitude:     coords.Longitude,
			}); err != nil {
				return summary, xerrors.Errorf("upsert location %q: %w", cam.Description, err)
			}

			if err := s.cameras.Upsert(ctx, models.Camera{
				CameraID:     cam.ID,
				Name:         cam.Description,
				LocationName: cam.Description,
				ImageRef:     imagestore.Ref(cam.ID, cam.Description),
			}); err != nil {
				return summary, xerrors.Errorf("upsert camera %d: %w", cam.ID, err)
			}
			summary.Cameras++
		}
	}

	s.log.Info(ctx, "registry synced",
		slog.F("buildings", summary.Buildings),
		slog.F("cameras", summary.Cameras),
		slog.F("failed_buildings", summary.FailedBuildings),
	)
	return summary, nil
}

// Run syncs every interval until ctx is cancelled. The first sync is the
// caller's job.
func (s *RegistryService) Run(ctx context.Context, interval time.Duration, clock quartz.Clock) error {
	if clock == nil {
		clock = quartz.NewReal()
	}
	w := clock.TickerFunc(ctx, interval, func() error {
		if _, err := s.Sync(ctx); err != nil {
			s.log.Error(ctx, "registry sync failed", slog.Error(err))
		}
		return nil
	}, "registry", "sync")

	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
