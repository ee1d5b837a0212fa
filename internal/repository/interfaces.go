package repository

import (
	"context"
	"time"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// ObservationStore is the idempotent raw history.
type ObservationStore interface {
	Append(ctx context.Context, obs models.Observation) (models.AppendOutcome, error)
	Query(ctx context.Context, cameraID int64, limit int) ([]models.Observation, error)
}

// ProfileStore holds the incrementally maintained bucket statistics.
type ProfileStore interface {
	Update(ctx context.Context, cameraID int64, ts time.Time, peopleCount int) (models.ProfileBucket, error)
	Get(ctx context.Context, cameraID int64, key bucket.Key) (*models.ProfileBucket, error)
	ListByLocationWeekday(ctx context.Context, locationName string, weekday time.Weekday, season string, limit int) ([]models.ProfileBucket, error)
}

// LiveStateStore is the current snapshot per camera.
type LiveStateStore interface {
	SetCurrent(ctx context.Context, cameraID int64, peopleCount int, ts time.Time, imageRef string) (bool, error)
	Get(ctx context.Context, cameraID int64) (*models.Camera, error)
	ListByLocation(ctx context.Context, locationName string) ([]models.Camera, error)
	List(ctx context.Context) ([]models.Camera, error)
	Upsert(ctx context.Context, camera models.Camera) error
}

// LocationStore is the registry table.
type LocationStore interface {
	List(ctx context.Context) ([]models.Location, error)
	GetByName(ctx context.Context, name string) (*models.Location, error)
	Upsert(ctx context.Context, loc models.Location) (int64, error)
}
