package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/repository"
)

type stores struct {
	locations    *repository.LocationRepository
	cameras      *repository.CameraRepository
	profiles     *repository.ProfileRepository
	observations *repository.ObservationRepository
}

func newStores(t *testing.T) stores {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: filepath.Join(t.TempDir(), "service.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return stores{
		locations:    repository.NewLocationRepository(db),
		cameras:      repository.NewCameraRepository(db, false),
		profiles:     repository.NewProfileRepository(db, bucket.MustDefault()),
		observations: repository.NewObservationRepository(db),
	}
}
