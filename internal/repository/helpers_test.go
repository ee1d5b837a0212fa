package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: filepath.Join(t.TempDir(), "repo.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedCamera registers a location and one camera at it.
func seedCamera(t *testing.T, db *sql.DB, cameraID int64, location string) {
	t.Helper()
	ctx := context.Background()
	_, err := NewLocationRepository(db).Upsert(ctx, models.Location{Name: location, BuildingGroup: "Student Union"})
	require.NoError(t, err)
	require.NoError(t, NewCameraRepository(db, false).Upsert(ctx, models.Camera{CameraID: cameraID, Name: location, LocationName: location}))
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}
