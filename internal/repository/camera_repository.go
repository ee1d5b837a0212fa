package repository

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/database"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

const cameraColumns = `camera_id, name, location_name, people_count, timestamp, image_ref, traffic_level`

// CameraRepository is the live state table, one row per camera
type CameraRepository struct {
	db          *sql.DB
	rejectStale bool
}

// NewCameraRepository creates a new camera repository. With rejectStale set,
// SetCurrent ignores snapshots older than the stored one; otherwise the last
// write wins regardless of timestamp.
func NewCameraRepository(db *sql.DB, rejectStale bool) *CameraRepository {
	return &CameraRepository{db: db, rejectStale: rejectStale}
}

// Upsert registers a camera or refreshes its name and location. Live fields
// are left untouched.
func (r *CameraRepository) Upsert(ctx context.Context, camera models.Camera) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cameras (camera_id, name, location_name, image_ref)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (camera_id) DO UPDATE SET
			name = excluded.name,
			location_name = excluded.location_name,
			image_ref = CASE WHEN cameras.image_ref = '' THEN excluded.image_ref ELSE cameras.image_ref END
	`, camera.CameraID, camera.Name, camera.LocationName, camera.ImageRef)
	if err != nil {
		return models.Storage("upsert camera", err)
	}
	return nil
}

// SetCurrent overwrites the camera snapshot and recomputes the traffic level
// of the camera and of its location in one transaction. It reports false
// when the write was skipped as stale.
func (r *CameraRepository) SetCurrent(ctx context.Context, cameraID int64, peopleCount int, ts time.Time, imageRef string) (bool, error) {
	applied := false

	err := database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		var locationName string
		var stored sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT location_name, timestamp FROM cameras WHERE camera_id = ?`, cameraID).
			Scan(&locationName, &stored)
		if err == sql.ErrNoRows {
			return xerrors.Errorf("camera %d: %w", cameraID, models.ErrNotFound)
		}
		if err != nil {
			return models.Storage("load camera", err)
		}

		if r.rejectStale && stored.Valid {
			prev, err := parseTime(stored.String)
			if err == nil && ts.Before(prev) {
				return nil
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE cameras
			SET people_count = ?, timestamp = ?, image_ref = ?, traffic_level = ?
			WHERE camera_id = ?
		`, peopleCount, formatTime(ts), imageRef, models.DeriveTrafficLevel(peopleCount), cameraID); err != nil {
			return models.Storage("update camera", err)
		}

		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(people_count), 0) FROM cameras WHERE location_name = ?`, locationName).
			Scan(&total); err != nil {
			return models.Storage("sum location counts", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE locations SET traffic_level = ? WHERE name = ?`,
			models.DeriveTrafficLevel(total), locationName); err != nil {
			return models.Storage("update location traffic level", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		if xerrors.Is(err, models.ErrNotFound) || xerrors.Is(err, models.ErrStorageFailure) {
			return false, err
		}
		return false, models.Storage("set current", err)
	}

	return applied, nil
}

// Get retrieves a camera by ID, nil when unknown
func (r *CameraRepository) Get(ctx context.Context, cameraID int64) (*models.Camera, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE camera_id = ?`, cameraID)

	c, err := scanCamera(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, models.Storage("get camera", err)
	}
	return c, nil
}

// ListByLocation returns the cameras of a location ordered by ID
func (r *CameraRepository) ListByLocation(ctx context.Context, locationName string) ([]models.Camera, error) {
	return r.list(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE location_name = ? ORDER BY camera_id`, locationName)
}

// List returns all cameras ordered by ID
func (r *CameraRepository) List(ctx context.Context) ([]models.Camera, error) {
	return r.list(ctx, `SELECT `+cameraColumns+` FROM cameras ORDER BY camera_id`)
}

func (r *CameraRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Camera, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Storage("query cameras", err)
	}
	defer rows.Close()

	cameras := []models.Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, models.Storage("scan camera", err)
		}
		cameras = append(cameras, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, models.Storage("query cameras", err)
	}
	return cameras, nil
}

func scanCamera(s scanner) (*models.Camera, error) {
	var c models.Camera
	var ts sql.NullString
	if err := s.Scan(&c.CameraID, &c.Name, &c.LocationName, &c.PeopleCount, &ts, &c.ImageRef, &c.TrafficLevel); err != nil {
		return nil, err
	}
	if ts.Valid {
		t, err := parseTime(ts.String)
		if err != nil {
			return nil, err
		}
		c.Timestamp = &t
	}
	return &c, nil
}
