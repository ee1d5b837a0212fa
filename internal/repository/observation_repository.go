package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// Observation history limits
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// timeLayout is the stored timestamp text: fixed width and always UTC, so
// equal instants give equal strings and text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ObservationRepository handles database operations for raw observations
type ObservationRepository struct {
	db *sql.DB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Append inserts obs unless a row for (camera, timestamp) already exists.
// The unique index makes check-and-insert a single atomic statement.
func (r *ObservationRepository) Append(ctx context.Context, obs models.Observation) (models.AppendOutcome, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO observations (camera_id, timestamp, people_count)
		VALUES (?, ?, ?)
		ON CONFLICT (camera_id, timestamp) DO NOTHING
	`, obs.CameraID, formatTime(obs.Timestamp), obs.PeopleCount)
	if err != nil {
		return "", models.Storage("insert observation", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", models.Storage("insert observation", err)
	}
	if n == 0 {
		return models.OutcomeSkippedDuplicate, nil
	}
	return models.OutcomeInserted, nil
}

// Query returns the newest observations of a camera, newest first
func (r *ObservationRepository) Query(ctx context.Context, cameraID int64, limit int) ([]models.Observation, error) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT camera_id, timestamp, people_count
		FROM observations
		WHERE camera_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, cameraID, limit)
	if err != nil {
		return nil, models.Storage("query observations", err)
	}
	defer rows.Close()

	observations := []models.Observation{}
	for rows.Next() {
		var obs models.Observation
		var ts string
		if err := rows.Scan(&obs.CameraID, &ts, &obs.PeopleCount); err != nil {
			return nil, models.Storage("scan observation", err)
		}
		if obs.Timestamp, err = parseTime(ts); err != nil {
			return nil, models.Storage("parse observation timestamp", err)
		}
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, models.Storage("query observations", err)
	}
	return observations, nil
}
