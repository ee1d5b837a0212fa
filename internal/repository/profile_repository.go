package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuspulse/occupancy-backend-go/internal/bucket"
	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// MaxAnalyticsRows caps the rows returned for one location and weekday
const MaxAnalyticsRows = 200

const profileColumns = `camera_id, weekday, is_summer, interval_start, low, high, average, sample_count`

// ProfileRepository maintains profile buckets. Every update is O(1): one
// upsert on the bucket key, no raw samples are read.
type ProfileRepository struct {
	db       *sql.DB
	bucketer *bucket.Bucketer
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, bucketer *bucket.Bucketer) *ProfileRepository {
	return &ProfileRepository{db: db, bucketer: bucketer}
}

// Update folds one sample into its bucket and returns the bucket after the
// update. A new bucket starts at low = high = average = count. An existing
// one gets high = max, low = min, average = (average + count) / 2 and
// sample_count + 1. Low and high never narrow.
func (r *ProfileRepository) Update(ctx context.Context, cameraID int64, ts time.Time, peopleCount int) (models.ProfileBucket, error) {
	key := r.bucketer.For(ts)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profile_buckets (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (camera_id, weekday, is_summer, interval_start) DO UPDATE SET
			high = MAX(profile_buckets.high, excluded.high),
			low = MIN(profile_buckets.low, excluded.low),
			average = (profile_buckets.average + excluded.average) / 2.0,
			sample_count = profile_buckets.sample_count + 1
		RETURNING `+profileColumns,
		cameraID, key.WeekdayName(), key.IsSummer, key.IntervalStart.String(),
		peopleCount, peopleCount, float64(peopleCount),
	)

	var b models.ProfileBucket
	if err := scanProfile(row, &b); err != nil {
		return models.ProfileBucket{}, models.Storage("upsert profile bucket", err)
	}
	return b, nil
}

// Get returns the bucket of a camera for key, or nil when none exists yet
func (r *ProfileRepository) Get(ctx context.Context, cameraID int64, key bucket.Key) (*models.ProfileBucket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profile_buckets
		WHERE camera_id = ? AND weekday = ? AND is_summer = ? AND interval_start = ?
	`, cameraID, key.WeekdayName(), key.IsSummer, key.IntervalStart.String())

	var b models.ProfileBucket
	err := scanProfile(row, &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, models.Storage("get profile bucket", err)
	}
	return &b, nil
}

// ListByLocationWeekday returns the buckets of every camera at a location
// for one weekday, latest interval first. season is one of the models.Season
// constants; SeasonAny returns both.
func (r *ProfileRepository) ListByLocationWeekday(ctx context.Context, locationName string, weekday time.Weekday, season string, limit int) ([]models.ProfileBucket, error) {
	if limit < 1 || limit > MaxAnalyticsRows {
		limit = MaxAnalyticsRows
	}

	query := `
		SELECT p.camera_id, p.weekday, p.is_summer, p.interval_start, p.low, p.high, p.average, p.sample_count
		FROM profile_buckets p
		JOIN cameras c ON c.camera_id = p.camera_id
		WHERE c.location_name = ? AND p.weekday = ?`
	args := []interface{}{locationName, weekday.String()}

	switch season {
	case models.SeasonSummer:
		query += " AND p.is_summer = ?"
		args = append(args, true)
	case models.SeasonRegular:
		query += " AND p.is_summer = ?"
		args = append(args, false)
	}

	query += " ORDER BY p.interval_start DESC, p.is_summer DESC, p.camera_id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Storage("query profile buckets", err)
	}
	defer rows.Close()

	buckets := []models.ProfileBucket{}
	for rows.Next() {
		var b models.ProfileBucket
		if err := scanProfile(rows, &b); err != nil {
			return nil, models.Storage("scan profile bucket", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, models.Storage("query profile buckets", err)
	}
	return buckets, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(s scanner, b *models.ProfileBucket) error {
	return s.Scan(&b.CameraID, &b.Weekday, &b.IsSummer, &b.IntervalStart, &b.Low, &b.High, &b.Average, &b.SampleCount)
}
