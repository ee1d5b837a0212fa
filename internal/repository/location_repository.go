package repository

import (
	"context"
	"database/sql"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

const locationColumns = `id, name, building_group, latitude, longitude, traffic_level`

// LocationRepository handles the location registry table
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List returns all locations ordered by ID
func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY id`)
	if err != nil {
		return nil, models.Storage("query locations", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var loc models.Location
		if err := scanLocation(rows, &loc); err != nil {
			return nil, models.Storage("scan location", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, models.Storage("query locations", err)
	}
	return locations, nil
}

// GetByName retrieves a location by name, nil when unknown
func (r *LocationRepository) GetByName(ctx context.Context, name string) (*models.Location, error) {
	var loc models.Location
	err := scanLocation(r.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE name = ?`, name), &loc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, models.Storage("get location", err)
	}
	return &loc, nil
}

// Upsert inserts a location or updates it by name and returns its ID.
// Zero coordinates on the incoming record keep the stored ones, and the
// traffic level is owned by the live state writer.
func (r *LocationRepository) Upsert(ctx context.Context, loc models.Location) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO locations (name, building_group, latitude, longitude, traffic_level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			building_group = excluded.building_group,
			latitude = CASE WHEN excluded.latitude = 0 AND excluded.longitude = 0 THEN locations.latitude ELSE excluded.latitude END,
			longitude = CASE WHEN excluded.latitude = 0 AND excluded.longitude = 0 THEN locations.longitude ELSE excluded.longitude END
		RETURNING id
	`, loc.Name, loc.BuildingGroup, loc.Latitude, loc.Longitude, models.TrafficEmpty).Scan(&id)
	if err != nil {
		return 0, models.Storage("upsert location", err)
	}
	return id, nil
}

func scanLocation(s scanner, loc *models.Location) error {
	return s.Scan(&loc.ID, &loc.Name, &loc.BuildingGroup, &loc.Latitude, &loc.Longitude, &loc.TrafficLevel)
}
