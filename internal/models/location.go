package models

// Location represents a monitored place, joined to its cameras by name
type Location struct {
	ID            int64        `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`                     // Display name, unique
	BuildingGroup string       `json:"building_group" db:"building_group"` // Registry location the camera is listed under
	Latitude      float64      `json:"latitude" db:"latitude"`
	Longitude     float64      `json:"longitude" db:"longitude"`
	TrafficLevel  TrafficLevel `json:"traffic_level" db:"traffic_level"`
}

// LocationSummary is the /locations projection
type LocationSummary struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Longitude float64  `json:"longitude"`
	Latitude  float64  `json:"latitude"`
	DistanceM *float64 `json:"distance_m,omitempty"` // Only set for nearest-first queries
}

// LocationFilter represents query parameters for listing locations
type LocationFilter struct {
	Lat *float64 `form:"lat"`
	Lng *float64 `form:"lng"`
}
