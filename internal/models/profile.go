package models

// ProfileBucket holds the rolling statistics of one
// (camera, weekday, season, interval) slot.
type ProfileBucket struct {
	CameraID      int64   `json:"camera_id" db:"camera_id"`
	Weekday       string  `json:"weekday" db:"weekday"`               // Monday..Sunday
	IsSummer      bool    `json:"is_summer" db:"is_summer"`
	IntervalStart string  `json:"interval_start" db:"interval_start"` // HH:MM, local time
	Low           int     `json:"low" db:"low"`
	High          int     `json:"high" db:"high"`
	Average       float64 `json:"average" db:"average"` // (previous + sample) / 2, not a true mean
	SampleCount   int     `json:"sample_count" db:"sample_count"`
}

// Season filter values for analytics queries
const (
	SeasonAny     = ""
	SeasonSummer  = "summer"
	SeasonRegular = "regular"
)

// AnalyticsFilter represents query parameters for /analytics
type AnalyticsFilter struct {
	Season string `form:"season"`
}

// UsualView pairs a camera's live count with its profile for the current bucket
type UsualView struct {
	CameraID      int64          `json:"camera_id"`
	LocationName  string         `json:"location_name"`
	PeopleCount   int            `json:"people"`
	TrafficLevel  TrafficLevel   `json:"level"`
	Weekday       string         `json:"weekday"`
	IsSummer      bool           `json:"is_summer"`
	IntervalStart string         `json:"interval_start"`
	Usual         *ProfileBucket `json:"usual"`
	UsualLevel    *TrafficLevel  `json:"usual_level,omitempty"`
}
