package models

import "time"

// Observation is one raw sample. Unique per (CameraID, Timestamp), never updated.
type Observation struct {
	CameraID    int64     `json:"camera_id" db:"camera_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	PeopleCount int       `json:"people_count" db:"people_count"`
}

// AppendOutcome is the result of an idempotent history append
type AppendOutcome string

// AppendOutcome constants
const (
	OutcomeInserted         AppendOutcome = "inserted"
	OutcomeSkippedDuplicate AppendOutcome = "skipped_duplicate"
)

// ObservationFilter represents query parameters for camera history
type ObservationFilter struct {
	Limit int `form:"limit"`
}
