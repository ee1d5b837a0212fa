package ingest

import (
	"time"

	"github.com/google/uuid"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// CameraState is a step of the per camera state machine
type CameraState string

// Idle → FetchingObservation → UpdatingLiveState → UpdatingProfile →
// AppendingHistory → Done. Any step may move to Failed.
const (
	StateIdle                CameraState = "idle"
	StateFetchingObservation CameraState = "fetching_observation"
	StateUpdatingLiveState   CameraState = "updating_live_state"
	StateUpdatingProfile     CameraState = "updating_profile"
	StateAppendingHistory    CameraState = "appending_history"
	StateDone                CameraState = "done"
	StateFailed              CameraState = "failed"
)

// CameraResult is the outcome of one camera in one cycle
type CameraResult struct {
	CameraID     int64                `json:"camera_id"`
	LocationName string               `json:"location_name"`
	State        CameraState          `json:"state"`               // Done or Failed
	FailedAt     CameraState          `json:"failed_at,omitempty"` // Step that failed
	PeopleCount  int                  `json:"people"`
	Timestamp    time.Time            `json:"timestamp"`
	Outcome      models.AppendOutcome `json:"outcome,omitempty"`
	Stale        bool                 `json:"stale,omitempty"` // Live state kept a newer snapshot
	Err          error                `json:"-"`
	Error        string               `json:"error,omitempty"`
}

func (r *CameraResult) fail(at CameraState, err error) {
	r.State = StateFailed
	r.FailedAt = at
	r.Err = err
	r.Error = err.Error()
}

// CycleReport summarises one ingestion cycle
type CycleReport struct {
	ID         uuid.UUID      `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Duplicates int            `json:"duplicates"`
	Stale      int            `json:"stale"`
	Results    []CameraResult `json:"results"`
}

func (r *CycleReport) tally() {
	r.Succeeded, r.Failed, r.Duplicates, r.Stale = 0, 0, 0, 0
	for _, res := range r.Results {
		if res.State == StateDone {
			r.Succeeded++
		} else {
			r.Failed++
		}
		if res.Outcome == models.OutcomeSkippedDuplicate {
			r.Duplicates++
		}
		if res.Stale {
			r.Stale++
		}
	}
}

// Result returns the result of a camera, nil when it was not part of the cycle
func (r *CycleReport) Result(cameraID int64) *CameraResult {
	for i := range r.Results {
		if r.Results[i].CameraID == cameraID {
			return &r.Results[i]
		}
	}
	return nil
}
