package models

import "time"

// Camera is the unit of detection and live state
type Camera struct {
	CameraID     int64        `json:"camera_id" db:"camera_id"`
	Name         string       `json:"name" db:"name"`
	LocationName string       `json:"location_name" db:"location_name"` // Weak reference to Location.Name
	PeopleCount  int          `json:"people_count" db:"people_count"`
	Timestamp    *time.Time   `json:"timestamp,omitempty" db:"timestamp"` // Nil until the first successful cycle
	ImageRef     string       `json:"image_ref" db:"image_ref"`
	TrafficLevel TrafficLevel `json:"traffic_level" db:"traffic_level"`
}

// CameraView is the /location/:name projection
type CameraView struct {
	CameraID     int64        `json:"camera_id"`
	LocationName string       `json:"location_name"`
	PeopleCount  int          `json:"people"`
	TrafficLevel TrafficLevel `json:"level"`
	ImageRef     string       `json:"image"`
}

// View projects a camera for the query surface
func (c Camera) View() CameraView {
	return CameraView{
		CameraID:     c.CameraID,
		LocationName: c.LocationName,
		PeopleCount:  c.PeopleCount,
		TrafficLevel: c.TrafficLevel,
		ImageRef:     c.ImageRef,
	}
}
