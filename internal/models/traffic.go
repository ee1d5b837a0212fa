package models

// TrafficLevel is derived from a people count
type TrafficLevel string

// TrafficLevel constants
const (
	TrafficEmpty  TrafficLevel = "Empty"
	TrafficLow    TrafficLevel = "Low"
	TrafficMedium TrafficLevel = "Medium"
	TrafficHigh   TrafficLevel = "High"
)

// DeriveTrafficLevel maps a count to a level: 0 Empty, 1-4 Low, 5-14 Medium,
// 15+ High. Negative counts are Empty.
func DeriveTrafficLevel(peopleCount int) TrafficLevel {
	switch {
	case peopleCount <= 0:
		return TrafficEmpty
	case peopleCount < 5:
		return TrafficLow
	case peopleCount < 15:
		return TrafficMedium
	default:
		return TrafficHigh
	}
}
