package spatial

import (
	"sort"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two points
// given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// ValidCoordinate reports whether lat is in [-90, 90] and lng in [-180, 180]
func ValidCoordinate(lat, lng float64) bool {
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

// Ranked is one entry of a nearest-first ordering
type Ranked struct {
	Index     int     // Position in the input
	DistanceM float64 // Meters from the origin
}

// Nearest orders n points by distance from (lat, lng), nearest first. Ties
// keep input order. coord returns the coordinates of point i.
func Nearest(lat, lng float64, n int, coord func(i int) (float64, float64)) []Ranked {
	origin := s2.LatLngFromDegrees(lat, lng)
	ranked := make([]Ranked, n)
	for i := 0; i < n; i++ {
		plat, plng := coord(i)
		ranked[i] = Ranked{
			Index:     i,
			DistanceM: origin.Distance(s2.LatLngFromDegrees(plat, plng)).Radians() * EarthRadiusMeters,
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].DistanceM < ranked[b].DistanceM
	})
	return ranked
}
