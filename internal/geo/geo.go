// internal/geo/geo.go

// Package geo provides pure great-circle math over latitude/longitude pairs.
package geo

import (
	"math"

	"spotshare/internal/domain/spot"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters calculates the great-circle distance between two locations
// using the Haversine formula. Inputs are degrees, output is meters; accurate
// for the short ranges (<50 km) the proximity queries operate over.
func DistanceMeters(a, b spot.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
