package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spotshare/internal/domain/spot"
)

func TestDistanceMetersZero(t *testing.T) {
	p := spot.Location{Latitude: 40.0, Longitude: -3.0}

	assert.Equal(t, 0.0, DistanceMeters(p, p))
}

func TestDistanceMetersKnownOffsets(t *testing.T) {
	// One degree of latitude is ~111.2 km everywhere on the sphere.
	a := spot.Location{Latitude: 40.0, Longitude: -3.0}
	b := spot.Location{Latitude: 41.0, Longitude: -3.0}

	assert.InDelta(t, 111195, DistanceMeters(a, b), 200)

	// 0.001 degrees of latitude is ~111 m, the scale queries care about.
	c := spot.Location{Latitude: 40.001, Longitude: -3.0}
	assert.InDelta(t, 111.2, DistanceMeters(a, c), 1)
}

func TestDistanceMetersLongitudeShrinksWithLatitude(t *testing.T) {
	// A longitude step covers less ground away from the equator.
	atEquator := DistanceMeters(
		spot.Location{Latitude: 0, Longitude: 0},
		spot.Location{Latitude: 0, Longitude: 0.01},
	)
	atMadrid := DistanceMeters(
		spot.Location{Latitude: 40.4, Longitude: -3.7},
		spot.Location{Latitude: 40.4, Longitude: -3.69},
	)

	assert.Greater(t, atEquator, atMadrid)
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := spot.Location{Latitude: 40.4168, Longitude: -3.7038}
	b := spot.Location{Latitude: 40.4531, Longitude: -3.6883}

	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-9)
}
