package validation

import (
	"errors"
	"math"
)

// ErrLatitudeOutOfRange is returned when latitude is NaN or outside [-90, 90].
var ErrLatitudeOutOfRange = errors.New("latitude out of range")

// ErrLongitudeOutOfRange is returned when longitude is NaN or outside [-180, 180].
var ErrLongitudeOutOfRange = errors.New("longitude out of range")

// ValidateCoordinates checks that lat/lon describe a point on the globe.
// Infinite and NaN values are rejected.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}
