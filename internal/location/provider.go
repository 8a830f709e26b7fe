package location

import (
	"fmt"

	"github.com/kjstillabower/weathernow/internal/config"
)

// FromConfig builds the provider selected by location.mode.
func FromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.LocationMode {
	case "static":
		return Static{Coordinates: Coordinates{Lat: cfg.LocationLat, Lon: cfg.LocationLon}}, nil
	case "ip":
		return NewIPGeolocator(cfg.LocationIPURL, cfg.LocationTimeout), nil
	case "off":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown location mode %q", cfg.LocationMode)
	}
}
