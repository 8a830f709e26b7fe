// Package location provides one-shot device location fixes.
package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/validation"
)

var (
	// ErrDisabled is returned by providers whose location service is turned off.
	ErrDisabled = errors.New("location provider disabled")
	// ErrNoFix means the provider answered but could not produce coordinates.
	ErrNoFix = errors.New("no location fix")
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Provider is a location service.
type Provider interface {
	// Name labels the provider in logs and metrics.
	Name() string
	// Enabled reports whether the location service is turned on.
	Enabled() bool
	// Locate blocks until a single fix is available or ctx ends.
	Locate(ctx context.Context) (Coordinates, error)
}

// RequestLocation asks p for one fix on a separate goroutine. cb runs at most
// once and only for a valid fix. The returned channel closes once the request
// has settled; a cancelled ctx suppresses a callback that has not fired yet.
func RequestLocation(ctx context.Context, p Provider, cb func(Coordinates)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := Locate(ctx, p)
		if err != nil || ctx.Err() != nil {
			return
		}
		cb(c)
	}()
	return done
}

// Locate runs a single fix against p, validates the coordinates, and records
// the outcome.
func Locate(ctx context.Context, p Provider) (Coordinates, error) {
	if !p.Enabled() {
		observability.LocationRequestsTotal.WithLabelValues(p.Name(), "disabled").Inc()
		return Coordinates{}, ErrDisabled
	}
	c, err := p.Locate(ctx)
	if err != nil {
		observability.LocationRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
		return Coordinates{}, err
	}
	if err := validation.ValidateCoordinates(c.Lat, c.Lon); err != nil {
		observability.LocationRequestsTotal.WithLabelValues(p.Name(), "invalid").Inc()
		return Coordinates{}, fmt.Errorf("%w: %w", ErrNoFix, err)
	}
	observability.LocationRequestsTotal.WithLabelValues(p.Name(), "fix").Inc()
	return c, nil
}

// Static always reports the configured coordinates.
type Static struct {
	Coordinates Coordinates
}

func (s Static) Name() string  { return "static" }
func (s Static) Enabled() bool { return true }

func (s Static) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	return s.Coordinates, nil
}

// Disabled models a location service that is switched off.
type Disabled struct{}

func (Disabled) Name() string  { return "off" }
func (Disabled) Enabled() bool { return false }

func (Disabled) Locate(ctx context.Context) (Coordinates, error) {
	return Coordinates{}, ErrDisabled
}
