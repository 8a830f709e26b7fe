package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ipAPIResponse is the subset of the ip-api.com JSON body that is used.
type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPGeolocator resolves the host's approximate position from its public IP.
type IPGeolocator struct {
	url    string
	client *http.Client
}

// NewIPGeolocator returns a geolocator for url (e.g. "http://ip-api.com/json").
func NewIPGeolocator(url string, timeout time.Duration) *IPGeolocator {
	return &IPGeolocator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *IPGeolocator) Name() string  { return "ip" }
func (g *IPGeolocator) Enabled() bool { return g.url != "" }

func (g *IPGeolocator) Locate(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Coordinates{}, fmt.Errorf("%w: geolocation HTTP %d", ErrNoFix, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinates{}, fmt.Errorf("parse geolocation response: %w", err)
	}
	if body.Status != "success" {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrNoFix, body.Message)
	}
	return Coordinates{Lat: body.Lat, Lon: body.Lon}, nil
}
