package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
)

// WeatherKey holds the serialized last response.
const WeatherKey = "weather_response_data"

// ErrCorrupt is returned by Load when the stored blob does not decode.
var ErrCorrupt = errors.New("cached weather data is corrupt")

// WeatherCache stores a single WeatherResponse as JSON in a Store.
type WeatherCache struct {
	store Store
}

func NewWeatherCache(store Store) *WeatherCache {
	return &WeatherCache{store: store}
}

// Store returns the underlying key-value store.
func (c *WeatherCache) Store() Store { return c.store }

// Save overwrites the cached response.
func (c *WeatherCache) Save(ctx context.Context, resp models.WeatherResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		observability.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return fmt.Errorf("encode weather: %w", err)
	}
	if err := c.store.PutString(ctx, WeatherKey, string(raw)); err != nil {
		observability.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return fmt.Errorf("save weather: %w", err)
	}
	observability.CacheOperationsTotal.WithLabelValues("put", "ok").Inc()
	return nil
}

// Load returns ok=false when nothing, an empty string or a JSON null is stored.
func (c *WeatherCache) Load(ctx context.Context) (models.WeatherResponse, bool, error) {
	raw, ok, err := c.store.GetString(ctx, WeatherKey)
	if err != nil {
		observability.CacheOperationsTotal.WithLabelValues("get", "error").Inc()
		return models.WeatherResponse{}, false, fmt.Errorf("load weather: %w", err)
	}
	if !ok || isBlank(raw) {
		observability.CacheOperationsTotal.WithLabelValues("get", "miss").Inc()
		return models.WeatherResponse{}, false, nil
	}
	var resp models.WeatherResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		observability.CacheOperationsTotal.WithLabelValues("get", "error").Inc()
		return models.WeatherResponse{}, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	observability.CacheOperationsTotal.WithLabelValues("get", "hit").Inc()
	return resp, true, nil
}

func isBlank(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || raw == "null"
}
