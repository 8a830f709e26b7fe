//go:build integration
// +build integration

// Package testhelpers builds live WeatherApp instances for integration tests.
// Import it only from external _test packages.
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/config"
	"github.com/kjstillabower/weathernow/internal/connectivity"
	"github.com/kjstillabower/weathernow/internal/location"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/present"
	"github.com/kjstillabower/weathernow/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey         string
	APIURL         string
	CacheBackend   string // any cache.backend value; default "file"
	MemcachedAddrs string
	RedisAddr      string
	Coordinates    location.Coordinates
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data"
	}
	backend := os.Getenv("INTEGRATION_CACHE_BACKEND")
	if backend == "" {
		backend = "file"
	}
	memcachedAddrs := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddrs == "" {
		memcachedAddrs = "localhost:11211"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return IntegrationTestConfig{
		APIKey:         apiKey,
		APIURL:         apiURL,
		CacheBackend:   backend,
		MemcachedAddrs: memcachedAddrs,
		RedisAddr:      redisAddr,
		Coordinates:    location.Coordinates{Lat: 51.5072, Lon: -0.1276},
	}
}

// SetupIntegrationApp wires a WeatherApp against the live API with a static
// location and an always-online network check.
func SetupIntegrationApp(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherApp, *cache.WeatherCache, func()) {
	t.Helper()
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	weatherClient, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	dir := t.TempDir()
	store, err := cache.New(&config.Config{
		CacheBackend:     cfg.CacheBackend,
		CacheDir:         dir,
		SQLitePath:       filepath.Join(dir, "weathernow.db"),
		MemcachedAddrs:   cfg.MemcachedAddrs,
		MemcachedTimeout: 500 * time.Millisecond,
		RedisAddr:        cfg.RedisAddr,
	})
	if err != nil {
		t.Fatalf("cache.New(%s) error = %v", cfg.CacheBackend, err)
	}
	t.Logf("Using %s cache backend", cfg.CacheBackend)

	wc := cache.NewWeatherCache(store)
	app := service.NewWeatherApp(
		location.Static{Coordinates: cfg.Coordinates},
		connectivity.Static(true),
		weatherClient,
		wc,
		service.Options{
			Display: present.Options{Unit: present.Celsius, Location: time.UTC},
			Logger:  logger,
		},
	)
	cleanup := func() {
		_ = store.Close()
		_ = logger.Sync()
	}
	return app, wc, cleanup
}
