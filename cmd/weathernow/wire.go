package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/config"
	"github.com/kjstillabower/weathernow/internal/connectivity"
	"github.com/kjstillabower/weathernow/internal/location"
	"github.com/kjstillabower/weathernow/internal/present"
	"github.com/kjstillabower/weathernow/internal/service"
)

// components is everything a command needs, built from one Config. app and
// icons stay nil for commands that only read the cache.
type components struct {
	logger  *zap.Logger
	store   cache.Store
	weather *cache.WeatherCache
	display present.Options
	app     *service.WeatherApp
	icons   *present.IconLoader
}

// wireCache opens the configured store. It needs no API key.
func wireCache(cfg *config.Config, logger *zap.Logger) (*components, error) {
	display, err := present.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("cache backend %s: %w", cfg.CacheBackend, err)
	}
	logger.Debug("cache backend", zap.String("backend", cfg.CacheBackend))
	return &components{
		logger:  logger,
		store:   store,
		weather: cache.NewWeatherCache(store),
		display: display,
	}, nil
}

// appOptions builds the WeatherApp options. coalesce is false for one-shot
// commands, where the refresh must finish on the caller's context before the
// store is closed.
func appOptions(cfg *config.Config, display present.Options, logger *zap.Logger, notices io.Writer, coalesce bool) service.Options {
	var notifier service.Notifier = service.LogNotifier{Logger: logger}
	if notices != nil {
		notifier = service.NewWriterNotifier(notices)
	}
	opts := service.Options{
		Display:  display,
		Notifier: notifier,
		Logger:   logger,
	}
	if coalesce {
		opts.CoalesceTimeout = cfg.CoalesceTimeout
	}
	return opts
}

// wire builds the full app graph on top of wireCache. notices, when non-nil,
// receives user-facing notices; otherwise they go to the log.
func wire(cfg *config.Config, logger *zap.Logger, notices io.Writer, coalesce bool) (*components, error) {
	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	locator, err := location.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	c, err := wireCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.app = service.NewWeatherApp(locator, connectivity.FromMode(cfg.ConnectivityMode), weatherClient, c.weather,
		appOptions(cfg, c.display, logger, notices, coalesce))
	c.icons = present.NewIconLoader(cfg.IconURL, cfg.IconTTL, cfg.WeatherAPITimeout, cfg.IconFetch, logger)
	return c, nil
}

// cached binds the stored response without touching the network.
func (c *components) cached(ctx context.Context) (present.View, bool) {
	return present.BindCached(ctx, c.weather, c.display, c.logger)
}

func (c *components) Close() {
	if err := c.store.Close(); err != nil {
		c.logger.Error("cache close", zap.Error(err))
	}
}
