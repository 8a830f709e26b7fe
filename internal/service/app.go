// Package service runs the locate, fetch and cache flow behind every command.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/connectivity"
	"github.com/kjstillabower/weathernow/internal/location"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/present"
)

var (
	// ErrLocationOff means the location provider is disabled.
	ErrLocationOff = errors.New("location provider is off")
	// ErrNoLocation means the provider produced no usable fix.
	ErrNoLocation = errors.New("location unavailable")
	// ErrOffline means no network was available, so no fetch was attempted.
	ErrOffline = errors.New("network unavailable")
	// ErrFetchFailed wraps every weather API failure.
	ErrFetchFailed = errors.New("fetch weather")
)

// NoticeFor returns the notice raised for err, if any.
func NoticeFor(err error) (Notice, bool) {
	switch {
	case errors.Is(err, ErrLocationOff):
		return NoticeLocationOff, true
	case errors.Is(err, ErrOffline):
		return NoticeNoNetwork, true
	}
	return "", false
}

// WeatherApp wires location, connectivity, the weather client and the cache
// into the screen's startup and refresh flows.
type WeatherApp struct {
	locator   location.Provider
	network   connectivity.Checker
	client    client.WeatherClient
	cache     *cache.WeatherCache
	notifier  Notifier
	opts      present.Options
	logger    *zap.Logger
	coalescer *refreshCoalescer
}

// Options configure a WeatherApp. Zero CoalesceTimeout disables coalescing.
type Options struct {
	Display         present.Options
	Notifier        Notifier
	Logger          *zap.Logger
	CoalesceTimeout time.Duration
}

func NewWeatherApp(locator location.Provider, network connectivity.Checker, weatherClient client.WeatherClient, weatherCache *cache.WeatherCache, opts Options) *WeatherApp {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	var coalescer *refreshCoalescer
	if opts.CoalesceTimeout > 0 {
		coalescer = newRefreshCoalescer(opts.CoalesceTimeout)
	}
	return &WeatherApp{
		locator:   locator,
		network:   network,
		client:    weatherClient,
		cache:     weatherCache,
		notifier:  notifier,
		opts:      opts.Display,
		logger:    logger,
		coalescer: coalescer,
	}
}

// loggerFromContext extracts a request-scoped zap.Logger, falling back to the app logger.
func (a *WeatherApp) loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return a.logger
}

// Startup binds whatever is cached. ok is false when nothing usable is stored.
func (a *WeatherApp) Startup(ctx context.Context) (present.View, bool) {
	return present.BindCached(ctx, a.cache, a.opts, a.loggerFromContext(ctx))
}

// Refresh locates the device, fetches current weather, stores it and re-binds
// from the cache. On any failure the cache is left untouched.
func (a *WeatherApp) Refresh(ctx context.Context) (present.View, bool, error) {
	if a.coalescer == nil {
		return a.refresh(ctx)
	}
	res, shared, err := a.coalescer.Do(ctx, func() refreshResult {
		v, ok, err := a.refresh(context.WithoutCancel(ctx))
		return refreshResult{view: v, ok: ok, err: err}
	})
	if err != nil {
		return present.View{}, false, err
	}
	if shared {
		a.loggerFromContext(ctx).Debug("refresh coalesced")
	}
	return res.view, res.ok, res.err
}

func (a *WeatherApp) refresh(ctx context.Context) (present.View, bool, error) {
	logger := a.loggerFromContext(ctx)

	if !a.locator.Enabled() {
		a.notifier.Notify(NoticeLocationOff)
		observability.RefreshesTotal.WithLabelValues("location_off").Inc()
		return present.View{}, false, ErrLocationOff
	}

	var (
		coords location.Coordinates
		fixed  bool
	)
	<-location.RequestLocation(ctx, a.locator, func(c location.Coordinates) {
		coords = c
		fixed = true
	})
	if !fixed {
		logger.Warn("no location fix", zap.String("provider", a.locator.Name()))
		observability.RefreshesTotal.WithLabelValues("no_fix").Inc()
		return present.View{}, false, ErrNoLocation
	}

	if !a.network.Available(ctx) {
		a.notifier.Notify(NoticeNoNetwork)
		observability.RefreshesTotal.WithLabelValues("offline").Inc()
		return present.View{}, false, ErrOffline
	}

	start := time.Now()
	resp, err := a.client.GetCurrentWeather(ctx, coords.Lat, coords.Lon)
	if err != nil {
		logger.Error(client.Describe(err),
			zap.String("category", string(client.CategorizeError(err))),
			zap.String("coords", coords.String()),
			zap.Error(err),
		)
		observability.RefreshesTotal.WithLabelValues("fetch_error").Inc()
		return present.View{}, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := a.cache.Save(ctx, resp); err != nil {
		logger.Error("cache save failed", zap.Error(err))
		observability.RefreshesTotal.WithLabelValues("cache_error").Inc()
		return present.View{}, false, err
	}

	view, ok := present.BindCached(ctx, a.cache, a.opts, logger)
	observability.RefreshesTotal.WithLabelValues("updated").Inc()
	logger.Info("weather refreshed",
		zap.String("name", resp.Name),
		zap.String("coords", coords.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return view, ok, nil
}
