package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the serve surface.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeather API call rate by status label. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request.
	WeatherAPIDuration *prometheus.HistogramVec

	// Location lookups by provider and result.
	LocationRequestsTotal *prometheus.CounterVec

	// Preference store operations (get/put) by result (hit, miss, ok, error).
	CacheOperationsTotal *prometheus.CounterVec

	// Refresh flow outcomes (updated, location_off, no_fix, offline, fetch_error, cache_error).
	RefreshesTotal *prometheus.CounterVec

	// User-facing notices by kind.
	NoticesTotal *prometheus.CounterVec

	// Icon loads by source (remote, memory, placeholder).
	IconLoadsTotal *prometheus.CounterVec

	// Rate limit denials on the refresh endpoint.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeather API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	LocationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locationRequestsTotal",
			Help: "Total number of one-shot location requests",
		},
		[]string{"provider", "result"},
	)
	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheOperationsTotal",
			Help: "Preference store operations by operation and result",
		},
		[]string{"operation", "result"},
	)
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshesTotal",
			Help: "Refresh flow runs by outcome",
		},
		[]string{"outcome"},
	)
	NoticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticesTotal",
			Help: "User-facing notices by kind",
		},
		[]string{"kind"},
	)
	IconLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iconLoadsTotal",
			Help: "Weather icon loads by source",
		},
		[]string{"source"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of refresh requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration,
		LocationRequestsTotal,
		CacheOperationsTotal,
		RefreshesTotal, NoticesTotal,
		IconLoadsTotal,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
