package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/lifecycle"
	"github.com/kjstillabower/weathernow/internal/present"
	"github.com/kjstillabower/weathernow/internal/service"
	"github.com/kjstillabower/weathernow/internal/traffic"
)

// WeatherApp is the flow the handlers drive. *service.WeatherApp implements it.
type WeatherApp interface {
	Startup(ctx context.Context) (present.View, bool)
	Refresh(ctx context.Context) (present.View, bool, error)
}

// IconSource loads condition icons. *present.IconLoader implements it.
type IconSource interface {
	Load(ctx context.Context, code string) present.Icon
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	RateLimitRPS     int
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CachePing, when set, probes the preference store.
	CachePing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	app              WeatherApp
	icons            IconSource
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(app WeatherApp, icons IconSource, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		app:          app,
		icons:        icons,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetWeather handles GET /weather. Serves the cached view without fetching.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	view, ok := h.app.Startup(r.Context())
	if !ok {
		writeError(w, r, http.StatusNotFound, "NO_DATA", "No weather data cached yet")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostRefresh handles POST /weather/refresh.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.app.Refresh(r.Context())
	if err != nil {
		writeRefreshError(w, r, err)
		return
	}
	if !ok {
		traffic.Record(traffic.Error)
		writeError(w, r, http.StatusInternalServerError, "CACHE_ERROR", "Weather was fetched but could not be read back")
		return
	}
	traffic.Record(traffic.Success)
	writeJSON(w, http.StatusOK, view)
}

var iconCodePattern = regexp.MustCompile(`^[0-9]{2}[dn]$`)

// GetIcon handles GET /weather/icon?code=10d. Without a code it serves the
// icon of the cached view.
func (h *Handler) GetIcon(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		view, ok := h.app.Startup(r.Context())
		if !ok || view.IconCode == "" {
			writeError(w, r, http.StatusNotFound, "NO_DATA", "No weather data cached yet")
			return
		}
		code = view.IconCode
	}
	if !iconCodePattern.MatchString(code) {
		writeError(w, r, http.StatusBadRequest, "INVALID_ICON", "icon code must look like 10d or 01n")
		return
	}

	icon := h.icons.Load(r.Context(), code)
	if !icon.Remote() {
		w.Header().Set("X-Placeholder-Icon", string(icon.Placeholder))
		writeError(w, r, http.StatusNotFound, "ICON_UNAVAILABLE", "Remote icon unavailable; use placeholder")
		return
	}
	w.Header().Set("Content-Type", icon.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(icon.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Data)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	} else {
		checks["weatherApi"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing(r.Context()) == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	body := map[string]interface{}{
		"status":    result.status,
		"service":   "weathernow",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if since, ok := lifecycle.DrainingSince(); ok {
		body["drainingSince"] = since.UTC().Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, body)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if phase := lifecycle.Current(); phase == lifecycle.Draining {
		return healthResult{phase.String(), http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil || h.healthConfig.DegradedWindow <= 0 {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	counts := traffic.Window(h.healthConfig.DegradedWindow)
	allowed := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.DegradedWindow.Seconds()
	if h.healthConfig.RateLimitRPS > 0 && float64(counts.Denied) > allowed {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "rate_limit_denials"}
	}
	if h.healthConfig.DegradedErrorPct > 0 && counts.Success+counts.Error > 0 &&
		counts.ErrorPct() >= h.healthConfig.DegradedErrorPct {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID, _ := r.Context().Value("correlation_id").(string)
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeRefreshError maps a refresh failure to a status: notices and a missing
// fix are 409, upstream failures 502, timeouts 504, anything else 500.
func writeRefreshError(w http.ResponseWriter, r *http.Request, err error) {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("refresh failed", zap.Error(err))
	}
	if notice, ok := service.NoticeFor(err); ok {
		writeError(w, r, http.StatusConflict, notice.Code(), string(notice))
		return
	}
	switch {
	case errors.Is(err, service.ErrNoLocation):
		writeError(w, r, http.StatusConflict, "NO_LOCATION", "Location could not be determined")
	case errors.Is(err, service.ErrFetchFailed):
		traffic.Record(traffic.Error)
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", client.Describe(err))
	case errors.Is(err, context.DeadlineExceeded):
		traffic.Record(traffic.Error)
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Refresh timed out")
	default:
		traffic.Record(traffic.Error)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to refresh weather")
	}
}
