// Package http serves the cached weather view, the refresh flow and icons.
package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// NewRouter mounts every route. Refresh is rate limited; refresh and icon
// requests get the request timeout.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(TimeoutMiddleware(requestTimeout))
	weatherRouter.HandleFunc("/icon", h.GetIcon).Methods(http.MethodGet)
	weatherRouter.Handle("/refresh", RateLimitMiddleware(limiter)(http.HandlerFunc(h.PostRefresh))).Methods(http.MethodPost)
	return router
}
