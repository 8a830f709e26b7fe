package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathernow/internal/cache"
	httphandler "github.com/kjstillabower/weathernow/internal/http"
	"github.com/kjstillabower/weathernow/internal/lifecycle"
)

const inFlightCheckInterval = 50 * time.Millisecond

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cached view, refreshes and icons over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer flushLogger(logger)
			if port != "" {
				cfg.ServerPort = port
			}

			c, err := wire(cfg, logger, nil, true)
			if err != nil {
				return err
			}
			defer c.Close()

			healthConfig := &httphandler.HealthConfig{
				RateLimitRPS:     cfg.RateLimitRPS,
				DegradedWindow:   cfg.DegradedWindow,
				DegradedErrorPct: cfg.DegradedErrorPct,
			}
			if pinger, ok := c.store.(cache.Pinger); ok {
				healthConfig.CachePing = pinger.Ping
			}

			var limiter *rate.Limiter
			if cfg.RateLimitRPS > 0 {
				limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
			}
			handler := httphandler.NewHandler(c.app, c.icons, healthConfig, logger)
			router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

			srv := &http.Server{
				Addr:         ":" + cfg.ServerPort,
				Handler:      router,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: cfg.RequestTimeout + 5*time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("cache_backend", cfg.CacheBackend))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return err
				}
			case <-cmd.Context().Done():
			}

			logger.Info("graceful shutdown triggered")
			lifecycle.BeginDrain()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", zap.Error(err))
			}

			logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
			if err := httphandler.WaitForInFlight(shutdownCtx, inFlightCheckInterval); err != nil {
				logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides server.port)")
	return cmd
}
