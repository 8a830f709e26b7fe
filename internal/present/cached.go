package present

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/cache"
)

// BindCached binds whatever response is cached. Missing, empty or undecodable
// data returns ok=false and leaves the screen untouched.
func BindCached(ctx context.Context, wc *cache.WeatherCache, opts Options, logger *zap.Logger) (View, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resp, ok, err := wc.Load(ctx)
	if err != nil {
		logger.Warn("cached weather unavailable", zap.Error(err))
		return View{}, false
	}
	if !ok {
		return View{}, false
	}
	return Bind(resp, opts), true
}
