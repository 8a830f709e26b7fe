// Package cache persists the last weather response in a string key-value store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kjstillabower/weathernow/internal/config"
)

// Namespace groups every key this app writes, like a named preferences file.
const Namespace = "WeatherAppPreference"

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store is a persistent string key-value store. GetString returns ok=false
// when the key has never been written.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
	Close() error
}

// Pinger is implemented by network-backed stores so health checks can probe them.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the store selected by cache.backend.
func New(cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.CacheDir)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "memcached":
		return NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, 0)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// namespacedKey is the flat key used by shared network stores.
func namespacedKey(key string) string {
	return Namespace + ":" + key
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
