package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weathernow/internal/validation"
)

// Config holds application configuration loaded from YAML and env.
type Config struct {
	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	IconURL           string

	LocationMode    string // "static", "ip" or "off"
	LocationLat     float64
	LocationLon     float64
	LocationIPURL   string
	LocationTimeout time.Duration

	ConnectivityMode string // "interfaces", "online" or "offline"

	CacheBackend     string // "file", "memory", "sqlite", "memcached" or "redis"
	CacheDir         string
	SQLitePath       string
	MemcachedAddrs   string
	MemcachedTimeout time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	Locale   string
	Timezone string

	IconFetch bool
	IconTTL   time.Duration

	ServerPort      string
	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration

	CoalesceTimeout  time.Duration // 0 disables refresh coalescing
	DegradedWindow   time.Duration
	DegradedErrorPct int
}

type fileConfig struct {
	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		IconURL string `yaml:"icon_url"`
	} `yaml:"weather_api"`

	Location struct {
		Mode    string   `yaml:"mode"`
		Lat     *float64 `yaml:"lat"`
		Lon     *float64 `yaml:"lon"`
		IPURL   string   `yaml:"ip_url"`
		Timeout string   `yaml:"timeout"`
	} `yaml:"location"`

	Connectivity struct {
		Mode string `yaml:"mode"`
	} `yaml:"connectivity"`

	Cache struct {
		Backend    string `yaml:"backend"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		Memcached  struct {
			Addrs   string `yaml:"addrs"`
			Timeout string `yaml:"timeout"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Display struct {
		Locale   string `yaml:"locale"`
		Timezone string `yaml:"timezone"`
	} `yaml:"display"`

	Icons struct {
		Fetch *bool  `yaml:"fetch"`
		TTL   string `yaml:"ttl"`
	} `yaml:"icons"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CoalesceTimeout  string `yaml:"coalesce_timeout"`
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// ErrMissingAPIKey is returned when no weather API key is configured and the
// caller requires one.
var ErrMissingAPIKey = errors.New("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")

type loadOptions struct {
	optionalAPIKey bool
}

// LoadOption adjusts how a config is loaded.
type LoadOption func(*loadOptions)

// WithoutAPIKey lets loading succeed with an empty WeatherAPIKey, for
// commands that only read the cache.
func WithoutAPIKey() LoadOption {
	return func(o *loadOptions) { o.optionalAPIKey = true }
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// API key comes from WEATHER_API_KEY env or secrets file. Call from project root.
func Load(opts ...LoadOption) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(filepath.Join(cwd, "config"), env, opts...)
}

// LoadFrom reads {dir}/{env}.yaml and {dir}/secrets.yaml.
func LoadFrom(dir, env string, opts ...LoadOption) (*Config, error) {
	var lo loadOptions
	for _, opt := range opts {
		opt(&lo)
	}

	configPath := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		secretsPath := filepath.Join(dir, "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.WeatherAPIKey = sec.WeatherAPIKey
		}
	}
	if cfg.WeatherAPIKey == "" && !lo.optionalAPIKey {
		return nil, ErrMissingAPIKey
	}

	cfg.WeatherAPIURL = strings.TrimSpace(fc.WeatherAPI.URL)
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.IconURL = strings.TrimSpace(fc.WeatherAPI.IconURL)
	if cfg.IconURL == "" {
		cfg.IconURL = "https://openweathermap.org/img/wn/"
	}

	cfg.LocationMode = strings.TrimSpace(strings.ToLower(fc.Location.Mode))
	if cfg.LocationMode == "" {
		cfg.LocationMode = "ip"
	}
	if fc.Location.Lat != nil {
		cfg.LocationLat = *fc.Location.Lat
	}
	if fc.Location.Lon != nil {
		cfg.LocationLon = *fc.Location.Lon
	}
	cfg.LocationIPURL = strings.TrimSpace(fc.Location.IPURL)
	if cfg.LocationIPURL == "" {
		cfg.LocationIPURL = "http://ip-api.com/json"
	}
	cfg.LocationTimeout = parseDuration(fc.Location.Timeout, 5*time.Second)

	cfg.ConnectivityMode = strings.TrimSpace(strings.ToLower(fc.Connectivity.Mode))
	if cfg.ConnectivityMode == "" {
		cfg.ConnectivityMode = "interfaces"
	}

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "file"
	}
	cfg.CacheDir = strings.TrimSpace(os.Getenv("CACHE_DIR"))
	if cfg.CacheDir == "" {
		cfg.CacheDir = strings.TrimSpace(fc.Cache.Dir)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}
	cfg.SQLitePath = strings.TrimSpace(fc.Cache.SQLitePath)
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.CacheDir, "weathernow.db")
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Cache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = fc.Cache.Redis.Password
	cfg.RedisDB = fc.Cache.Redis.DB

	cfg.Locale = strings.TrimSpace(os.Getenv("WEATHERNOW_LOCALE"))
	if cfg.Locale == "" {
		cfg.Locale = strings.TrimSpace(fc.Display.Locale)
	}
	if cfg.Locale == "" {
		cfg.Locale = systemLocale()
	}
	cfg.Timezone = strings.TrimSpace(fc.Display.Timezone)

	cfg.IconFetch = true
	if fc.Icons.Fetch != nil {
		cfg.IconFetch = *fc.Icons.Fetch
	}
	cfg.IconTTL = parseDuration(fc.Icons.TTL, time.Hour)

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 5
	}
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)
	cfg.CoalesceTimeout = parseDurationOrZero(fc.Reliability.CoalesceTimeout, 0)
	if cfg.CoalesceTimeout < 0 {
		cfg.CoalesceTimeout = 0
	}
	cfg.DegradedWindow = parseDuration(fc.Reliability.DegradedWindow, time.Minute)
	cfg.DegradedErrorPct = fc.Reliability.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 || cfg.DegradedErrorPct > 100 {
		cfg.DegradedErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultCacheDir returns the per-user cache directory for weathernow, or a
// relative ".weathernow" when the OS does not report one.
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return ".weathernow"
	}
	return filepath.Join(dir, "weathernow")
}

// systemLocale reads the POSIX locale variables in precedence order.
func systemLocale() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Ensures WeatherAPITimeout is positive, RequestTimeout exceeds it, and every
// mode/backend name is known. Static locations must be real coordinates.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + cfg.LocationTimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "file", "memory", "sqlite", "memcached", "redis":
	default:
		return fmt.Errorf("cache.backend must be file, memory, sqlite, memcached or redis, got %q", cfg.CacheBackend)
	}
	switch cfg.LocationMode {
	case "ip", "off":
	case "static":
		if err := validation.ValidateCoordinates(cfg.LocationLat, cfg.LocationLon); err != nil {
			return fmt.Errorf("location: %w", err)
		}
	default:
		return fmt.Errorf("location.mode must be static, ip or off, got %q", cfg.LocationMode)
	}
	switch cfg.ConnectivityMode {
	case "interfaces", "online", "offline":
	default:
		return fmt.Errorf("connectivity.mode must be interfaces, online or offline, got %q", cfg.ConnectivityMode)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("display.timezone: %w", err)
		}
	}
	return nil
}
