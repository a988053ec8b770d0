// Package config loads runtime settings from NETBOUND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendBigcache  = "bigcache"
	BackendRistretto = "ristretto"
	BackendRedis     = "redis"

	LoggerZap    = "zap"
	LoggerLogrus = "logrus"
	LoggerSlog   = "slog"
)

type Config struct {
	BaseURL        string        `env:"NETBOUND_BASE_URL" envDefault:"https://open-api.xyz/api/"`
	NetworkTimeout time.Duration `env:"NETBOUND_NETWORK_TIMEOUT" envDefault:"6s"`

	// Artificial delays for watching loading states by hand.
	NetworkDelay time.Duration `env:"NETBOUND_NETWORK_DELAY" envDefault:"0s"`
	CacheDelay   time.Duration `env:"NETBOUND_CACHE_DELAY" envDefault:"0s"`

	CacheBackend  string        `env:"NETBOUND_CACHE_BACKEND" envDefault:"bigcache"`
	RedisAddr     string        `env:"NETBOUND_REDIS_ADDR" envDefault:"localhost:6379"`
	SearchMaxAge  time.Duration `env:"NETBOUND_SEARCH_MAX_AGE" envDefault:"30m"`
	CacheFirst    bool          `env:"NETBOUND_CACHE_FIRST" envDefault:"true"`
	Logger        string        `env:"NETBOUND_LOGGER" envDefault:"zap"`
	LogLevel      string        `env:"NETBOUND_LOG_LEVEL" envDefault:"info"`
	HookQueueSize int           `env:"NETBOUND_HOOK_QUEUE" envDefault:"256"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	c.Logger = strings.ToLower(strings.TrimSpace(c.Logger))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: NETBOUND_BASE_URL %q must be an absolute url", c.BaseURL))
	}
	if c.NetworkTimeout <= 0 {
		errs = append(errs, errors.New("config: NETBOUND_NETWORK_TIMEOUT must be positive"))
	}
	if c.NetworkDelay < 0 || c.CacheDelay < 0 {
		errs = append(errs, errors.New("config: delays must not be negative"))
	}
	switch c.CacheBackend {
	case BackendBigcache, BackendRistretto:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("config: NETBOUND_REDIS_ADDR is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown NETBOUND_CACHE_BACKEND %q", c.CacheBackend))
	}
	switch c.Logger {
	case LoggerZap, LoggerLogrus, LoggerSlog:
	default:
		errs = append(errs, fmt.Errorf("config: unknown NETBOUND_LOGGER %q", c.Logger))
	}
	return errors.Join(errs...)
}
