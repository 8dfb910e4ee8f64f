package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DS_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DS_DB_MAX_CONNS" default:"8"`

	ScraperTimeoutSeconds int     `envconfig:"SCRAPER_TIMEOUT_SECONDS" default:"5"`
	ScraperUserAgent      string  `envconfig:"SCRAPER_USER_AGENT" default:"Dealscope/1.0 (+https://dealscope.dev; contact@dealscope.dev)"`
	SiteRequestIntervalMS int     `envconfig:"SITE_REQUEST_INTERVAL_MS" default:"1000"`
	MaxRetries            int     `envconfig:"MAX_RETRIES" default:"3"`
	RetryBackoffFactor    float64 `envconfig:"RETRY_BACKOFF_FACTOR" default:"2.0"`

	MaxWorkers int `envconfig:"MAX_WORKERS" default:"5"`

	RateLimitPerMinute     int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"10"`
	RateLimitWindowSeconds int `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`

	CacheTTLSeconds   int `envconfig:"CACHE_TTL_SECONDS" default:"300"`
	CacheMaxSize      int `envconfig:"CACHE_MAX_SIZE" default:"100"`
	ProductTTLSeconds int `envconfig:"PRODUCT_TTL_SECONDS" default:"300"`

	FuzzyMatchThreshold float64 `envconfig:"FUZZY_MATCH_THRESHOLD" default:"0.85"`
	DefaultCurrency     string  `envconfig:"DEFAULT_CURRENCY" default:"INR"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DS_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DS_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DS_DB_MIN_CONNS (%d) cannot exceed DS_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ScraperTimeoutSeconds < 1 {
		return fmt.Errorf("SCRAPER_TIMEOUT_SECONDS must be >= 1")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be >= 1")
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 1")
	}
	if c.RateLimitWindowSeconds < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be >= 1")
	}
	if c.CacheMaxSize < 1 {
		return fmt.Errorf("CACHE_MAX_SIZE must be >= 1")
	}
	if c.CacheTTLSeconds < 1 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be >= 1")
	}
	if c.ProductTTLSeconds < 1 {
		return fmt.Errorf("PRODUCT_TTL_SECONDS must be >= 1")
	}
	if c.FuzzyMatchThreshold <= 0 || c.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("FUZZY_MATCH_THRESHOLD must be in (0, 1]")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE (%d)", c.MaxPageSize)
	}
	return nil
}

// ScraperTimeout returns the per-request fetch timeout.
func (c *Config) ScraperTimeout() time.Duration {
	return time.Duration(c.ScraperTimeoutSeconds) * time.Second
}

// SiteRequestInterval returns the minimum delay between requests to one domain.
func (c *Config) SiteRequestInterval() time.Duration {
	return time.Duration(c.SiteRequestIntervalMS) * time.Millisecond
}

// RateLimitWindow returns the sliding-window length for admission control.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// CacheTTL returns the default result-cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ProductTTL returns the stored-product freshness window.
func (c *Config) ProductTTL() time.Duration {
	return time.Duration(c.ProductTTLSeconds) * time.Second
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
