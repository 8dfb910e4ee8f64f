package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dealscope.dev/dealscope/internal/adapter"
	"dealscope.dev/dealscope/internal/cache"
	"dealscope.dev/dealscope/internal/config"
	"dealscope.dev/dealscope/internal/db"
	"dealscope.dev/dealscope/internal/dedup"
	"dealscope.dev/dealscope/internal/dispatch"
	"dealscope.dev/dealscope/internal/freshness"
	"dealscope.dev/dealscope/internal/logging"
	"dealscope.dev/dealscope/internal/ratelimit"
	"dealscope.dev/dealscope/internal/service"
	listingschema "dealscope.dev/dealscope/schema"
)

// runtime bundles everything a command needs after bootstrap.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *db.Pool
	svc     *service.Service
	limiter *ratelimit.Limiter
}

func (r *runtime) Close() {
	if r != nil && r.pool != nil {
		_ = r.pool.Close()
	}
}

// buildRuntime loads config, connects to the database, and assembles the
// full pipeline behind a Service.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	fetcher := adapter.NewFetcher(adapter.FetchOptions{
		Timeout:         cfg.ScraperTimeout(),
		UserAgent:       cfg.ScraperUserAgent,
		MaxRetries:      cfg.MaxRetries,
		BackoffFactor:   cfg.RetryBackoffFactor,
		RequestInterval: cfg.SiteRequestInterval(),
	})
	registry := adapter.NewRegistry(
		adapter.NewAmazon(fetcher),
		adapter.NewFlipkart(fetcher),
		adapter.NewSnapdeal(fetcher),
	)

	validator, err := listingschema.NewValidator()
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("build listing validator: %w", err)
	}

	svc := service.New(
		pool,
		dispatch.New(registry, cfg.MaxWorkers, logger),
		dedup.New(cfg.FuzzyMatchThreshold),
		cache.New(cfg.CacheMaxSize, cfg.CacheTTL()),
		freshness.NewPolicy(cfg.ProductTTL()),
		validator,
		logger,
		service.Options{
			DefaultCurrency: cfg.DefaultCurrency,
			MaxPerSource:    cfg.DefaultPageSize,
		},
	)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		svc:     svc,
		limiter: ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitWindow()),
	}, nil
}
