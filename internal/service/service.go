// Package service wires the scraping, normalization, deduplication, caching,
// and storage layers into the operations the API exposes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dealscope.dev/dealscope/internal/adapter"
	"dealscope.dev/dealscope/internal/cache"
	"dealscope.dev/dealscope/internal/db"
	"dealscope.dev/dealscope/internal/dedup"
	"dealscope.dev/dealscope/internal/dispatch"
	"dealscope.dev/dealscope/internal/freshness"
	"dealscope.dev/dealscope/internal/globaltime"
	"dealscope.dev/dealscope/internal/normalize"
	listingschema "dealscope.dev/dealscope/schema"
)

// MaxCompareProducts bounds one comparison request.
const MaxCompareProducts = 10

// Store is the persistence surface the service needs.
type Store interface {
	UpsertProduct(ctx context.Context, product db.Product) (*db.Product, bool, error)
	GetProductByID(ctx context.Context, productID int64) (*db.Product, error)
	GetProductByURL(ctx context.Context, url string) (*db.Product, error)
	GetProductsByIDs(ctx context.Context, productIDs []int64) ([]db.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]db.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]db.Product, error)
	RecordPriceSample(ctx context.Context, sample db.PriceSample) error
	GetPriceHistory(ctx context.Context, productID int64, limit int) ([]db.PriceSample, error)
	GetCatalogStats(ctx context.Context) (*db.CatalogStats, error)
}

// Options carries the tunables the service needs beyond its collaborators.
type Options struct {
	DefaultCurrency string
	MaxPerSource    int
}

type Service struct {
	store        Store
	dispatcher   *dispatch.Dispatcher
	deduplicator *dedup.Deduplicator
	results      *cache.Cache
	policy       freshness.Policy
	validator    *listingschema.Validator
	logger       zerolog.Logger

	defaultCurrency string
	maxPerSource    int
}

func New(
	store Store,
	dispatcher *dispatch.Dispatcher,
	deduplicator *dedup.Deduplicator,
	results *cache.Cache,
	policy freshness.Policy,
	validator *listingschema.Validator,
	logger zerolog.Logger,
	opts Options,
) *Service {
	currency := strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	maxPerSource := opts.MaxPerSource
	if maxPerSource <= 0 {
		maxPerSource = 20
	}

	return &Service{
		store:           store,
		dispatcher:      dispatcher,
		deduplicator:    deduplicator,
		results:         results,
		policy:          policy,
		validator:       validator,
		logger:          logger,
		defaultCurrency: currency,
		maxPerSource:    maxPerSource,
	}
}

// SourceStatus reports one source's contribution to a search.
type SourceStatus struct {
	Source   string `json:"source"`
	Success  bool   `json:"success"`
	Listings int    `json:"listings"`
	Error    string `json:"error,omitempty"`
}

// SearchResult is the aggregated outcome of a live multi-source search.
type SearchResult struct {
	Query         string                    `json:"query"`
	Products      []dedup.AggregatedProduct `json:"products"`
	Sources       []SourceStatus            `json:"sources"`
	TotalListings int                       `json:"total_listings"`
	FromCache     bool                      `json:"from_cache"`
	FromCatalog   bool                      `json:"from_catalog"`
	SearchedAt    time.Time                 `json:"searched_at"`
}

// Search fans the query out to every source, normalizes and merges the
// listings, and persists each offer. Identical queries within the cache TTL
// are served from cache. When every source comes back empty the stored
// catalog is searched instead.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("search query is required")
	}

	key := searchCacheKey(trimmed)
	if cached, ok := s.results.Get(key); ok {
		if result, ok := cached.(*SearchResult); ok {
			copied := *result
			copied.FromCache = true
			return &copied, nil
		}
	}

	sourceResults := s.dispatcher.SearchAll(ctx, trimmed, s.maxPerSource)

	normalized := make([]normalize.NormalizedProduct, 0, len(sourceResults)*4)
	statuses := make([]SourceStatus, 0, len(sourceResults))
	for _, sr := range sourceResults {
		status := SourceStatus{Source: sr.Source, Success: sr.Success, Listings: len(sr.Listings)}
		if sr.Err != nil {
			status.Error = sr.Err.Error()
		}
		statuses = append(statuses, status)

		for _, listing := range sr.Listings {
			normalized = append(normalized, normalize.Listing(listing, s.defaultCurrency))
		}
	}

	result := &SearchResult{
		Query:         trimmed,
		Sources:       statuses,
		TotalListings: len(normalized),
		SearchedAt:    globaltime.Now(),
	}

	if len(normalized) == 0 {
		catalog, err := s.searchCatalog(ctx, trimmed)
		if err != nil {
			return nil, err
		}
		result.Products = catalog
		result.FromCatalog = true
		return result, nil
	}

	result.Products = s.deduplicator.Merge(normalized)
	s.persistListings(ctx, normalized)
	s.results.Set(key, result)

	return result, nil
}

// ProductDetail is one stored product with its price history and a staleness
// verdict relative to the freshness policy.
type ProductDetail struct {
	Product      db.Product       `json:"product"`
	PriceHistory []db.PriceSample `json:"price_history"`
	IsStale      bool             `json:"is_stale"`
	Refreshed    bool             `json:"refreshed"`
}

// GetProductByID loads a stored product. A stale record is re-scraped
// synchronously before being served; if the refresh fails the stale copy is
// returned and flagged.
func (s *Service) GetProductByID(ctx context.Context, productID int64) (*ProductDetail, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.detailWithFreshness(ctx, product)
}

// GetProductByURL loads the product stored for the exact URL; unknown URLs
// are scraped on demand.
func (s *Service) GetProductByURL(ctx context.Context, url string) (*ProductDetail, error) {
	product, err := s.store.GetProductByURL(ctx, url)
	if db.IsNoRows(err) {
		scraped, scrapeErr := s.ScrapeURL(ctx, url)
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		return s.buildDetail(ctx, scraped, false, true)
	}
	if err != nil {
		return nil, err
	}
	return s.detailWithFreshness(ctx, product)
}

// ScrapeURL fetches one product page through its adapter and stores the
// normalized result.
func (s *Service) ScrapeURL(ctx context.Context, url string) (*db.Product, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, fmt.Errorf("url is required")
	}

	listing, err := s.dispatcher.ScrapeOne(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	normalized := normalize.Listing(listing, s.defaultCurrency)
	stored, created, err := s.store.UpsertProduct(ctx, productRecord(normalized))
	if err != nil {
		return nil, fmt.Errorf("store scraped product: %w", err)
	}

	s.logger.Info().
		Str("source", normalized.Source).
		Str("url", normalized.URL).
		Bool("created", created).
		Msg("scraped product stored")
	return stored, nil
}

// BatchOutcome is the result of scraping one URL in a batch request.
type BatchOutcome struct {
	URL     string      `json:"url"`
	Success bool        `json:"success"`
	Product *db.Product `json:"product,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ScrapeBatch scrapes every URL concurrently and stores each success. Per-URL
// failures are reported in place, never propagated.
func (s *Service) ScrapeBatch(ctx context.Context, urls []string) []BatchOutcome {
	results := s.dispatcher.ScrapeBatch(ctx, urls)

	outcomes := make([]BatchOutcome, 0, len(results))
	for _, br := range results {
		outcome := BatchOutcome{URL: br.URL, Success: br.Success}
		if br.Err != nil {
			outcome.Success = false
			outcome.Error = br.Err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		normalized := normalize.Listing(br.Listing, s.defaultCurrency)
		stored, _, err := s.store.UpsertProduct(ctx, productRecord(normalized))
		if err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Product = stored
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// IngestListing validates an externally collected listing document against
// the listing schema, normalizes it, and stores it.
func (s *Service) IngestListing(ctx context.Context, payload []byte) (*db.Product, error) {
	if err := s.validator.ValidateBytes(payload); err != nil {
		return nil, err
	}

	var raw adapter.RawListing
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode listing payload: %w", err)
	}

	normalized := normalize.Listing(raw, s.defaultCurrency)
	stored, created, err := s.store.UpsertProduct(ctx, productRecord(normalized))
	if err != nil {
		return nil, fmt.Errorf("store ingested listing: %w", err)
	}

	s.logger.Info().
		Str("source", normalized.Source).
		Str("url", normalized.URL).
		Bool("created", created).
		Msg("external listing ingested")
	return stored, nil
}

// SupportedSites lists every registered source.
func (s *Service) SupportedSites() []dispatch.SiteInfo {
	return s.dispatcher.SupportedSites()
}

// ServiceStats combines catalog and cache statistics.
type ServiceStats struct {
	Catalog *db.CatalogStats `json:"catalog"`
	Cache   cache.Stats      `json:"cache"`
	Sites   int              `json:"supported_sites"`
}

func (s *Service) Stats(ctx context.Context) (*ServiceStats, error) {
	catalog, err := s.store.GetCatalogStats(ctx)
	if err != nil {
		return nil, err
	}
	return &ServiceStats{
		Catalog: catalog,
		Cache:   s.results.Stats(),
		Sites:   len(s.dispatcher.SupportedSites()),
	}, nil
}

// ListCatalog pages through every stored product.
func (s *Service) ListCatalog(ctx context.Context, limit, offset int) ([]db.Product, error) {
	return s.store.ListProducts(ctx, limit, offset)
}

// PriceHistory returns stored samples for one product, newest first.
func (s *Service) PriceHistory(ctx context.Context, productID int64, limit int) ([]db.PriceSample, error) {
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.GetPriceHistory(ctx, productID, limit)
}

func (s *Service) detailWithFreshness(ctx context.Context, product *db.Product) (*ProductDetail, error) {
	if !s.policy.IsStale(product.UpdatedAt) {
		return s.buildDetail(ctx, product, false, false)
	}

	refreshed, err := s.refreshProduct(ctx, product)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("product_id", product.ProductID).
			Str("url", product.URL).
			Msg("stale product refresh failed, serving stored copy")
		return s.buildDetail(ctx, product, true, false)
	}
	return s.buildDetail(ctx, refreshed, false, true)
}

func (s *Service) refreshProduct(ctx context.Context, product *db.Product) (*db.Product, error) {
	listing, err := s.dispatcher.ScrapeOne(ctx, product.URL)
	if err != nil {
		return nil, err
	}

	normalized := normalize.Listing(listing, s.defaultCurrency)
	stored, _, err := s.store.UpsertProduct(ctx, productRecord(normalized))
	if err != nil {
		return nil, fmt.Errorf("store refreshed product: %w", err)
	}
	return stored, nil
}

func (s *Service) buildDetail(ctx context.Context, product *db.Product, stale, refreshed bool) (*ProductDetail, error) {
	history, err := s.store.GetPriceHistory(ctx, product.ProductID, 100)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return &ProductDetail{
		Product:      *product,
		PriceHistory: history,
		IsStale:      stale,
		Refreshed:    refreshed,
	}, nil
}

// persistListings stores every normalized listing; a storage failure on one
// listing is logged and skipped so a live search still returns its results.
func (s *Service) persistListings(ctx context.Context, listings []normalize.NormalizedProduct) {
	for _, listing := range listings {
		if listing.URL == "" || listing.Title == "" {
			continue
		}
		if _, _, err := s.store.UpsertProduct(ctx, productRecord(listing)); err != nil {
			s.logger.Warn().Err(err).
				Str("source", listing.Source).
				Str("url", listing.URL).
				Msg("persist search listing failed")
		}
	}
}

// searchCatalog serves a search from stored products, each as a standalone
// aggregated record.
func (s *Service) searchCatalog(ctx context.Context, query string) ([]dedup.AggregatedProduct, error) {
	products, err := s.store.SearchProducts(ctx, query, 50)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	aggregated := make([]dedup.AggregatedProduct, 0, len(products))
	for _, product := range products {
		aggregated = append(aggregated, catalogAggregate(product))
	}
	return aggregated, nil
}

func catalogAggregate(product db.Product) dedup.AggregatedProduct {
	offer := dedup.Offer{
		Source:        product.Source,
		URL:           product.URL,
		Title:         product.Title,
		Price:         product.Price,
		OriginalPrice: product.OriginalPrice,
		Currency:      product.Currency,
		Rating:        product.Rating,
		RatingCount:   product.RatingCount,
	}
	if product.Availability != nil {
		offer.Availability = *product.Availability
	}

	aggregated := dedup.AggregatedProduct{
		URL:             product.URL,
		Title:           product.Title,
		CanonicalTitle:  product.CanonicalTitle,
		Source:          product.Source,
		Price:           product.Price,
		OriginalPrice:   product.OriginalPrice,
		BestPrice:       product.Price,
		BestPriceSource: product.Source,
		Currency:        product.Currency,
		Rating:          product.Rating,
		RatingCount:     product.RatingCount,
		MatchCount:      1,
		Sources:         []dedup.Offer{offer},
	}
	if product.Availability != nil {
		aggregated.Availability = *product.Availability
	}
	if product.ImageURL != nil {
		aggregated.ImageURL = *product.ImageURL
	}
	if product.Description != nil {
		aggregated.Description = *product.Description
	}
	if product.Language != nil {
		aggregated.Language = *product.Language
	}
	return aggregated
}

func productRecord(n normalize.NormalizedProduct) db.Product {
	record := db.Product{
		URL:            n.URL,
		Title:          n.Title,
		CanonicalTitle: n.CanonicalTitle,
		Source:         n.Source,
		Price:          n.Price,
		OriginalPrice:  n.OriginalPrice,
		Currency:       n.Currency,
		Rating:         n.Rating,
		RatingCount:    n.RatingCount,
	}
	if n.ImageURL != "" {
		record.ImageURL = &n.ImageURL
	}
	if n.Availability != "" {
		record.Availability = &n.Availability
	}
	if n.Description != "" {
		record.Description = &n.Description
	}
	if n.Language != "" {
		record.Language = &n.Language
	}
	return record
}

// searchCacheKey folds case and whitespace so trivially different spellings
// of the same query share a cache entry.
func searchCacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
