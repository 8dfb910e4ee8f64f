package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"dealscope.dev/dealscope/internal/adapter"
)

// ErrUnsupportedSource means no registered adapter claims the given URL.
var ErrUnsupportedSource = errors.New("no adapter supports this URL")

const defaultWorkers = 5

// SourceResult is the outcome of one adapter's search. A failed source carries
// Success=false and Err; it never aborts sibling sources.
type SourceResult struct {
	Source   string
	Success  bool
	Listings []adapter.RawListing
	Err      error
}

// BatchResult is the outcome of scraping one URL in a batch.
type BatchResult struct {
	URL     string
	Success bool
	Listing adapter.RawListing
	Err     error
}

// Dispatcher fans queries out to every registered adapter through a fixed-size
// worker pool and joins all results before returning.
type Dispatcher struct {
	registry *adapter.Registry
	workers  int
	logger   zerolog.Logger
}

func New(registry *adapter.Registry, workers int, logger zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		registry: registry,
		workers:  workers,
		logger:   logger,
	}
}

// SearchAll runs the query against every registered adapter concurrently and
// blocks until every task has completed or failed. Result order is not
// specified; callers needing determinism must sort.
func (d *Dispatcher) SearchAll(ctx context.Context, query string, maxPerSource int) []SourceResult {
	adapters := d.registry.All()
	if len(adapters) == 0 {
		return nil
	}

	tasks := make(chan adapter.SourceAdapter)
	resultCh := make(chan SourceResult, len(adapters))

	var wg sync.WaitGroup
	for i := 0; i < d.poolSize(len(adapters)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range tasks {
				resultCh <- d.searchOne(ctx, a, query, maxPerSource)
			}
		}()
	}

	for _, a := range adapters {
		tasks <- a
	}
	close(tasks)
	wg.Wait()
	close(resultCh)

	results := make([]SourceResult, 0, len(adapters))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

// ScrapeOne resolves the first adapter claiming the URL and scrapes it.
func (d *Dispatcher) ScrapeOne(ctx context.Context, url string) (adapter.RawListing, error) {
	a := d.registry.ForURL(url)
	if a == nil {
		return adapter.RawListing{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, url)
	}
	return d.scrapeURL(ctx, a, url)
}

// ScrapeBatch scrapes each URL through the worker pool. A failure on one URL
// is reported in its own slot and never affects the others.
func (d *Dispatcher) ScrapeBatch(ctx context.Context, urls []string) []BatchResult {
	if len(urls) == 0 {
		return nil
	}

	tasks := make(chan string)
	resultCh := make(chan BatchResult, len(urls))

	var wg sync.WaitGroup
	for i := 0; i < d.poolSize(len(urls)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range tasks {
				listing, err := d.ScrapeOne(ctx, url)
				if err != nil {
					resultCh <- BatchResult{URL: url, Success: false, Err: err}
					continue
				}
				resultCh <- BatchResult{URL: url, Success: true, Listing: listing}
			}
		}()
	}

	for _, url := range urls {
		tasks <- url
	}
	close(tasks)
	wg.Wait()
	close(resultCh)

	results := make([]BatchResult, 0, len(urls))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

// SupportedSites describes every registered adapter.
func (d *Dispatcher) SupportedSites() []SiteInfo {
	adapters := d.registry.All()
	sites := make([]SiteInfo, 0, len(adapters))
	for _, a := range adapters {
		sites = append(sites, SiteInfo{Name: a.Name(), Domains: a.Domains()})
	}
	return sites
}

// SiteInfo summarizes one registered source.
type SiteInfo struct {
	Name    string   `json:"name"`
	Domains []string `json:"domains"`
}

func (d *Dispatcher) searchOne(ctx context.Context, a adapter.SourceAdapter, query string, maxPerSource int) (result SourceResult) {
	result.Source = a.Name()

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Listings = nil
			result.Err = fmt.Errorf("adapter %s panicked: %v", a.Name(), r)
			d.logger.Error().Str("source", a.Name()).Interface("panic", r).Msg("search task panicked")
		}
	}()

	listings, err := a.Search(ctx, query, maxPerSource)
	if err != nil {
		d.logger.Warn().Err(err).Str("source", a.Name()).Str("query", query).Msg("source search failed")
		result.Success = false
		result.Err = err
		return result
	}

	d.logger.Debug().Str("source", a.Name()).Int("listings", len(listings)).Msg("source search completed")
	result.Success = true
	result.Listings = listings
	return result
}

func (d *Dispatcher) scrapeURL(ctx context.Context, a adapter.SourceAdapter, url string) (listing adapter.RawListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = adapter.RawListing{}
			err = fmt.Errorf("adapter %s panicked: %v", a.Name(), r)
			d.logger.Error().Str("source", a.Name()).Str("url", url).Interface("panic", r).Msg("scrape task panicked")
		}
	}()

	html, err := a.FetchPage(ctx, url)
	if err != nil {
		return adapter.RawListing{}, fmt.Errorf("fetch page: %w", err)
	}

	listing, err = a.ParseProduct(html, url)
	if err != nil {
		return adapter.RawListing{}, fmt.Errorf("parse product: %w", err)
	}
	return listing, nil
}

func (d *Dispatcher) poolSize(taskCount int) int {
	if taskCount < d.workers {
		return taskCount
	}
	return d.workers
}
