package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"

	"dealscope.dev/dealscope/internal/globaltime"
)

const (
	defaultFetchTimeout  = 5 * time.Second
	defaultBodyByteLimit = 2 * 1024 * 1024
	defaultUserAgent     = "Dealscope/1.0 (+https://dealscope.dev; contact@dealscope.dev)"
)

// FetchOptions controls HTTP behavior shared by all site adapters.
type FetchOptions struct {
	Timeout         time.Duration
	BodyByteLimit   int64
	UserAgent       string
	MaxRetries      int
	BackoffFactor   float64
	RequestInterval time.Duration
	HTTPClient      *http.Client
}

// Fetcher performs polite page fetches: custom User-Agent, bounded body,
// exponential-backoff retries on 429/5xx, and a minimum interval between
// requests to the same domain.
type Fetcher struct {
	opts        FetchOptions
	client      *http.Client
	mu          sync.Mutex
	lastRequest map[string]time.Time
	sleep       func(time.Duration)
}

func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.BodyByteLimit <= 0 {
		opts.BodyByteLimit = defaultBodyByteLimit
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffFactor < 1 {
		opts.BackoffFactor = 2.0
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Fetcher{
		opts:        opts,
		client:      client,
		lastRequest: make(map[string]time.Time),
		sleep:       time.Sleep,
	}
}

// FetchPage retrieves the page body as a string, retrying transient failures.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	trimmed := strings.TrimSpace(pageURL)
	if trimmed == "" {
		return "", fmt.Errorf("page URL is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid page URL %q", pageURL)
	}

	f.respectRequestInterval(parsed.Host)

	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(time.Second) * math.Pow(f.opts.BackoffFactor, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			f.sleep(backoff)
		}

		body, retryable, err := f.fetchOnce(ctx, trimmed)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return "", fmt.Errorf("fetch %s: %w", trimmed, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", true, fmt.Errorf("fetch status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.BodyByteLimit))
	if err != nil {
		return "", true, fmt.Errorf("read body: %w", err)
	}

	return string(body), false, nil
}

func (f *Fetcher) respectRequestInterval(domain string) {
	if f.opts.RequestInterval <= 0 {
		return
	}

	f.mu.Lock()
	last, seen := f.lastRequest[domain]
	now := globaltime.Now()
	var wait time.Duration
	if seen {
		if elapsed := now.Sub(last); elapsed < f.opts.RequestInterval {
			wait = f.opts.RequestInterval - elapsed
		}
	}
	f.lastRequest[domain] = now.Add(wait)
	f.mu.Unlock()

	if wait > 0 {
		f.sleep(wait)
	}
}

// ExtractDescription pulls readable text from product-page HTML. Used as a
// fallback when site-specific extraction finds no description.
func ExtractDescription(html, pageURL string, maxChars int) string {
	parsed, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader([]byte(html)), parsed)
	if err != nil {
		return ""
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return ""
	}

	text := cleanText(rendered.String())
	if text == "" {
		text = cleanText(article.Excerpt())
	}
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = strings.TrimSpace(string(runes[:maxChars]))
		}
	}
	return text
}

// cleanText collapses whitespace and joins non-empty lines with single spaces.
func cleanText(raw string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(raw), " "))
}
