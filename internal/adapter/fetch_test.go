package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(opts FetchOptions) *Fetcher {
	f := NewFetcher(opts)
	f.sleep = func(time.Duration) {}
	return f
}

func TestFetchPage(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := newTestFetcher(FetchOptions{UserAgent: "test-agent/1.0"})
	body, err := f.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<html>ok</html>" {
		t.Fatalf("unexpected body: %q", body)
	}
	if gotUserAgent != "test-agent/1.0" {
		t.Fatalf("unexpected user agent: %q", gotUserAgent)
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	f := newTestFetcher(FetchOptions{MaxRetries: 3})
	body, err := f.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "recovered" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(FetchOptions{MaxRetries: 3})
	if _, err := f.FetchPage(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", got)
	}
}

func TestFetchPageGivesUpAfterRetryBudget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := newTestFetcher(FetchOptions{MaxRetries: 2})
	_, err := f.FetchPage(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", got)
	}
}

func TestFetchPageBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	f := newTestFetcher(FetchOptions{BodyByteLimit: 10})
	body, err := f.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 10 {
		t.Fatalf("expected truncated body of 10 bytes, got %d", len(body))
	}
}

func TestFetchPageRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(FetchOptions{})
	if _, err := f.FetchPage(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := f.FetchPage(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}
