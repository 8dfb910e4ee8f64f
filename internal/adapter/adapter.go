package adapter

import (
	"context"
	"strings"
)

// RawListing is one product listing exactly as a source reported it.
// Fields hold raw source text; parsing and normalization happen downstream.
type RawListing struct {
	Source        string `json:"source"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Rating        string `json:"rating,omitempty"`
	ReviewCount   string `json:"review_count,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	Availability  string `json:"availability,omitempty"`
	Description   string `json:"description,omitempty"`
}

// SourceAdapter is the uniform capability contract over one external site.
type SourceAdapter interface {
	// Name identifies the source in results and stored records.
	Name() string
	// Domains lists the hostnames this adapter claims.
	Domains() []string
	// CanHandle reports whether this adapter recognizes the product URL.
	CanHandle(url string) bool
	// FetchPage retrieves the raw HTML of a product page.
	FetchPage(ctx context.Context, url string) (string, error)
	// ParseProduct extracts a listing from product-page HTML.
	ParseProduct(html, url string) (RawListing, error)
	// Search runs a query against the site and returns up to maxResults listings.
	Search(ctx context.Context, query string, maxResults int) ([]RawListing, error)
}

// Registry holds adapters in registration order. URL dispatch picks the first
// adapter whose CanHandle returns true.
type Registry struct {
	adapters []SourceAdapter
}

func NewRegistry(adapters ...SourceAdapter) *Registry {
	return &Registry{adapters: adapters}
}

// All returns the registered adapters in registration order.
func (r *Registry) All() []SourceAdapter {
	if r == nil {
		return nil
	}
	return r.adapters
}

// ForURL returns the first adapter that claims the URL, or nil.
func (r *Registry) ForURL(url string) SourceAdapter {
	if r == nil {
		return nil
	}
	lowered := strings.ToLower(strings.TrimSpace(url))
	for _, a := range r.adapters {
		if a.CanHandle(lowered) {
			return a
		}
	}
	return nil
}

// domainMatch reports whether the URL mentions any of the given domains.
func domainMatch(url string, domains []string) bool {
	lowered := strings.ToLower(url)
	for _, domain := range domains {
		if strings.Contains(lowered, domain) {
			return true
		}
	}
	return false
}
