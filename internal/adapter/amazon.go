package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const amazonBaseURL = "https://www.amazon.in"

var (
	amazonTitlePattern     = regexp.MustCompile(`(?s)<span[^>]*id="productTitle"[^>]*>(.*?)</span>`)
	amazonPricePattern     = regexp.MustCompile(`(?s)<span[^>]*class="a-price-whole"[^>]*>(.*?)</span>`)
	amazonOfferPattern     = regexp.MustCompile(`(?s)<span[^>]*class="a-offscreen"[^>]*>(.*?)</span>`)
	amazonStrikePattern    = regexp.MustCompile(`(?s)<span[^>]*data-a-strike="true"[^>]*>.*?<span[^>]*class="a-offscreen"[^>]*>(.*?)</span>`)
	amazonRatingPattern    = regexp.MustCompile(`(?s)<span[^>]*class="a-icon-alt"[^>]*>(.*?)</span>`)
	amazonReviewsPattern   = regexp.MustCompile(`(?s)<span[^>]*id="acrCustomerReviewText"[^>]*>(.*?)</span>`)
	amazonStockPattern     = regexp.MustCompile(`(?s)<div[^>]*id="availability"[^>]*>(.*?)</div>`)
	amazonImagePattern     = regexp.MustCompile(`<img[^>]*id="landingImage"[^>]*src="([^"]+)"`)
	amazonSearchURLPattern = regexp.MustCompile(`<a[^>]*class="[^"]*a-link-normal[^"]*s-line-clamp[^"]*"[^>]*href="([^"]+)"`)
	amazonResultPattern    = regexp.MustCompile(`(?s)<div[^>]*data-component-type="s-search-result"[^>]*>(.*?)(?:<div[^>]*data-component-type="s-search-result"|$)`)
	amazonResultTitle      = regexp.MustCompile(`(?s)<h2[^>]*>.*?<span[^>]*>(.*?)</span>`)
)

// Amazon scrapes amazon product and search pages.
type Amazon struct {
	fetcher *Fetcher
}

func NewAmazon(fetcher *Fetcher) *Amazon {
	return &Amazon{fetcher: fetcher}
}

func (a *Amazon) Name() string { return "amazon" }

func (a *Amazon) Domains() []string {
	return []string{"amazon.in", "amazon.com", "amazon.co.uk", "amazon.de"}
}

func (a *Amazon) CanHandle(url string) bool {
	return domainMatch(url, a.Domains())
}

func (a *Amazon) FetchPage(ctx context.Context, url string) (string, error) {
	return a.fetcher.FetchPage(ctx, url)
}

func (a *Amazon) ParseProduct(html, pageURL string) (RawListing, error) {
	title := firstMatch(html, amazonTitlePattern)
	if title == "" {
		return RawListing{}, fmt.Errorf("amazon: no product title in page %s", pageURL)
	}

	listing := RawListing{
		Source:        a.Name(),
		URL:           pageURL,
		Title:         title,
		Price:         firstMatch(html, amazonPricePattern, amazonOfferPattern),
		OriginalPrice: firstMatch(html, amazonStrikePattern),
		Rating:        firstMatch(html, amazonRatingPattern),
		ReviewCount:   firstMatch(html, amazonReviewsPattern),
		Availability:  firstMatch(html, amazonStockPattern),
		ImageURL:      firstMatch(html, amazonImagePattern),
	}
	listing.Description = ExtractDescription(html, pageURL, 500)
	return listing, nil
}

func (a *Amazon) Search(ctx context.Context, query string, maxResults int) ([]RawListing, error) {
	searchURL := fmt.Sprintf("%s/s?k=%s", amazonBaseURL, url.QueryEscape(query))
	html, err := a.fetcher.FetchPage(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("amazon search: %w", err)
	}
	return a.parseSearchResults(html, maxResults), nil
}

func (a *Amazon) parseSearchResults(html string, maxResults int) []RawListing {
	blocks := amazonResultPattern.FindAllStringSubmatch(html, -1)
	listings := make([]RawListing, 0, len(blocks))
	for _, block := range blocks {
		if maxResults > 0 && len(listings) >= maxResults {
			break
		}
		fragment := block[1]

		title := firstMatch(fragment, amazonResultTitle)
		if title == "" {
			continue
		}

		href := ""
		if m := amazonSearchURLPattern.FindStringSubmatch(fragment); len(m) > 1 {
			href = absoluteURL(m[1], amazonBaseURL)
		}
		if href == "" || strings.Contains(href, "/sspa/") {
			// Skip sponsored placements and results without a product link.
			continue
		}

		listings = append(listings, RawListing{
			Source:      a.Name(),
			URL:         href,
			Title:       title,
			Price:       firstMatch(fragment, amazonPricePattern, amazonOfferPattern),
			Rating:      firstMatch(fragment, amazonRatingPattern),
			ReviewCount: firstMatch(fragment, amazonReviewsPattern),
			ImageURL:    firstMatch(fragment, amazonImagePattern),
		})
	}
	return listings
}
