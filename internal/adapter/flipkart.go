package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const flipkartBaseURL = "https://www.flipkart.com"

var (
	flipkartTitlePattern   = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*B_NuCI[^"]*"[^>]*>(.*?)</span>`)
	flipkartH1Pattern      = regexp.MustCompile(`(?s)<h1[^>]*>(.*?)</h1>`)
	flipkartPricePattern   = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*_30jeq3[^"]*"[^>]*>(.*?)</div>`)
	flipkartMRPPattern     = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*_3I9_wc[^"]*"[^>]*>(.*?)</div>`)
	flipkartRatingPattern  = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*_3LWZlK[^"]*"[^>]*>(.*?)</div>`)
	flipkartReviewsPattern = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*_2_R_DZ[^"]*"[^>]*>(.*?)</span>`)
	flipkartImagePattern   = regexp.MustCompile(`<img[^>]*class="[^"]*_396cs4[^"]*"[^>]*src="([^"]+)"`)
	flipkartResultPattern  = regexp.MustCompile(`(?s)<div[^>]*data-id="[^"]+"[^>]*>(.*?)(?:<div[^>]*data-id="|$)`)
	flipkartLinkPattern    = regexp.MustCompile(`<a[^>]*class="[^"]*(?:_1fQZEK|s1Q9rs|_2rpwqI)[^"]*"[^>]*href="([^"]+)"`)
	flipkartCardTitle      = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*_4rR01T[^"]*"[^>]*>(.*?)</div>`)
	flipkartCardAltTitle   = regexp.MustCompile(`<a[^>]*class="[^"]*s1Q9rs[^"]*"[^>]*title="([^"]+)"`)
)

// Flipkart scrapes flipkart product and search pages.
type Flipkart struct {
	fetcher *Fetcher
}

func NewFlipkart(fetcher *Fetcher) *Flipkart {
	return &Flipkart{fetcher: fetcher}
}

func (f *Flipkart) Name() string { return "flipkart" }

func (f *Flipkart) Domains() []string {
	return []string{"flipkart.com"}
}

func (f *Flipkart) CanHandle(url string) bool {
	return domainMatch(url, f.Domains())
}

func (f *Flipkart) FetchPage(ctx context.Context, url string) (string, error) {
	return f.fetcher.FetchPage(ctx, url)
}

func (f *Flipkart) ParseProduct(html, pageURL string) (RawListing, error) {
	title := firstMatch(html, flipkartTitlePattern, flipkartH1Pattern)
	if title == "" {
		return RawListing{}, fmt.Errorf("flipkart: no product title in page %s", pageURL)
	}

	availability := ""
	if strings.Contains(html, "Sold Out") || strings.Contains(html, "Currently unavailable") {
		availability = "Out of Stock"
	}

	listing := RawListing{
		Source:        f.Name(),
		URL:           pageURL,
		Title:         title,
		Price:         firstMatch(html, flipkartPricePattern),
		OriginalPrice: firstMatch(html, flipkartMRPPattern),
		Rating:        firstMatch(html, flipkartRatingPattern),
		ReviewCount:   firstMatch(html, flipkartReviewsPattern),
		Availability:  availability,
		ImageURL:      firstMatch(html, flipkartImagePattern),
	}
	listing.Description = ExtractDescription(html, pageURL, 500)
	return listing, nil
}

func (f *Flipkart) Search(ctx context.Context, query string, maxResults int) ([]RawListing, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s", flipkartBaseURL, url.QueryEscape(query))
	html, err := f.fetcher.FetchPage(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("flipkart search: %w", err)
	}
	return f.parseSearchResults(html, maxResults), nil
}

func (f *Flipkart) parseSearchResults(html string, maxResults int) []RawListing {
	blocks := flipkartResultPattern.FindAllStringSubmatch(html, -1)
	listings := make([]RawListing, 0, len(blocks))
	for _, block := range blocks {
		if maxResults > 0 && len(listings) >= maxResults {
			break
		}
		fragment := block[1]

		title := firstMatch(fragment, flipkartCardTitle, flipkartCardAltTitle)
		if title == "" {
			continue
		}

		href := ""
		if m := flipkartLinkPattern.FindStringSubmatch(fragment); len(m) > 1 {
			href = absoluteURL(m[1], flipkartBaseURL)
		}
		if href == "" {
			continue
		}

		listings = append(listings, RawListing{
			Source:      f.Name(),
			URL:         href,
			Title:       title,
			Price:       firstMatch(fragment, flipkartPricePattern),
			Rating:      firstMatch(fragment, flipkartRatingPattern),
			ReviewCount: firstMatch(fragment, flipkartReviewsPattern),
			ImageURL:    firstMatch(fragment, flipkartImagePattern),
		})
	}
	return listings
}
