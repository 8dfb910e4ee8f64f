package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

const snapdealBaseURL = "https://www.snapdeal.com"

var (
	snapdealTitlePattern   = regexp.MustCompile(`(?s)<h1[^>]*itemprop="name"[^>]*>(.*?)</h1>`)
	snapdealPricePattern   = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*payBlkBig[^"]*"[^>]*>(.*?)</span>`)
	snapdealMRPPattern     = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*pdpCutPrice[^"]*"[^>]*>(.*?)</span>`)
	snapdealRatingPattern  = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*avrg-rating[^"]*"[^>]*>(.*?)</span>`)
	snapdealReviewsPattern = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*numbr-review[^"]*"[^>]*>(.*?)</span>`)
	snapdealImagePattern   = regexp.MustCompile(`<img[^>]*class="[^"]*cloudzoom[^"]*"[^>]*src="([^"]+)"`)
	snapdealSoldOutPattern = regexp.MustCompile(`(?i)sold\s*out`)
	snapdealResultPattern  = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*product-tuple-listing[^"]*"[^>]*>(.*?)(?:<div[^>]*class="[^"]*product-tuple-listing|$)`)
	snapdealCardTitle      = regexp.MustCompile(`(?s)<p[^>]*class="[^"]*product-title[^"]*"[^>]*>(.*?)</p>`)
	snapdealCardPrice      = regexp.MustCompile(`(?s)<span[^>]*class="[^"]*product-price[^"]*"[^>]*>(.*?)</span>`)
	snapdealLinkPattern    = regexp.MustCompile(`<a[^>]*class="[^"]*dp-widget-link[^"]*"[^>]*href="([^"]+)"`)
)

// Snapdeal scrapes snapdeal product and search pages.
type Snapdeal struct {
	fetcher *Fetcher
}

func NewSnapdeal(fetcher *Fetcher) *Snapdeal {
	return &Snapdeal{fetcher: fetcher}
}

func (s *Snapdeal) Name() string { return "snapdeal" }

func (s *Snapdeal) Domains() []string {
	return []string{"snapdeal.com"}
}

func (s *Snapdeal) CanHandle(url string) bool {
	return domainMatch(url, s.Domains())
}

func (s *Snapdeal) FetchPage(ctx context.Context, url string) (string, error) {
	return s.fetcher.FetchPage(ctx, url)
}

func (s *Snapdeal) ParseProduct(html, pageURL string) (RawListing, error) {
	title := firstMatch(html, snapdealTitlePattern)
	if title == "" {
		return RawListing{}, fmt.Errorf("snapdeal: no product title in page %s", pageURL)
	}

	availability := "In Stock"
	if snapdealSoldOutPattern.MatchString(html) {
		availability = "Out of Stock"
	}

	listing := RawListing{
		Source:        s.Name(),
		URL:           pageURL,
		Title:         title,
		Price:         firstMatch(html, snapdealPricePattern),
		OriginalPrice: firstMatch(html, snapdealMRPPattern),
		Rating:        firstMatch(html, snapdealRatingPattern),
		ReviewCount:   firstMatch(html, snapdealReviewsPattern),
		Availability:  availability,
		ImageURL:      firstMatch(html, snapdealImagePattern),
	}
	listing.Description = ExtractDescription(html, pageURL, 500)
	return listing, nil
}

func (s *Snapdeal) Search(ctx context.Context, query string, maxResults int) ([]RawListing, error) {
	searchURL := fmt.Sprintf("%s/search?keyword=%s", snapdealBaseURL, url.QueryEscape(query))
	html, err := s.fetcher.FetchPage(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("snapdeal search: %w", err)
	}
	return s.parseSearchResults(html, maxResults), nil
}

func (s *Snapdeal) parseSearchResults(html string, maxResults int) []RawListing {
	blocks := snapdealResultPattern.FindAllStringSubmatch(html, -1)
	listings := make([]RawListing, 0, len(blocks))
	for _, block := range blocks {
		if maxResults > 0 && len(listings) >= maxResults {
			break
		}
		fragment := block[1]

		title := firstMatch(fragment, snapdealCardTitle)
		if title == "" {
			continue
		}

		href := ""
		if m := snapdealLinkPattern.FindStringSubmatch(fragment); len(m) > 1 {
			href = absoluteURL(m[1], snapdealBaseURL)
		}
		if href == "" {
			continue
		}

		listings = append(listings, RawListing{
			Source:   s.Name(),
			URL:      href,
			Title:    title,
			Price:    firstMatch(fragment, snapdealCardPrice),
			Rating:   firstMatch(fragment, snapdealRatingPattern),
			ImageURL: firstMatch(fragment, snapdealImagePattern),
		})
	}
	return listings
}
