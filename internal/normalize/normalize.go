package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"dealscope.dev/dealscope/internal/adapter"
	"dealscope.dev/dealscope/internal/langdetect"
)

// NormalizedProduct is a listing converted to canonical comparable form.
// Price is always >= 0 (unparseable prices become 0, not errors); Rating is
// nil when absent, never zero-by-default, and lies in [0,5] when present.
type NormalizedProduct struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	CanonicalTitle string   `json:"canonical_title"`
	Source         string   `json:"source"`
	Price          float64  `json:"price"`
	OriginalPrice  *float64 `json:"original_price,omitempty"`
	Currency       string   `json:"currency"`
	Rating         *float64 `json:"rating,omitempty"`
	RatingCount    *int     `json:"rating_count,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Availability   string   `json:"availability,omitempty"`
	Description    string   `json:"description,omitempty"`
	Language       string   `json:"language,omitempty"`
}

// currencySymbols is scanned in fixed priority order.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"₹", "INR"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "for": {}, "with": {},
	"in": {}, "on": {}, "at": {}, "new": {}, "latest": {}, "original": {},
	"genuine": {}, "authentic": {}, "official": {}, "pack": {}, "set": {},
	"combo": {}, "bundle": {}, "piece": {}, "pcs": {}, "unit": {},
}

// Brand tokens survive canonicalization even when they collide with a
// stopword-like token.
var brandTokens = map[string]struct{}{
	"apple": {}, "samsung": {}, "sony": {}, "lg": {}, "hp": {}, "dell": {},
	"lenovo": {}, "asus": {}, "acer": {}, "msi": {}, "nike": {}, "adidas": {},
	"puma": {}, "reebok": {}, "boat": {}, "jbl": {}, "bose": {}, "sennheiser": {},
}

var (
	currencyStripPattern = regexp.MustCompile(`[₹$€£¥,\s]`)
	numericTokenPattern  = regexp.MustCompile(`[0-9][0-9.]*`)
	percentPattern       = regexp.MustCompile(`([0-9][0-9.]*)%`)
	outOfPattern         = regexp.MustCompile(`([0-9][0-9.]*)\s*(?:out of|/)\s*([0-9][0-9.]*)`)
	digitsPattern        = regexp.MustCompile(`[0-9]+`)
	punctuationPattern   = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Price converts a raw price string to a numeric value and a currency code.
// Unparseable prices yield 0 by policy so downstream sorts and comparisons
// never have to handle a missing price.
func Price(raw, defaultCurrency string) (float64, string) {
	currency := defaultCurrency
	for _, entry := range currencySymbols {
		if strings.Contains(raw, entry.symbol) {
			currency = entry.code
			break
		}
	}

	cleaned := currencyStripPattern.ReplaceAllString(raw, "")
	token := numericTokenPattern.FindString(cleaned)
	if token == "" {
		return 0, currency
	}

	value, err := strconv.ParseFloat(strings.TrimRight(token, "."), 64)
	if err != nil || value < 0 {
		return 0, currency
	}
	return value, currency
}

// Rating converts a raw rating string to the 0-5 scale. It accepts a plain
// number, a percentage, and "X out of Y" / "X/Y" forms. Returns nil when the
// value cannot be parsed; absence is distinct from a true zero rating.
func Rating(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if m := percentPattern.FindStringSubmatch(trimmed); len(m) > 1 {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return clampRating(value / 100 * 5)
	}

	if m := outOfPattern.FindStringSubmatch(trimmed); len(m) > 2 {
		value, errV := strconv.ParseFloat(m[1], 64)
		scale, errS := strconv.ParseFloat(m[2], 64)
		if errV != nil || errS != nil || scale <= 0 {
			return nil
		}
		return clampRating(value / scale * 5)
	}

	token := numericTokenPattern.FindString(trimmed)
	if token == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimRight(token, "."), 64)
	if err != nil {
		return nil
	}

	// Bare values in (5,10] are read as a 10-point scale; anything above 10
	// is already out of range and clamps to 5.
	if value > 5 && value <= 10 {
		value = value / 10 * 5
	}
	return clampRating(value)
}

// RatingCount extracts an integer review count, tolerating thousands
// separators. Returns nil when no digits are present.
func RatingCount(raw string) *int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	token := digitsPattern.FindString(cleaned)
	if token == "" {
		return nil
	}
	count, err := strconv.Atoi(token)
	if err != nil {
		return nil
	}
	return &count
}

// CanonicalTitle lowers, strips punctuation, and drops stopwords (brand
// tokens always survive) to produce a comparison-ready token string.
func CanonicalTitle(title string) string {
	lowered := strings.ToLower(title)
	spaced := punctuationPattern.ReplaceAllString(lowered, " ")

	tokens := strings.Fields(spaced)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStopword := stopwords[token]; isStopword {
			if _, isBrand := brandTokens[token]; !isBrand {
				continue
			}
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// Listing converts one raw listing to canonical form. Field-level parse
// failures degrade to defaults; they never fail the listing.
func Listing(raw adapter.RawListing, defaultCurrency string) NormalizedProduct {
	currencyHint := strings.TrimSpace(raw.Currency)
	if currencyHint == "" {
		currencyHint = defaultCurrency
	}

	price, currency := Price(raw.Price, currencyHint)

	var originalPrice *float64
	if value, _ := Price(raw.OriginalPrice, currencyHint); value > 0 {
		originalPrice = &value
	}

	title := strings.TrimSpace(raw.Title)

	return NormalizedProduct{
		URL:            strings.TrimSpace(raw.URL),
		Title:          title,
		CanonicalTitle: CanonicalTitle(title),
		Source:         strings.TrimSpace(raw.Source),
		Price:          price,
		OriginalPrice:  originalPrice,
		Currency:       currency,
		Rating:         Rating(raw.Rating),
		RatingCount:    RatingCount(raw.ReviewCount),
		ImageURL:       strings.TrimSpace(raw.ImageURL),
		Availability:   strings.TrimSpace(raw.Availability),
		Description:    strings.TrimSpace(raw.Description),
		Language:       langdetect.DetectISO6391(title + " " + raw.Description),
	}
}

func clampRating(value float64) *float64 {
	if value < 0 {
		value = 0
	}
	if value > 5 {
		value = 5
	}
	return &value
}
