package dedup

import (
	"dealscope.dev/dealscope/internal/normalize"
)

// DefaultThreshold is the similarity ratio at or above which two canonical
// titles are considered the same product.
const DefaultThreshold = 0.85

// Offer is one source's listing inside an aggregated product.
type Offer struct {
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Currency      string   `json:"currency"`
	Rating        *float64 `json:"rating,omitempty"`
	RatingCount   *int     `json:"rating_count,omitempty"`
	Availability  string   `json:"availability,omitempty"`
}

// AggregatedProduct is a group of near-identical listings merged into one
// comparable record. The url, source, and price fields come from the merge
// base (the most complete listing in the group); BestPrice is the minimum
// price across all sources, including listings whose price failed to parse
// and defaulted to 0.
type AggregatedProduct struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	CanonicalTitle  string   `json:"canonical_title"`
	Source          string   `json:"source"`
	Price           float64  `json:"price"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	Currency        string   `json:"currency"`
	Rating          *float64 `json:"rating,omitempty"`
	RatingCount     *int     `json:"rating_count,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Availability    string   `json:"availability,omitempty"`
	Description     string   `json:"description,omitempty"`
	Language        string   `json:"language,omitempty"`
	Sources         []Offer  `json:"sources"`
	BestPrice       float64  `json:"best_price"`
	BestPriceSource string   `json:"best_price_source,omitempty"`
	MatchCount      int      `json:"match_count"`
}

// Deduplicator groups normalized listings whose canonical titles are
// near-identical under character-level sequence similarity.
type Deduplicator struct {
	threshold float64
}

func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

func (d *Deduplicator) Threshold() float64 { return d.threshold }

// Group partitions listings greedily: each unassigned listing seeds a new
// group and claims every later unassigned listing whose canonical title is
// similar at or above the threshold. Groups appear in seed-discovery order
// and singletons are included.
func (d *Deduplicator) Group(products []normalize.NormalizedProduct) [][]normalize.NormalizedProduct {
	used := make([]bool, len(products))
	groups := make([][]normalize.NormalizedProduct, 0, len(products))

	for i := range products {
		if used[i] {
			continue
		}
		used[i] = true
		group := []normalize.NormalizedProduct{products[i]}

		for j := i + 1; j < len(products); j++ {
			if used[j] {
				continue
			}
			if Similarity(products[i].CanonicalTitle, products[j].CanonicalTitle) >= d.threshold {
				used[j] = true
				group = append(group, products[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// Merge groups the listings and collapses each group into one aggregated
// product. Multi-source groups come first in discovery order, then singleton
// listings in their input order.
func (d *Deduplicator) Merge(products []normalize.NormalizedProduct) []AggregatedProduct {
	groups := d.Group(products)

	merged := make([]AggregatedProduct, 0, len(groups))
	singles := make([]AggregatedProduct, 0, len(groups))
	for _, group := range groups {
		aggregated := mergeGroup(group)
		if len(group) > 1 {
			merged = append(merged, aggregated)
		} else {
			singles = append(singles, aggregated)
		}
	}
	return append(merged, singles...)
}

// mergeGroup picks the most complete listing as the base record and folds the
// rest in as source listings.
func mergeGroup(group []normalize.NormalizedProduct) AggregatedProduct {
	base := group[0]
	for _, candidate := range group[1:] {
		if betterBase(candidate, base) {
			base = candidate
		}
	}

	aggregated := AggregatedProduct{
		URL:            base.URL,
		Title:          base.Title,
		CanonicalTitle: base.CanonicalTitle,
		Source:         base.Source,
		Price:          base.Price,
		OriginalPrice:  base.OriginalPrice,
		Currency:       base.Currency,
		Rating:         base.Rating,
		RatingCount:    base.RatingCount,
		ImageURL:       base.ImageURL,
		Availability:   base.Availability,
		Description:    base.Description,
		Language:       base.Language,
		MatchCount:     len(group),
		Sources:        make([]Offer, 0, len(group)),
	}

	for i, product := range group {
		aggregated.Sources = append(aggregated.Sources, Offer{
			Source:        product.Source,
			URL:           product.URL,
			Title:         product.Title,
			Price:         product.Price,
			OriginalPrice: product.OriginalPrice,
			Currency:      product.Currency,
			Rating:        product.Rating,
			RatingCount:   product.RatingCount,
			Availability:  product.Availability,
		})

		if i == 0 || product.Price < aggregated.BestPrice {
			aggregated.BestPrice = product.Price
			aggregated.BestPriceSource = product.Source
		}
	}
	return aggregated
}

func betterBase(candidate, current normalize.NormalizedProduct) bool {
	candidateScore := populatedFields(candidate)
	currentScore := populatedFields(current)
	if candidateScore != currentScore {
		return candidateScore > currentScore
	}
	return ratingCountOf(candidate) > ratingCountOf(current)
}

func populatedFields(p normalize.NormalizedProduct) int {
	score := 0
	if p.Title != "" {
		score++
	}
	if p.Price > 0 {
		score++
	}
	if p.OriginalPrice != nil {
		score++
	}
	if p.Rating != nil {
		score++
	}
	if p.RatingCount != nil {
		score++
	}
	if p.ImageURL != "" {
		score++
	}
	if p.Availability != "" {
		score++
	}
	if p.Description != "" {
		score++
	}
	return score
}

func ratingCountOf(p normalize.NormalizedProduct) int {
	if p.RatingCount == nil {
		return 0
	}
	return *p.RatingCount
}
