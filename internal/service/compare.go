package service

import (
	"context"
	"fmt"
	"math"

	"dealscope.dev/dealscope/internal/db"
)

// ComparisonItem is one product inside a comparison, annotated with its
// discount relative to the listed original price.
type ComparisonItem struct {
	Product         db.Product `json:"product"`
	DiscountPercent *float64   `json:"discount_percent,omitempty"`
}

// ComparisonReport compares stored products side by side.
type ComparisonReport struct {
	Items           []ComparisonItem `json:"items"`
	CheapestID      *int64           `json:"cheapest_product_id,omitempty"`
	BestRatedID     *int64           `json:"best_rated_product_id,omitempty"`
	PriceSpread     float64          `json:"price_spread"`
	MissingProducts int              `json:"missing_products"`
}

// Compare loads the requested products and reports the cheapest offer, the
// best rated one, and each item's discount. At least two known products are
// required; IDs that resolve to nothing only count toward MissingProducts.
func (s *Service) Compare(ctx context.Context, productIDs []int64) (*ComparisonReport, error) {
	if len(productIDs) < 2 {
		return nil, fmt.Errorf("at least 2 product ids are required")
	}
	if len(productIDs) > MaxCompareProducts {
		return nil, fmt.Errorf("at most %d products can be compared", MaxCompareProducts)
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products for comparison: %w", err)
	}
	if len(products) < 2 {
		return nil, fmt.Errorf("at least 2 of the requested products must exist, found %d", len(products))
	}

	report := &ComparisonReport{
		Items:           make([]ComparisonItem, 0, len(products)),
		MissingProducts: len(productIDs) - len(products),
	}

	minPrice := math.MaxFloat64
	maxPrice := 0.0
	bestRating := -1.0
	for i := range products {
		product := products[i]
		report.Items = append(report.Items, ComparisonItem{
			Product:         product,
			DiscountPercent: discountPercent(product),
		})

		if product.Price > 0 {
			if product.Price < minPrice {
				minPrice = product.Price
				report.CheapestID = &products[i].ProductID
			}
			if product.Price > maxPrice {
				maxPrice = product.Price
			}
		}
		if product.Rating != nil && *product.Rating > bestRating {
			bestRating = *product.Rating
			report.BestRatedID = &products[i].ProductID
		}
	}

	if report.CheapestID != nil && maxPrice > minPrice {
		report.PriceSpread = maxPrice - minPrice
	}
	return report, nil
}

// discountPercent is defined only when both prices are positive and the
// original price exceeds the current one.
func discountPercent(product db.Product) *float64 {
	if product.OriginalPrice == nil || *product.OriginalPrice <= 0 || product.Price <= 0 {
		return nil
	}
	original := *product.OriginalPrice
	if original <= product.Price {
		return nil
	}
	percent := (original - product.Price) / original * 100
	rounded := math.Round(percent*100) / 100
	return &rounded
}
