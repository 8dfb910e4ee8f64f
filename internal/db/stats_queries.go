package db

import (
	"context"
	"fmt"
)

// SourceCount is one source's share of the catalog.
type SourceCount struct {
	Source   string `json:"source"`
	Products int64  `json:"products"`
}

// CatalogStats summarizes the stored catalog.
type CatalogStats struct {
	TotalProducts     int64         `json:"total_products"`
	TotalPriceSamples int64         `json:"total_price_samples"`
	ProductsBySource  []SourceCount `json:"products_by_source"`
}

// GetCatalogStats returns aggregate counts over products and price samples.
func (p *Pool) GetCatalogStats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{}

	err := p.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM dealscope.products p WHERE p.deleted_at IS NULL) AS total_products,
	(SELECT COUNT(*) FROM dealscope.price_samples) AS total_price_samples
`).Scan(&stats.TotalProducts, &stats.TotalPriceSamples)
	if err != nil {
		return nil, fmt.Errorf("query catalog totals: %w", err)
	}

	rows, err := p.Query(ctx, `
SELECT p.source, COUNT(*)::BIGINT AS products
FROM dealscope.products p
WHERE p.deleted_at IS NULL
GROUP BY p.source
ORDER BY 2 DESC, 1
`)
	if err != nil {
		return nil, fmt.Errorf("query products by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SourceCount
		if err := rows.Scan(&row.Source, &row.Products); err != nil {
			return nil, fmt.Errorf("scan source count row: %w", err)
		}
		stats.ProductsBySource = append(stats.ProductsBySource, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source count rows: %w", err)
	}

	return stats, nil
}
