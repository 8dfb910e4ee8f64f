package db

import (
	"context"
	"fmt"
	"strings"
)

const productColumns = `
	p.product_id,
	p.product_uuid::text,
	p.url,
	p.title,
	p.canonical_title,
	p.source,
	p.price,
	p.original_price,
	p.currency,
	p.rating,
	p.rating_count,
	p.image_url,
	p.availability,
	p.description,
	p.language,
	p.created_at,
	p.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*Product, error) {
	var row Product
	err := s.Scan(
		&row.ProductID,
		&row.ProductUUID,
		&row.URL,
		&row.Title,
		&row.CanonicalTitle,
		&row.Source,
		&row.Price,
		&row.OriginalPrice,
		&row.Currency,
		&row.Rating,
		&row.RatingCount,
		&row.ImageURL,
		&row.Availability,
		&row.Description,
		&row.Language,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertProduct inserts the product or, when the URL is already known,
// refreshes the stored row. A price sample is recorded on first insert and
// whenever the price differs from the stored one. Returns the stored row and
// whether it was newly created.
func (p *Pool) UpsertProduct(ctx context.Context, product Product) (*Product, bool, error) {
	if strings.TrimSpace(product.URL) == "" {
		return nil, false, fmt.Errorf("product url is required")
	}
	if strings.TrimSpace(product.Title) == "" {
		return nil, false, fmt.Errorf("product title is required")
	}

	tx, err := p.BeginTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID int64
	var existingPrice float64
	err = tx.QueryRow(ctx, `
SELECT p.product_id, p.price
FROM dealscope.products p
WHERE p.url = $1 AND p.deleted_at IS NULL
FOR UPDATE
`, product.URL).Scan(&existingID, &existingPrice)

	created := false
	priceChanged := false
	switch {
	case IsNoRows(err):
		created = true
		err = tx.QueryRow(ctx, `
INSERT INTO dealscope.products
	(url, title, canonical_title, source, price, original_price, currency,
	 rating, rating_count, image_url, availability, description, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING product_id
`,
			product.URL, product.Title, product.CanonicalTitle, product.Source,
			product.Price, product.OriginalPrice, product.Currency,
			product.Rating, product.RatingCount, product.ImageURL,
			product.Availability, product.Description, product.Language,
		).Scan(&existingID)
		if err != nil {
			return nil, false, fmt.Errorf("insert product: %w", err)
		}
	case err != nil:
		return nil, false, fmt.Errorf("select product for upsert: %w", err)
	default:
		priceChanged = product.Price != existingPrice
		_, err = tx.Exec(ctx, `
UPDATE dealscope.products
SET title = $2,
	canonical_title = $3,
	source = $4,
	price = $5,
	original_price = $6,
	currency = $7,
	rating = $8,
	rating_count = $9,
	image_url = COALESCE($10, image_url),
	availability = COALESCE($11, availability),
	description = COALESCE($12, description),
	language = COALESCE($13, language),
	updated_at = now()
WHERE product_id = $1
`,
			existingID, product.Title, product.CanonicalTitle, product.Source,
			product.Price, product.OriginalPrice, product.Currency,
			product.Rating, product.RatingCount, product.ImageURL,
			product.Availability, product.Description, product.Language,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update product: %w", err)
		}
	}

	if (created || priceChanged) && product.Price > 0 {
		_, err = tx.Exec(ctx, `
INSERT INTO dealscope.price_samples (product_id, price, currency, source)
VALUES ($1, $2, $3, $4)
`, existingID, product.Price, product.Currency, product.Source)
		if err != nil {
			return nil, false, fmt.Errorf("record price sample: %w", err)
		}
	}

	stored, err := scanProduct(tx.QueryRow(ctx, `
SELECT`+productColumns+`
FROM dealscope.products p
WHERE p.product_id = $1
`, existingID))
	if err != nil {
		return nil, false, fmt.Errorf("reload upserted product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit upsert transaction: %w", err)
	}
	return stored, created, nil
}

// GetProductByID returns the product or ErrNoRows when absent.
func (p *Pool) GetProductByID(ctx context.Context, productID int64) (*Product, error) {
	row, err := scanProduct(p.QueryRow(ctx, `
SELECT`+productColumns+`
FROM dealscope.products p
WHERE p.product_id = $1 AND p.deleted_at IS NULL
`, productID))
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetProductByURL returns the product with the exact URL or ErrNoRows.
func (p *Pool) GetProductByURL(ctx context.Context, url string) (*Product, error) {
	row, err := scanProduct(p.QueryRow(ctx, `
SELECT`+productColumns+`
FROM dealscope.products p
WHERE p.url = $1 AND p.deleted_at IS NULL
`, url))
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetProductsByIDs returns the products that exist for the given IDs, in
// the order the IDs were requested. Missing IDs are skipped silently.
func (p *Pool) GetProductsByIDs(ctx context.Context, productIDs []int64) ([]Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(productIDs))
	args := make([]any, 0, len(productIDs))
	for i, id := range productIDs {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	q := `
SELECT` + productColumns + `
FROM dealscope.products p
WHERE p.product_id IN (` + strings.Join(placeholders, ", ") + `) AND p.deleted_at IS NULL
`
	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Product, len(productIDs))
	for rows.Next() {
		row, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		byID[row.ProductID] = *row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	ordered := make([]Product, 0, len(byID))
	for _, id := range productIDs {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// SearchProducts matches stored products whose title or canonical title
// contains the query, newest first.
func (p *Pool) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := p.Query(ctx, `
SELECT`+productColumns+`
FROM dealscope.products p
WHERE (p.title ILIKE $1 OR p.canonical_title ILIKE $1) AND p.deleted_at IS NULL
ORDER BY p.updated_at DESC, p.product_id DESC
LIMIT $2
`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query products by title: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows, limit)
}

// ListProducts pages through all stored products, newest first.
func (p *Pool) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := p.Query(ctx, `
SELECT`+productColumns+`
FROM dealscope.products p
WHERE p.deleted_at IS NULL
ORDER BY p.updated_at DESC, p.product_id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query product list: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows, limit)
}

// RecordPriceSample appends one price observation for a product.
func (p *Pool) RecordPriceSample(ctx context.Context, sample PriceSample) error {
	if sample.ProductID <= 0 {
		return fmt.Errorf("price sample product_id is required")
	}
	_, err := p.Exec(ctx, `
INSERT INTO dealscope.price_samples (product_id, price, currency, source)
VALUES ($1, $2, $3, $4)
`, sample.ProductID, sample.Price, sample.Currency, sample.Source)
	if err != nil {
		return fmt.Errorf("insert price sample: %w", err)
	}
	return nil
}

// GetPriceHistory returns up to limit samples for a product, newest first.
func (p *Pool) GetPriceHistory(ctx context.Context, productID int64, limit int) ([]PriceSample, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.Query(ctx, `
SELECT
	s.price_sample_id,
	s.price_sample_uuid::text,
	s.product_id,
	s.price,
	s.currency,
	s.source,
	s.recorded_at
FROM dealscope.price_samples s
WHERE s.product_id = $1
ORDER BY s.recorded_at DESC, s.price_sample_id DESC
LIMIT $2
`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	samples := make([]PriceSample, 0, limit)
	for rows.Next() {
		var row PriceSample
		if err := rows.Scan(
			&row.PriceSampleID,
			&row.PriceSampleUUID,
			&row.ProductID,
			&row.Price,
			&row.Currency,
			&row.Source,
			&row.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}
		samples = append(samples, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}
	return samples, nil
}

func collectProducts(rows *Rows, sizeHint int) ([]Product, error) {
	items := make([]Product, 0, sizeHint)
	for rows.Next() {
		row, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return items, nil
}
