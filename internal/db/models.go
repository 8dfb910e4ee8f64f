package db

import (
	"time"
)

// Product maps dealscope.products. One row per distinct product URL; price
// and metadata reflect the most recent successful scrape.
type Product struct {
	ProductID      int64      `gorm:"column:product_id;primaryKey;autoIncrement"`
	ProductUUID    string     `gorm:"column:product_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	URL            string     `gorm:"column:url;type:text;not null;unique"`
	Title          string     `gorm:"column:title;type:text;not null"`
	CanonicalTitle string     `gorm:"column:canonical_title;type:text;not null;default:''"`
	Source         string     `gorm:"column:source;type:text;not null"`
	Price          float64    `gorm:"column:price;type:double precision;not null;default:0"`
	OriginalPrice  *float64   `gorm:"column:original_price;type:double precision"`
	Currency       string     `gorm:"column:currency;type:text;not null;default:INR"`
	Rating         *float64   `gorm:"column:rating;type:double precision"`
	RatingCount    *int       `gorm:"column:rating_count;type:integer"`
	ImageURL       *string    `gorm:"column:image_url;type:text"`
	Availability   *string    `gorm:"column:availability;type:text"`
	Description    *string    `gorm:"column:description;type:text"`
	Language       *string    `gorm:"column:language;type:text"`
	DeletedAt      *time.Time `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Product) TableName() string { return "dealscope.products" }

// PriceSample maps dealscope.price_samples. A sample is appended when a
// product is first seen and whenever its scraped price changes.
type PriceSample struct {
	PriceSampleID   int64     `gorm:"column:price_sample_id;primaryKey;autoIncrement"`
	PriceSampleUUID string    `gorm:"column:price_sample_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ProductID       int64     `gorm:"column:product_id;type:bigint;not null"`
	Price           float64   `gorm:"column:price;type:double precision;not null"`
	Currency        string    `gorm:"column:currency;type:text;not null"`
	Source          string    `gorm:"column:source;type:text;not null"`
	RecordedAt      time.Time `gorm:"column:recorded_at;type:timestamptz;not null;default:now()"`
}

func (PriceSample) TableName() string { return "dealscope.price_samples" }

func autoMigrateModels() []any {
	return []any{
		&Product{},
		&PriceSample{},
	}
}
