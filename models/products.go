package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxSlugLength = 220

// Product represents a product in the catalog.
// Inactive products are hidden from every storefront query.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:200;not null"`
	Slug        string          `gorm:"size:220;uniqueIndex;not null"`
	Description string          `gorm:"type:text;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ImageURL    string          `gorm:"size:200;not null"`
	IsActive    bool            `gorm:"not null"`
	CreatedAt   time.Time
}

func (p *Product) TableName() string {
	return "products"
}

// BeforeSave derives the slug from the name the first time the product is saved.
// A numeric suffix is appended when the derived slug is already taken.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Slug != "" {
		return nil
	}

	base := Slugify(p.Name)
	if base == "" {
		base = "product"
	}

	slug := base
	for n := 2; ; n++ {
		var count int64
		err := tx.Session(&gorm.Session{NewDB: true}).
			Model(&Product{}).
			Where("slug = ?", slug).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check slug %q: %w", slug, err)
		}
		if count == 0 {
			break
		}
		suffix := fmt.Sprintf("-%d", n)
		slug = truncate(base, maxSlugLength-len(suffix)) + suffix
	}

	p.Slug = slug
	return nil
}
