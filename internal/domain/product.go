package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry and the source of truth for price and stock.
type Product struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description" db:"description"`
	Price              float64   `json:"price" db:"price"`
	OriginalPrice      *float64  `json:"original_price" db:"original_price"`
	DiscountPercentage float64   `json:"discount_percentage" db:"discount_percentage"`
	Category           string    `json:"category" db:"category"`
	Stock              int       `json:"stock" db:"stock"`
	Images             []string  `json:"images" db:"images"`
	Rating             float64   `json:"rating" db:"rating"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// FirstImage returns the cover image, or nil for an empty gallery.
func (p *Product) FirstImage() *string {
	if len(p.Images) == 0 {
		return nil
	}
	img := p.Images[0]
	return &img
}

// HasImage reports whether url is already in the gallery.
func (p *Product) HasImage(url string) bool {
	for _, img := range p.Images {
		if img == url {
			return true
		}
	}
	return false
}

// DiscountPercentage is derived once at creation: the percentage off the
// original price rounded to 2 places, or 0 without a higher original price.
func DiscountPercentage(price float64, originalPrice *float64) float64 {
	if originalPrice == nil || *originalPrice <= price || *originalPrice <= 0 {
		return 0
	}
	orig := decimal.NewFromFloat(*originalPrice)
	return orig.Sub(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromInt(100)).
		Div(orig).
		Round(2).
		InexactFloat64()
}

// ProductPatch lists the fields a partial update may change. Nil means untouched.
type ProductPatch struct {
	Name          *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Description   *string   `json:"description,omitempty"`
	Price         *float64  `json:"price,omitempty" validate:"omitempty,gt=0"`
	OriginalPrice *float64  `json:"original_price,omitempty" validate:"omitempty,gt=0"`
	Category      *string   `json:"category,omitempty" validate:"omitempty,min=1"`
	Stock         *int      `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Images        *[]string `json:"images,omitempty"`
	Rating        *float64  `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.OriginalPrice == nil && p.Category == nil && p.Stock == nil &&
		p.Images == nil && p.Rating == nil
}

// Apply copies the provided fields onto product. Discount is left as created.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.OriginalPrice != nil {
		orig := *p.OriginalPrice
		product.OriginalPrice = &orig
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Images != nil {
		product.Images = append([]string{}, (*p.Images)...)
	}
	if p.Rating != nil {
		product.Rating = *p.Rating
	}
}

// ProductFilter narrows catalog listings. Zero values mean no constraint.
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
}
