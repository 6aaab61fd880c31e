package domain

import "time"

// Product status constants.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product is a licensable offering belonging to exactly one brand.
// (BrandID, Slug) is unique.
type Product struct {
	ID          string    `json:"id"`
	BrandID     string    `json:"brand_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProduct creates an active product snapshot.
func NewProduct(id, brandID, name, slug, description string, now time.Time) Product {
	return Product{
		ID:          id,
		BrandID:     brandID,
		Name:        name,
		Slug:        slug,
		Description: description,
		Status:      ProductStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive reports whether licenses may be validated against this product.
func (p Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
