package domain

import (
	"time"

	apperrors "github.com/keymint/licensing/pkg/errors"
)

// Brand status constants.
const (
	BrandStatusActive    = "active"
	BrandStatusSuspended = "suspended"
	BrandStatusDeleted   = "deleted"
)

// Brand represents a tenant. Each brand owns its products and issues license
// keys under its own API keys. Entities are value snapshots; transitions
// return a new snapshot and the caller persists it.
type Brand struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	ProvisioningKey string     `json:"-"`
	ValidationKey   string     `json:"-"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// NewBrand creates an active brand snapshot.
func NewBrand(id, name, slug, provisioningKey, validationKey string, now time.Time) Brand {
	return Brand{
		ID:              id,
		Name:            name,
		Slug:            slug,
		ProvisioningKey: provisioningKey,
		ValidationKey:   validationKey,
		Status:          BrandStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsActive reports whether the brand may create products and issue keys.
func (b Brand) IsActive() bool {
	return b.Status == BrandStatusActive && b.DeletedAt == nil
}

// IsDeleted reports whether the brand has been soft-deleted.
func (b Brand) IsDeleted() bool {
	return b.DeletedAt != nil
}

// WithStatus returns a snapshot with the given status.
func (b Brand) WithStatus(status string, now time.Time) (Brand, error) {
	switch status {
	case BrandStatusActive, BrandStatusSuspended, BrandStatusDeleted:
	default:
		return Brand{}, apperrors.InvalidInput("invalid brand status: " + status)
	}
	b.Status = status
	b.UpdatedAt = now
	return b, nil
}

// Delete returns a soft-deleted snapshot. Deletion is terminal.
func (b Brand) Delete(now time.Time) Brand {
	b.DeletedAt = &now
	b.Status = BrandStatusDeleted
	b.UpdatedAt = now
	return b
}
