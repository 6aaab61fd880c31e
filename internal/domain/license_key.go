package domain

import (
	"time"

	apperrors "github.com/keymint/licensing/pkg/errors"
)

// LicenseKey status constants.
const (
	LicenseKeyStatusActive    = "active"
	LicenseKeyStatusInactive  = "inactive"
	LicenseKeyStatusCancelled = "cancelled"
)

// LicenseKey is the customer-facing key string. One key can back many
// licenses, at most one per product.
type LicenseKey struct {
	ID               string    `json:"id"`
	BrandID          string    `json:"brand_id"`
	CustomerEmail    string    `json:"customer_email"`
	Key              string    `json:"key"`
	Status           string    `json:"status"`
	CreatedByBrandID string    `json:"created_by_brand_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewLicenseKey creates an active license-key snapshot.
func NewLicenseKey(id, brandID, customerEmail, key, createdByBrandID string, now time.Time) LicenseKey {
	return LicenseKey{
		ID:               id,
		BrandID:          brandID,
		CustomerEmail:    customerEmail,
		Key:              key,
		Status:           LicenseKeyStatusActive,
		CreatedByBrandID: createdByBrandID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsActive reports whether the key may be used for validation.
func (k LicenseKey) IsActive() bool {
	return k.Status == LicenseKeyStatusActive
}

// Suspend transitions active -> inactive. Suspending a key does not cascade
// to its licenses; that orchestration belongs to the caller.
func (k LicenseKey) Suspend(now time.Time) (LicenseKey, error) {
	if k.Status != LicenseKeyStatusActive {
		return LicenseKey{}, apperrors.InvalidState("cannot suspend license key in " + k.Status + " status")
	}
	k.Status = LicenseKeyStatusInactive
	k.UpdatedAt = now
	return k, nil
}

// Reactivate transitions inactive -> active.
func (k LicenseKey) Reactivate(now time.Time) (LicenseKey, error) {
	if k.Status != LicenseKeyStatusInactive {
		return LicenseKey{}, apperrors.InvalidState("cannot reactivate license key in " + k.Status + " status")
	}
	k.Status = LicenseKeyStatusActive
	k.UpdatedAt = now
	return k, nil
}

// Cancel transitions to the terminal cancelled status. Cancelling an already
// cancelled key is not an error.
func (k LicenseKey) Cancel(now time.Time) LicenseKey {
	k.Status = LicenseKeyStatusCancelled
	k.UpdatedAt = now
	return k
}
