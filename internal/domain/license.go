package domain

import (
	"time"

	apperrors "github.com/keymint/licensing/pkg/errors"
)

// License status constants.
const (
	LicenseStatusValid     = "valid"
	LicenseStatusSuspended = "suspended"
	LicenseStatusCancelled = "cancelled"
	LicenseStatusExpired   = "expired"
)

// License is a single (license key, product) entitlement with its own
// lifecycle and validity window.
type License struct {
	ID           string     `json:"id"`
	LicenseKeyID string     `json:"license_key_id"`
	ProductID    string     `json:"product_id"`
	Status       string     `json:"status"`
	SeatLimit    *int       `json:"seat_limit,omitempty"`
	StartsAt     time.Time  `json:"starts_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewLicense creates a valid license snapshot. ExpiresAt must be strictly
// after StartsAt. SeatLimit is an optional capacity value carried opaquely;
// no seat accounting happens here.
func NewLicense(id, licenseKeyID, productID string, startsAt, expiresAt, now time.Time) (License, error) {
	if !expiresAt.After(startsAt) {
		return License{}, apperrors.InvalidInput("expiration date must be after start date")
	}
	return License{
		ID:           id,
		LicenseKeyID: licenseKeyID,
		ProductID:    productID,
		Status:       LicenseStatusValid,
		StartsAt:     startsAt,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsValid reports whether the license entitles product use at the given
// instant. The validity window bounds are inclusive.
func (l License) IsValid(now time.Time) bool {
	if l.Status != LicenseStatusValid {
		return false
	}
	if now.Before(l.StartsAt) || now.After(l.ExpiresAt) {
		return false
	}
	return true
}

// IsExpired reports whether the validity window has passed, regardless of
// status.
func (l License) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// CanActivate reports whether Activate would succeed.
func (l License) CanActivate() bool {
	return l.ActivatedAt == nil && l.Status == LicenseStatusValid
}

// Activate records the license's first real-world use. ActivatedAt is set
// exactly once and never cleared.
func (l License) Activate(now time.Time) (License, error) {
	if !l.CanActivate() {
		return License{}, apperrors.InvalidState("license cannot be activated in its current state")
	}
	l.ActivatedAt = &now
	l.UpdatedAt = now
	return l, nil
}

// Suspend transitions valid -> suspended.
func (l License) Suspend(now time.Time) (License, error) {
	if l.Status != LicenseStatusValid {
		return License{}, apperrors.InvalidState("cannot suspend license in " + l.Status + " status")
	}
	l.Status = LicenseStatusSuspended
	l.UpdatedAt = now
	return l, nil
}

// Reactivate transitions suspended -> valid.
func (l License) Reactivate(now time.Time) (License, error) {
	if l.Status != LicenseStatusSuspended {
		return License{}, apperrors.InvalidState("can only reactivate suspended licenses")
	}
	l.Status = LicenseStatusValid
	l.UpdatedAt = now
	return l, nil
}

// Cancel transitions to the terminal cancelled status. Unlike LicenseKey,
// re-cancelling a cancelled license is rejected.
func (l License) Cancel(now time.Time) (License, error) {
	if l.Status == LicenseStatusCancelled {
		return License{}, apperrors.InvalidState("license is already cancelled")
	}
	l.Status = LicenseStatusCancelled
	l.UpdatedAt = now
	return l, nil
}

// MarkExpired sets the expired status unconditionally. The expiry sweep
// applies it to every license whose window has passed, whatever its status.
func (l License) MarkExpired(now time.Time) License {
	l.Status = LicenseStatusExpired
	l.UpdatedAt = now
	return l
}

// LicenseView is a license joined with the product it entitles, as returned
// by the validation API.
type LicenseView struct {
	License
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
}
