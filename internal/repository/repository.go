// Package repository defines the persistence interfaces for licensing
// entities. One interface per entity; any backend that satisfies the
// interface can serve the services, including mocks in tests.
package repository

import (
	"context"
	"time"

	"github.com/keymint/licensing/internal/domain"
)

// BrandRepository defines persistence operations for brands.
type BrandRepository interface {
	// Create inserts a new brand. Returns an already-exists error when the
	// slug is taken by a non-deleted brand.
	Create(ctx context.Context, brand *domain.Brand) error

	// GetByID retrieves a brand by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Brand, error)

	// GetBySlug retrieves a non-deleted brand by its slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Brand, error)

	// GetByProvisioningKey retrieves a brand by its provisioning API key.
	GetByProvisioningKey(ctx context.Context, key string) (*domain.Brand, error)

	// GetByValidationKey retrieves a brand by its validation API key.
	GetByValidationKey(ctx context.Context, key string) (*domain.Brand, error)

	// Update persists a modified brand snapshot.
	Update(ctx context.Context, brand *domain.Brand) error
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	// Create inserts a new product. Returns an already-exists error when
	// the (brand_id, slug) pair is taken.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByBrandAndSlug retrieves a product by owning brand and slug.
	GetByBrandAndSlug(ctx context.Context, brandID, slug string) (*domain.Product, error)

	// ListByBrand returns all products of a brand, newest first.
	ListByBrand(ctx context.Context, brandID string) ([]domain.Product, error)

	// ListActiveByBrand returns the brand's active products, newest first.
	ListActiveByBrand(ctx context.Context, brandID string) ([]domain.Product, error)

	// Update persists a modified product snapshot.
	Update(ctx context.Context, product *domain.Product) error
}

// LicenseKeyRepository defines persistence operations for license keys.
type LicenseKeyRepository interface {
	// Create inserts a new license key. Returns an already-exists error on
	// a key-string collision; callers regenerate and retry.
	Create(ctx context.Context, key *domain.LicenseKey) error

	// GetByID retrieves a license key by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.LicenseKey, error)

	// GetByKey retrieves a license key by its customer-facing key string.
	GetByKey(ctx context.Context, key string) (*domain.LicenseKey, error)

	// ExistsByKey reports whether the key string is already taken. Advisory
	// only; the unique index is the real guarantee.
	ExistsByKey(ctx context.Context, key string) (bool, error)

	// ListByCustomer returns all keys for a brand/customer pair, newest first.
	ListByCustomer(ctx context.Context, brandID, customerEmail string) ([]domain.LicenseKey, error)

	// Update persists a modified license-key snapshot.
	Update(ctx context.Context, key *domain.LicenseKey) error
}

// LicenseRepository defines persistence operations for licenses.
type LicenseRepository interface {
	// Create inserts a new license. Returns an already-exists error when a
	// license for the (license_key_id, product_id) pair already exists.
	Create(ctx context.Context, license *domain.License) error

	// GetByID retrieves a license by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.License, error)

	// GetByKeyAndProduct retrieves the license for a (license key, product) pair.
	GetByKeyAndProduct(ctx context.Context, licenseKeyID, productID string) (*domain.License, error)

	// ListByLicenseKey returns all licenses under a key with product details,
	// newest first.
	ListByLicenseKey(ctx context.Context, licenseKeyID string) ([]domain.LicenseView, error)

	// ListValidByBrand returns the brand's valid and suspended licenses,
	// newest first.
	ListValidByBrand(ctx context.Context, brandID string) ([]domain.License, error)

	// Update persists a modified license snapshot.
	Update(ctx context.Context, license *domain.License) error

	// ExpireOverdue sets status to expired on every license whose window has
	// passed, whatever its current status, and returns the number updated.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
