package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/event"
	"github.com/keymint/licensing/internal/keygen"
	"github.com/keymint/licensing/internal/repository"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

// LicenseService implements entitlement issuance, validation, and lifecycle.
type LicenseService struct {
	licenses repository.LicenseRepository
	keys     repository.LicenseKeyRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewLicenseService creates a new license service.
func NewLicenseService(licenses repository.LicenseRepository, keys repository.LicenseKeyRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *LicenseService {
	return &LicenseService{
		licenses: licenses,
		keys:     keys,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// CreateLicenseInput holds the parameters for creating a license.
type CreateLicenseInput struct {
	LicenseKeyID string
	ProductID    string
	StartsAt     time.Time
	ExpiresAt    time.Time
	SeatLimit    *int
}

// CreateLicense creates an entitlement for a (license key, product) pair. The
// key and product must belong to the same brand, and a key holds at most one
// license per product.
func (s *LicenseService) CreateLicense(ctx context.Context, input *CreateLicenseInput) (*domain.License, error) {
	if input.SeatLimit != nil && *input.SeatLimit <= 0 {
		return nil, apperrors.InvalidInput("seat limit must be a positive integer")
	}

	key, err := s.keys.GetByID(ctx, input.LicenseKeyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license key", input.LicenseKeyID)
		}
		return nil, fmt.Errorf("get license key: %w", err)
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", input.ProductID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if product.BrandID != key.BrandID {
		return nil, apperrors.BrandMismatch("license key and product belong to different brands")
	}

	if _, err := s.licenses.GetByKeyAndProduct(ctx, key.ID, product.ID); err == nil {
		return nil, apperrors.DuplicateLicense(key.ID, product.ID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing license: %w", err)
	}

	now := time.Now().UTC()
	startsAt := input.StartsAt
	if startsAt.IsZero() {
		startsAt = now
	}

	license, err := domain.NewLicense(keygen.NewID(), key.ID, product.ID, startsAt, input.ExpiresAt, now)
	if err != nil {
		return nil, err
	}
	license.SeatLimit = input.SeatLimit

	if err := s.licenses.Create(ctx, &license); err != nil {
		// A concurrent create may win the (key, product) pair between
		// the pre-check and the insert.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.DuplicateLicense(key.ID, product.ID)
		}
		return nil, fmt.Errorf("create license: %w", err)
	}

	if err := s.producer.PublishLicenseCreated(ctx, &license); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish license.created event",
			slog.String("license_id", license.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "license created",
		slog.String("license_id", license.ID),
		slog.String("license_key_id", key.ID),
		slog.String("product_id", product.ID),
	)

	return &license, nil
}

// GetLicense retrieves a license by its ID.
func (s *LicenseService) GetLicense(ctx context.Context, id string) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license", id)
		}
		return nil, fmt.Errorf("get license: %w", err)
	}
	return license, nil
}

// ValidateLicense resolves a key string and product to a license view, or nil
// when the key misses, the license misses, or the license is not currently
// valid. Callers treat nil as "not found or invalid" without distinguishing.
//
// The caller's tenant is authenticated by the validation API key, but the
// resolved license's owning brand is not compared against it here.
func (s *LicenseService) ValidateLicense(ctx context.Context, keyString, productID string) (*domain.LicenseView, error) {
	key, err := s.keys.GetByKey(ctx, keyString)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get license key by string: %w", err)
	}

	license, err := s.licenses.GetByKeyAndProduct(ctx, key.ID, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get license: %w", err)
	}

	if !license.IsValid(time.Now().UTC()) {
		return nil, nil
	}

	view := domain.LicenseView{License: *license, ProductName: "Unknown"}
	if product, err := s.products.GetByID(ctx, productID); err == nil {
		view.ProductName = product.Name
		view.ProductSlug = product.Slug
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get product for license view: %w", err)
	}

	return &view, nil
}

// ActivateLicense records the license's first use. Activation happens at most
// once; a second call fails without touching the stored timestamp.
func (s *LicenseService) ActivateLicense(ctx context.Context, id string) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license", id)
		}
		return nil, fmt.Errorf("get license: %w", err)
	}

	next, err := license.Activate(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.licenses.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update license: %w", err)
	}

	if err := s.producer.PublishLicenseActivated(ctx, &next); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish license.activated event",
			slog.String("license_id", next.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "license activated",
		slog.String("license_id", next.ID),
	)

	return &next, nil
}

// SuspendLicense transitions a valid license to suspended.
func (s *LicenseService) SuspendLicense(ctx context.Context, id string) (*domain.License, error) {
	return s.transition(ctx, id, "license suspended", domain.License.Suspend)
}

// ReactivateLicense transitions a suspended license back to valid.
func (s *LicenseService) ReactivateLicense(ctx context.Context, id string) (*domain.License, error) {
	return s.transition(ctx, id, "license reactivated", domain.License.Reactivate)
}

// CancelLicense cancels a license. Re-cancelling is rejected, unlike the
// license-key lifecycle.
func (s *LicenseService) CancelLicense(ctx context.Context, id string) (*domain.License, error) {
	return s.transition(ctx, id, "license cancelled", domain.License.Cancel)
}

// MarkExpiredLicenses force-expires every license whose window has passed and
// is not already expired, and returns how many rows changed.
func (s *LicenseService) MarkExpiredLicenses(ctx context.Context) (int64, error) {
	count, err := s.licenses.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark expired licenses: %w", err)
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "expired overdue licenses",
			slog.Int64("count", count),
		)
	}

	return count, nil
}

// GetLicensesByKey returns the denormalized license views under a key ID.
func (s *LicenseService) GetLicensesByKey(ctx context.Context, licenseKeyID string) ([]domain.LicenseView, error) {
	views, err := s.licenses.ListByLicenseKey(ctx, licenseKeyID)
	if err != nil {
		return nil, fmt.Errorf("list licenses by key: %w", err)
	}
	return views, nil
}

// GetLicensesByKeyString resolves a key string and returns its license views.
func (s *LicenseService) GetLicensesByKeyString(ctx context.Context, keyString string) ([]domain.LicenseView, error) {
	key, err := s.keys.GetByKey(ctx, keyString)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license key", keyString)
		}
		return nil, fmt.Errorf("get license key by string: %w", err)
	}
	return s.GetLicensesByKey(ctx, key.ID)
}

// GetValidLicensesByBrand returns the brand's valid and suspended licenses.
func (s *LicenseService) GetValidLicensesByBrand(ctx context.Context, brandID string) ([]domain.License, error) {
	licenses, err := s.licenses.ListValidByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("list valid licenses by brand: %w", err)
	}
	return licenses, nil
}

func (s *LicenseService) transition(ctx context.Context, id, logMsg string, fn func(domain.License, time.Time) (domain.License, error)) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license", id)
		}
		return nil, fmt.Errorf("get license: %w", err)
	}

	next, err := fn(*license, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.licenses.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update license: %w", err)
	}

	if err := s.producer.PublishLicenseStatusChanged(ctx, &next); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish license.status_changed event",
			slog.String("license_id", next.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, logMsg,
		slog.String("license_id", next.ID),
		slog.String("status", next.Status),
	)

	return &next, nil
}
