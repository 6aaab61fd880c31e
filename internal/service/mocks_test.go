package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/event"
	pkgkafka "github.com/keymint/licensing/pkg/kafka"
)

// --- Mock Repositories ---

type mockBrandRepository struct {
	mock.Mock
}

func (m *mockBrandRepository) Create(ctx context.Context, b *domain.Brand) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) GetBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) GetByProvisioningKey(ctx context.Context, key string) (*domain.Brand, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) GetByValidationKey(ctx context.Context, key string) (*domain.Brand, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) Update(ctx context.Context, b *domain.Brand) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByBrandAndSlug(ctx context.Context, brandID, slug string) (*domain.Product, error) {
	args := m.Called(ctx, brandID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByBrand(ctx context.Context, brandID string) ([]domain.Product, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListActiveByBrand(ctx context.Context, brandID string) ([]domain.Product, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockLicenseKeyRepository struct {
	mock.Mock
}

func (m *mockLicenseKeyRepository) Create(ctx context.Context, k *domain.LicenseKey) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *mockLicenseKeyRepository) GetByID(ctx context.Context, id string) (*domain.LicenseKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseKey), args.Error(1)
}

func (m *mockLicenseKeyRepository) GetByKey(ctx context.Context, key string) (*domain.LicenseKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseKey), args.Error(1)
}

func (m *mockLicenseKeyRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockLicenseKeyRepository) ListByCustomer(ctx context.Context, brandID, customerEmail string) ([]domain.LicenseKey, error) {
	args := m.Called(ctx, brandID, customerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LicenseKey), args.Error(1)
}

func (m *mockLicenseKeyRepository) Update(ctx context.Context, k *domain.LicenseKey) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

type mockLicenseRepository struct {
	mock.Mock
}

func (m *mockLicenseRepository) Create(ctx context.Context, l *domain.License) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockLicenseRepository) GetByID(ctx context.Context, id string) (*domain.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.License), args.Error(1)
}

func (m *mockLicenseRepository) GetByKeyAndProduct(ctx context.Context, licenseKeyID, productID string) (*domain.License, error) {
	args := m.Called(ctx, licenseKeyID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.License), args.Error(1)
}

func (m *mockLicenseRepository) ListByLicenseKey(ctx context.Context, licenseKeyID string) ([]domain.LicenseView, error) {
	args := m.Called(ctx, licenseKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LicenseView), args.Error(1)
}

func (m *mockLicenseRepository) ListValidByBrand(ctx context.Context, brandID string) ([]domain.License, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.License), args.Error(1)
}

func (m *mockLicenseRepository) Update(ctx context.Context, l *domain.License) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockLicenseRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds a producer against a broker address nobody listens
// on; publish failures are swallowed by the services under test.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newBrandService(brands *mockBrandRepository, products *mockProductRepository) *BrandService {
	return NewBrandService(brands, products, newTestProducer(), newTestLogger())
}

func newLicenseKeyService(keys *mockLicenseKeyRepository, brands *mockBrandRepository) *LicenseKeyService {
	return NewLicenseKeyService(keys, brands, newTestProducer(), newTestLogger())
}

func newLicenseService(licenses *mockLicenseRepository, keys *mockLicenseKeyRepository, products *mockProductRepository) *LicenseService {
	return NewLicenseService(licenses, keys, products, newTestProducer(), newTestLogger())
}

func activeBrand() *domain.Brand {
	now := time.Now().UTC()
	return &domain.Brand{
		ID:              "brand-1",
		Name:            "RankMath",
		Slug:            "rankmath",
		ProvisioningKey: "sk_provisioning",
		ValidationKey:   "sk_validation",
		Status:          domain.BrandStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func activeLicenseKey() *domain.LicenseKey {
	now := time.Now().UTC()
	return &domain.LicenseKey{
		ID:               "lk-1",
		BrandID:          "brand-1",
		CustomerEmail:    "john@example.com",
		Key:              "RANK-2025-A1B2C3D4E5F6",
		Status:           domain.LicenseKeyStatusActive,
		CreatedByBrandID: "brand-1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func activeProduct() *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:        "prod-1",
		BrandID:   "brand-1",
		Name:      "RankMath Pro",
		Slug:      "rankmath-pro",
		Status:    domain.ProductStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func validLicense() *domain.License {
	now := time.Now().UTC()
	return &domain.License{
		ID:           "lic-1",
		LicenseKeyID: "lk-1",
		ProductID:    "prod-1",
		Status:       domain.LicenseStatusValid,
		StartsAt:     now.AddDate(0, -1, 0),
		ExpiresAt:    now.AddDate(1, 0, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func intPtr(i int) *int {
	return &i
}
