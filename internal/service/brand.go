package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/event"
	"github.com/keymint/licensing/internal/keygen"
	"github.com/keymint/licensing/internal/repository"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

// slugRegexp matches characters not allowed in a slug.
var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// BrandService implements tenant registration, API-key authentication, and
// product catalog management.
type BrandService struct {
	brands   repository.BrandRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewBrandService creates a new brand service.
func NewBrandService(brands repository.BrandRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *BrandService {
	return &BrandService{
		brands:   brands,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// RegisterBrandInput holds the parameters for registering a brand.
type RegisterBrandInput struct {
	Name string
	Slug string
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Description string
}

// RegisterBrand registers a new tenant and mints its provisioning and
// validation API keys. The keys are returned exactly once, on the brand
// snapshot this call produces; they are never serialized afterwards.
func (s *BrandService) RegisterBrand(ctx context.Context, input *RegisterBrandInput) (*domain.Brand, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("brand name is required")
	}

	slug := input.Slug
	if slug == "" {
		slug = generateSlug(input.Name)
	}
	if slug == "" {
		return nil, apperrors.InvalidInput("brand slug is required")
	}

	if _, err := s.brands.GetBySlug(ctx, slug); err == nil {
		return nil, apperrors.InvalidBrand(fmt.Sprintf("brand with slug %q already exists", slug))
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check brand slug: %w", err)
	}

	provisioningKey, err := keygen.NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate provisioning key: %w", err)
	}
	validationKey, err := keygen.NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate validation key: %w", err)
	}

	brand := domain.NewBrand(keygen.NewID(), input.Name, slug, provisioningKey, validationKey, time.Now().UTC())

	if err := s.brands.Create(ctx, &brand); err != nil {
		// A concurrent registration may win the slug between the
		// pre-check and the insert.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.InvalidBrand(fmt.Sprintf("brand with slug %q already exists", slug))
		}
		return nil, fmt.Errorf("create brand: %w", err)
	}

	if err := s.producer.PublishBrandRegistered(ctx, &brand); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish brand.registered event",
			slog.String("brand_id", brand.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "brand registered",
		slog.String("brand_id", brand.ID),
		slog.String("slug", brand.Slug),
	)

	return &brand, nil
}

// GetBrand retrieves a brand by its ID.
func (s *BrandService) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	brand, err := s.brands.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("brand", id)
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return brand, nil
}

// GetBrandBySlug retrieves a non-deleted brand by its slug.
func (s *BrandService) GetBrandBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	brand, err := s.brands.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("brand", slug)
		}
		return nil, fmt.Errorf("get brand by slug: %w", err)
	}
	return brand, nil
}

// AuthenticateByProvisioningKey resolves a provisioning API key to its brand.
// The provisioning and validation keys are disjoint trust domains; a key from
// one never authenticates the other.
func (s *BrandService) AuthenticateByProvisioningKey(ctx context.Context, key string) (*domain.Brand, error) {
	return s.authenticate(s.brands.GetByProvisioningKey, ctx, key)
}

// AuthenticateByValidationKey resolves a validation API key to its brand.
func (s *BrandService) AuthenticateByValidationKey(ctx context.Context, key string) (*domain.Brand, error) {
	return s.authenticate(s.brands.GetByValidationKey, ctx, key)
}

func (s *BrandService) authenticate(lookup func(context.Context, string) (*domain.Brand, error), ctx context.Context, key string) (*domain.Brand, error) {
	brand, err := lookup(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid API key")
		}
		return nil, fmt.Errorf("authenticate brand: %w", err)
	}

	if !brand.IsActive() {
		return nil, apperrors.Unauthorized("invalid API key")
	}

	return brand, nil
}

// CreateProduct creates a product under an active brand.
func (s *BrandService) CreateProduct(ctx context.Context, brandID string, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}

	brand, err := s.brands.GetByID(ctx, brandID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("brand", brandID)
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	if !brand.IsActive() {
		return nil, apperrors.InvalidBrand("brand is not active")
	}

	slug := input.Slug
	if slug == "" {
		slug = generateSlug(input.Name)
	}

	if _, err := s.products.GetByBrandAndSlug(ctx, brandID, slug); err == nil {
		return nil, apperrors.InvalidBrand(fmt.Sprintf("product with slug %q already exists for this brand", slug))
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check product slug: %w", err)
	}

	product := domain.NewProduct(keygen.NewID(), brandID, input.Name, slug, input.Description, time.Now().UTC())

	if err := s.products.Create(ctx, &product); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.InvalidBrand(fmt.Sprintf("product with slug %q already exists for this brand", slug))
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, &product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("brand_id", brandID),
		slog.String("slug", product.Slug),
	)

	return &product, nil
}

// GetProduct retrieves a product by its ID.
func (s *BrandService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// GetProductByBrandAndSlug retrieves a product by owning brand and slug.
func (s *BrandService) GetProductByBrandAndSlug(ctx context.Context, brandID, slug string) (*domain.Product, error) {
	product, err := s.products.GetByBrandAndSlug(ctx, brandID, slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", slug)
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return product, nil
}

// GetBrandProducts returns all products of a brand, newest first.
func (s *BrandService) GetBrandProducts(ctx context.Context, brandID string) ([]domain.Product, error) {
	products, err := s.products.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("list brand products: %w", err)
	}
	return products, nil
}

// GetActiveBrandProducts returns the brand's active products, newest first.
func (s *BrandService) GetActiveBrandProducts(ctx context.Context, brandID string) ([]domain.Product, error) {
	products, err := s.products.ListActiveByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("list active brand products: %w", err)
	}
	return products, nil
}

// DeleteBrand soft-deletes a brand. Deletion is one-way; the slug becomes
// reusable but the row is kept.
func (s *BrandService) DeleteBrand(ctx context.Context, id string) error {
	brand, err := s.brands.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("brand", id)
		}
		return fmt.Errorf("get brand for delete: %w", err)
	}

	if brand.IsDeleted() {
		return nil
	}

	deleted := brand.Delete(time.Now().UTC())
	if err := s.brands.Update(ctx, &deleted); err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}

	s.logger.InfoContext(ctx, "brand deleted",
		slog.String("brand_id", id),
	)

	return nil
}

// generateSlug creates a URL-friendly slug from the given name.
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugRegexp.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}
