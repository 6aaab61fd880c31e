package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keymint/licensing/internal/domain"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple name",
			input:    "Rank Math",
			expected: "rank-math",
		},
		{
			name:     "name with special characters",
			input:    "WP Rocket (2025 Edition)",
			expected: "wp-rocket-2025-edition",
		},
		{
			name:     "name with extra spaces",
			input:    "  Content   AI  ",
			expected: "content-ai",
		},
		{
			name:     "already a slug",
			input:    "wp-rocket",
			expected: "wp-rocket",
		},
		{
			name:     "single word",
			input:    "RankMath",
			expected: "rankmath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateSlug(tt.input))
		})
	}
}

func TestRegisterBrand_Success(t *testing.T) {
	brands := new(mockBrandRepository)
	products := new(mockProductRepository)
	svc := newBrandService(brands, products)
	ctx := context.Background()

	brands.On("GetBySlug", ctx, "rankmath").Return(nil, apperrors.ErrNotFound)
	brands.On("Create", ctx, mock.AnythingOfType("*domain.Brand")).Return(nil)

	brand, err := svc.RegisterBrand(ctx, &RegisterBrandInput{Name: "RankMath", Slug: "rankmath"})

	require.NoError(t, err)
	assert.NotEmpty(t, brand.ID)
	assert.Equal(t, "RankMath", brand.Name)
	assert.Equal(t, "rankmath", brand.Slug)
	assert.Equal(t, domain.BrandStatusActive, brand.Status)
	assert.Regexp(t, `^sk_[0-9a-f]{64}$`, brand.ProvisioningKey)
	assert.Regexp(t, `^sk_[0-9a-f]{64}$`, brand.ValidationKey)
	assert.NotEqual(t, brand.ProvisioningKey, brand.ValidationKey)

	brands.AssertExpectations(t)
}

func TestRegisterBrand_SlugGeneratedFromName(t *testing.T) {
	brands := new(mockBrandRepository)
	products := new(mockProductRepository)
	svc := newBrandService(brands, products)
	ctx := context.Background()

	brands.On("GetBySlug", ctx, "wp-rocket").Return(nil, apperrors.ErrNotFound)
	brands.On("Create", ctx, mock.AnythingOfType("*domain.Brand")).Return(nil)

	brand, err := svc.RegisterBrand(ctx, &RegisterBrandInput{Name: "WP Rocket"})

	require.NoError(t, err)
	assert.Equal(t, "wp-rocket", brand.Slug)

	brands.AssertExpectations(t)
}

func TestRegisterBrand_EmptyName(t *testing.T) {
	svc := newBrandService(new(mockBrandRepository), new(mockProductRepository))

	brand, err := svc.RegisterBrand(context.Background(), &RegisterBrandInput{Name: ""})

	assert.Nil(t, brand)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegisterBrand_DuplicateSlug(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetBySlug", ctx, "rankmath").Return(activeBrand(), nil)

	brand, err := svc.RegisterBrand(ctx, &RegisterBrandInput{Name: "RankMath", Slug: "rankmath"})

	assert.Nil(t, brand)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_BRAND", appErr.Code)

	brands.AssertExpectations(t)
}

func TestRegisterBrand_RaceOnInsert(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetBySlug", ctx, "rankmath").Return(nil, apperrors.ErrNotFound)
	brands.On("Create", ctx, mock.AnythingOfType("*domain.Brand")).
		Return(apperrors.AlreadyExists("brand", "slug", "rankmath"))

	brand, err := svc.RegisterBrand(ctx, &RegisterBrandInput{Name: "RankMath", Slug: "rankmath"})

	assert.Nil(t, brand)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_BRAND", appErr.Code)

	brands.AssertExpectations(t)
}

func TestGetBrand_NotFound(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetByID", ctx, "nonexistent").Return(nil, apperrors.ErrNotFound)

	brand, err := svc.GetBrand(ctx, "nonexistent")

	assert.Nil(t, brand)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	brands.AssertExpectations(t)
}

func TestAuthenticateByProvisioningKey_Success(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	expected := activeBrand()
	brands.On("GetByProvisioningKey", ctx, "sk_provisioning").Return(expected, nil)

	brand, err := svc.AuthenticateByProvisioningKey(ctx, "sk_provisioning")

	require.NoError(t, err)
	assert.Equal(t, expected.ID, brand.ID)

	brands.AssertExpectations(t)
}

func TestAuthenticateByProvisioningKey_UnknownKey(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetByProvisioningKey", ctx, "sk_bogus").Return(nil, apperrors.ErrNotFound)

	brand, err := svc.AuthenticateByProvisioningKey(ctx, "sk_bogus")

	assert.Nil(t, brand)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	brands.AssertExpectations(t)
}

func TestAuthenticateByProvisioningKey_SuspendedBrand(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	suspended := activeBrand()
	suspended.Status = domain.BrandStatusSuspended
	brands.On("GetByProvisioningKey", ctx, "sk_provisioning").Return(suspended, nil)

	brand, err := svc.AuthenticateByProvisioningKey(ctx, "sk_provisioning")

	assert.Nil(t, brand)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	brands.AssertExpectations(t)
}

func TestAuthenticateByValidationKey_Success(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	expected := activeBrand()
	brands.On("GetByValidationKey", ctx, "sk_validation").Return(expected, nil)

	brand, err := svc.AuthenticateByValidationKey(ctx, "sk_validation")

	require.NoError(t, err)
	assert.Equal(t, expected.ID, brand.ID)

	brands.AssertExpectations(t)
}

func TestCreateProduct_Success(t *testing.T) {
	brands := new(mockBrandRepository)
	products := new(mockProductRepository)
	svc := newBrandService(brands, products)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	products.On("GetByBrandAndSlug", ctx, "brand-1", "rankmath-pro").Return(nil, apperrors.ErrNotFound)
	products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	product, err := svc.CreateProduct(ctx, "brand-1", &CreateProductInput{
		Name:        "RankMath Pro",
		Slug:        "rankmath-pro",
		Description: "SEO plugin",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "brand-1", product.BrandID)
	assert.Equal(t, domain.ProductStatusActive, product.Status)

	brands.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestCreateProduct_BrandNotFound(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetByID", ctx, "nonexistent").Return(nil, apperrors.ErrNotFound)

	product, err := svc.CreateProduct(ctx, "nonexistent", &CreateProductInput{Name: "RankMath Pro"})

	assert.Nil(t, product)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	brands.AssertExpectations(t)
}

func TestCreateProduct_InactiveBrand(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	suspended := activeBrand()
	suspended.Status = domain.BrandStatusSuspended
	brands.On("GetByID", ctx, "brand-1").Return(suspended, nil)

	product, err := svc.CreateProduct(ctx, "brand-1", &CreateProductInput{Name: "RankMath Pro"})

	assert.Nil(t, product)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_BRAND", appErr.Code)

	brands.AssertExpectations(t)
}

func TestCreateProduct_DuplicateSlug(t *testing.T) {
	brands := new(mockBrandRepository)
	products := new(mockProductRepository)
	svc := newBrandService(brands, products)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	products.On("GetByBrandAndSlug", ctx, "brand-1", "rankmath-pro").Return(activeProduct(), nil)

	product, err := svc.CreateProduct(ctx, "brand-1", &CreateProductInput{Name: "RankMath Pro"})

	assert.Nil(t, product)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_BRAND", appErr.Code)

	brands.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestGetBrandProducts_Success(t *testing.T) {
	products := new(mockProductRepository)
	svc := newBrandService(new(mockBrandRepository), products)
	ctx := context.Background()

	expected := []domain.Product{*activeProduct()}
	products.On("ListByBrand", ctx, "brand-1").Return(expected, nil)

	result, err := svc.GetBrandProducts(ctx, "brand-1")

	require.NoError(t, err)
	assert.Len(t, result, 1)

	products.AssertExpectations(t)
}

func TestDeleteBrand_Success(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	brands.On("Update", ctx, mock.MatchedBy(func(b *domain.Brand) bool {
		return b.IsDeleted() && b.Status == domain.BrandStatusDeleted
	})).Return(nil)

	err := svc.DeleteBrand(ctx, "brand-1")

	require.NoError(t, err)
	brands.AssertExpectations(t)
}

func TestDeleteBrand_AlreadyDeleted(t *testing.T) {
	brands := new(mockBrandRepository)
	svc := newBrandService(brands, new(mockProductRepository))
	ctx := context.Background()

	deleted := activeBrand().Delete(time.Now().UTC())
	brands.On("GetByID", ctx, "brand-1").Return(&deleted, nil)

	err := svc.DeleteBrand(ctx, "brand-1")

	require.NoError(t, err)
	brands.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
