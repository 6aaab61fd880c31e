package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keymint/licensing/internal/domain"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

func TestCreateLicenseKey_Success(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	keys.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(false, nil)
	keys.On("Create", ctx, mock.AnythingOfType("*domain.LicenseKey")).Return(nil)

	key, err := svc.CreateLicenseKey(ctx, "brand-1", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	require.NoError(t, err)
	assert.NotEmpty(t, key.ID)
	assert.Equal(t, "brand-1", key.BrandID)
	assert.Equal(t, "brand-1", key.CreatedByBrandID)
	assert.Equal(t, "john@example.com", key.CustomerEmail)
	assert.Equal(t, domain.LicenseKeyStatusActive, key.Status)
	// Brand slug "rankmath" yields the RANK acronym.
	assert.Regexp(t, `^RANK-\d{4}-[A-F0-9]{12}$`, key.Key)

	brands.AssertExpectations(t)
	keys.AssertExpectations(t)
}

func TestCreateLicenseKey_EmptyEmail(t *testing.T) {
	svc := newLicenseKeyService(new(mockLicenseKeyRepository), new(mockBrandRepository))

	key, err := svc.CreateLicenseKey(context.Background(), "brand-1", &CreateLicenseKeyInput{CustomerEmail: "  "})

	assert.Nil(t, key)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateLicenseKey_BrandNotFound(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	brands.On("GetByID", ctx, "nonexistent").Return(nil, apperrors.ErrNotFound)

	key, err := svc.CreateLicenseKey(ctx, "nonexistent", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	assert.Nil(t, key)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	brands.AssertExpectations(t)
}

func TestCreateLicenseKey_InactiveBrand(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	suspended := activeBrand()
	suspended.Status = domain.BrandStatusSuspended
	brands.On("GetByID", ctx, "brand-1").Return(suspended, nil)

	key, err := svc.CreateLicenseKey(ctx, "brand-1", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	assert.Nil(t, key)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_BRAND", appErr.Code)

	brands.AssertExpectations(t)
}

func TestCreateLicenseKey_RetriesOnCollision(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	// First candidate is taken, second is free.
	keys.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
	keys.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	keys.On("Create", ctx, mock.AnythingOfType("*domain.LicenseKey")).Return(nil)

	key, err := svc.CreateLicenseKey(ctx, "brand-1", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	require.NoError(t, err)
	assert.NotNil(t, key)

	keys.AssertExpectations(t)
}

func TestCreateLicenseKey_RetriesOnInsertRace(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	keys.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(false, nil)
	// Another instance wins the insert; the unique index bounces it.
	keys.On("Create", ctx, mock.AnythingOfType("*domain.LicenseKey")).
		Return(apperrors.AlreadyExists("license key", "key", "RANK-2025-AAAAAAAAAAAA")).Once()
	keys.On("Create", ctx, mock.AnythingOfType("*domain.LicenseKey")).Return(nil).Once()

	key, err := svc.CreateLicenseKey(ctx, "brand-1", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	require.NoError(t, err)
	assert.NotNil(t, key)

	keys.AssertExpectations(t)
}

func TestCreateLicenseKey_ExhaustsAttempts(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	brands := new(mockBrandRepository)
	svc := newLicenseKeyService(keys, brands)
	ctx := context.Background()

	brands.On("GetByID", ctx, "brand-1").Return(activeBrand(), nil)
	keys.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(true, nil)

	key, err := svc.CreateLicenseKey(ctx, "brand-1", &CreateLicenseKeyInput{CustomerEmail: "john@example.com"})

	assert.Nil(t, key)
	require.Error(t, err)
	keys.AssertNumberOfCalls(t, "ExistsByKey", maxKeyAttempts)
}

func TestGetLicenseKey_NotFound(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	keys.On("GetByID", ctx, "nonexistent").Return(nil, apperrors.ErrNotFound)

	key, err := svc.GetLicenseKey(ctx, "nonexistent")

	assert.Nil(t, key)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetLicenseKeysByCustomer_Success(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	expected := []domain.LicenseKey{*activeLicenseKey()}
	keys.On("ListByCustomer", ctx, "brand-1", "john@example.com").Return(expected, nil)

	result, err := svc.GetLicenseKeysByCustomer(ctx, "brand-1", "john@example.com")

	require.NoError(t, err)
	assert.Len(t, result, 1)

	keys.AssertExpectations(t)
}

func TestSuspendLicenseKey_Success(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	keys.On("GetByID", ctx, "lk-1").Return(activeLicenseKey(), nil)
	keys.On("Update", ctx, mock.MatchedBy(func(k *domain.LicenseKey) bool {
		return k.Status == domain.LicenseKeyStatusInactive
	})).Return(nil)

	key, err := svc.SuspendLicenseKey(ctx, "lk-1")

	require.NoError(t, err)
	assert.Equal(t, domain.LicenseKeyStatusInactive, key.Status)

	keys.AssertExpectations(t)
}

func TestSuspendLicenseKey_AlreadyInactive(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	inactive := activeLicenseKey()
	inactive.Status = domain.LicenseKeyStatusInactive
	keys.On("GetByID", ctx, "lk-1").Return(inactive, nil)

	key, err := svc.SuspendLicenseKey(ctx, "lk-1")

	assert.Nil(t, key)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	keys.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestReactivateLicenseKey_Success(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	inactive := activeLicenseKey()
	inactive.Status = domain.LicenseKeyStatusInactive
	keys.On("GetByID", ctx, "lk-1").Return(inactive, nil)
	keys.On("Update", ctx, mock.MatchedBy(func(k *domain.LicenseKey) bool {
		return k.Status == domain.LicenseKeyStatusActive
	})).Return(nil)

	key, err := svc.ReactivateLicenseKey(ctx, "lk-1")

	require.NoError(t, err)
	assert.Equal(t, domain.LicenseKeyStatusActive, key.Status)

	keys.AssertExpectations(t)
}

func TestReactivateLicenseKey_Cancelled(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	cancelled := activeLicenseKey()
	cancelled.Status = domain.LicenseKeyStatusCancelled
	keys.On("GetByID", ctx, "lk-1").Return(cancelled, nil)

	key, err := svc.ReactivateLicenseKey(ctx, "lk-1")

	assert.Nil(t, key)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCancelLicenseKey_Unconditional(t *testing.T) {
	keys := new(mockLicenseKeyRepository)
	svc := newLicenseKeyService(keys, new(mockBrandRepository))
	ctx := context.Background()

	// Cancelling an already cancelled key succeeds.
	cancelled := activeLicenseKey()
	cancelled.Status = domain.LicenseKeyStatusCancelled
	keys.On("GetByID", ctx, "lk-1").Return(cancelled, nil)
	keys.On("Update", ctx, mock.MatchedBy(func(k *domain.LicenseKey) bool {
		return k.Status == domain.LicenseKeyStatusCancelled
	})).Return(nil)

	key, err := svc.CancelLicenseKey(ctx, "lk-1")

	require.NoError(t, err)
	assert.Equal(t, domain.LicenseKeyStatusCancelled, key.Status)

	keys.AssertExpectations(t)
}
