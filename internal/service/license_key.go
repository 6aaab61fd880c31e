package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/event"
	"github.com/keymint/licensing/internal/keygen"
	"github.com/keymint/licensing/internal/repository"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

// maxKeyAttempts bounds the generate-and-retry loop on key-string collisions.
// With 48 random bits per suffix a second attempt is already rare.
const maxKeyAttempts = 5

// LicenseKeyService implements license-key issuance and its lifecycle.
type LicenseKeyService struct {
	keys     repository.LicenseKeyRepository
	brands   repository.BrandRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewLicenseKeyService creates a new license-key service.
func NewLicenseKeyService(keys repository.LicenseKeyRepository, brands repository.BrandRepository, producer *event.Producer, logger *slog.Logger) *LicenseKeyService {
	return &LicenseKeyService{
		keys:     keys,
		brands:   brands,
		producer: producer,
		logger:   logger,
	}
}

// CreateLicenseKeyInput holds the parameters for issuing a license key.
type CreateLicenseKeyInput struct {
	CustomerEmail string
}

// CreateLicenseKey issues a new key for a customer under an active brand. The
// key string embeds the brand acronym and issue year; the random suffix is
// regenerated on collision, bounded by maxKeyAttempts.
func (s *LicenseKeyService) CreateLicenseKey(ctx context.Context, brandID string, input *CreateLicenseKeyInput) (*domain.LicenseKey, error) {
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		return nil, apperrors.InvalidInput("customer email is required")
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

	acronym := keygen.Acronym(brand.Slug)

	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		keyString, err := keygen.LicenseKey(acronym)
		if err != nil {
			return nil, fmt.Errorf("generate license key: %w", err)
		}

		// Advisory check; the unique index on key is authoritative.
		exists, err := s.keys.ExistsByKey(ctx, keyString)
		if err != nil {
			return nil, fmt.Errorf("check license key exists: %w", err)
		}
		if exists {
			continue
		}

		key := domain.NewLicenseKey(keygen.NewID(), brandID, email, keyString, brandID, time.Now().UTC())

		if err := s.keys.Create(ctx, &key); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				s.logger.WarnContext(ctx, "license key collision, regenerating",
					slog.String("brand_id", brandID),
					slog.Int("attempt", attempt),
				)
				continue
			}
			return nil, fmt.Errorf("create license key: %w", err)
		}

		if err := s.producer.PublishLicenseKeyCreated(ctx, &key); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish license_key.created event",
				slog.String("license_key_id", key.ID),
				slog.String("error", err.Error()),
			)
		}

		s.logger.InfoContext(ctx, "license key created",
			slog.String("license_key_id", key.ID),
			slog.String("brand_id", brandID),
		)

		return &key, nil
	}

	return nil, apperrors.Internal(fmt.Errorf("could not generate a unique license key after %d attempts", maxKeyAttempts))
}

// GetLicenseKey retrieves a license key by its ID.
func (s *LicenseKeyService) GetLicenseKey(ctx context.Context, id string) (*domain.LicenseKey, error) {
	key, err := s.keys.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license key", id)
		}
		return nil, fmt.Errorf("get license key: %w", err)
	}
	return key, nil
}

// GetLicenseKeyByString retrieves a license key by its customer-facing string.
func (s *LicenseKeyService) GetLicenseKeyByString(ctx context.Context, keyString string) (*domain.LicenseKey, error) {
	key, err := s.keys.GetByKey(ctx, keyString)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license key", keyString)
		}
		return nil, fmt.Errorf("get license key by string: %w", err)
	}
	return key, nil
}

// GetLicenseKeysByCustomer returns a brand's keys for one customer, newest
// first.
func (s *LicenseKeyService) GetLicenseKeysByCustomer(ctx context.Context, brandID, customerEmail string) ([]domain.LicenseKey, error) {
	keys, err := s.keys.ListByCustomer(ctx, brandID, customerEmail)
	if err != nil {
		return nil, fmt.Errorf("list license keys by customer: %w", err)
	}
	return keys, nil
}

// SuspendLicenseKey transitions an active key to inactive. Licenses under the
// key are untouched.
func (s *LicenseKeyService) SuspendLicenseKey(ctx context.Context, id string) (*domain.LicenseKey, error) {
	return s.transition(ctx, id, "license key suspended", func(k domain.LicenseKey, now time.Time) (domain.LicenseKey, error) {
		return k.Suspend(now)
	})
}

// ReactivateLicenseKey transitions an inactive key back to active.
func (s *LicenseKeyService) ReactivateLicenseKey(ctx context.Context, id string) (*domain.LicenseKey, error) {
	return s.transition(ctx, id, "license key reactivated", func(k domain.LicenseKey, now time.Time) (domain.LicenseKey, error) {
		return k.Reactivate(now)
	})
}

// CancelLicenseKey cancels a key. Cancellation is terminal and, unlike the
// license lifecycle, unconditional.
func (s *LicenseKeyService) CancelLicenseKey(ctx context.Context, id string) (*domain.LicenseKey, error) {
	return s.transition(ctx, id, "license key cancelled", func(k domain.LicenseKey, now time.Time) (domain.LicenseKey, error) {
		return k.Cancel(now), nil
	})
}

func (s *LicenseKeyService) transition(ctx context.Context, id, logMsg string, fn func(domain.LicenseKey, time.Time) (domain.LicenseKey, error)) (*domain.LicenseKey, error) {
	key, err := s.keys.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("license key", id)
		}
		return nil, fmt.Errorf("get license key: %w", err)
	}

	next, err := fn(*key, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.keys.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update license key: %w", err)
	}

	if err := s.producer.PublishLicenseKeyStatusChanged(ctx, &next); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish license_key.status_changed event",
			slog.String("license_key_id", next.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, logMsg,
		slog.String("license_key_id", next.ID),
		slog.String("status", next.Status),
	)

	return &next, nil
}
