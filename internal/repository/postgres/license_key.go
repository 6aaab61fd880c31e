package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/pkg/database"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

const licenseKeyColumns = "id, brand_id, customer_email, key, status, created_by_brand_id, created_at, updated_at"

// LicenseKeyRepository implements repository.LicenseKeyRepository using PostgreSQL.
type LicenseKeyRepository struct {
	db database.DBTX
}

// NewLicenseKeyRepository creates a new PostgreSQL-backed license-key repository.
func NewLicenseKeyRepository(db database.DBTX) *LicenseKeyRepository {
	return &LicenseKeyRepository{db: db}
}

// Create inserts a new license key into the database. A unique violation on
// the key string surfaces as an already-exists error so the caller can
// regenerate and retry.
func (r *LicenseKeyRepository) Create(ctx context.Context, k *domain.LicenseKey) error {
	query := `
		INSERT INTO license_keys (id, brand_id, customer_email, key, status, created_by_brand_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		k.ID,
		k.BrandID,
		k.CustomerEmail,
		k.Key,
		k.Status,
		k.CreatedByBrandID,
		k.CreatedAt,
		k.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("license key", "key", k.Key)
		}
		return fmt.Errorf("insert license key: %w", err)
	}

	return nil
}

// GetByID retrieves a license key by its ID.
func (r *LicenseKeyRepository) GetByID(ctx context.Context, id string) (*domain.LicenseKey, error) {
	query := "SELECT " + licenseKeyColumns + " FROM license_keys WHERE id = $1"
	return r.scanLicenseKey(ctx, query, id)
}

// GetByKey retrieves a license key by its customer-facing key string.
func (r *LicenseKeyRepository) GetByKey(ctx context.Context, key string) (*domain.LicenseKey, error) {
	query := "SELECT " + licenseKeyColumns + " FROM license_keys WHERE key = $1"
	return r.scanLicenseKey(ctx, query, key)
}

// ExistsByKey reports whether the key string is already taken.
func (r *LicenseKeyRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM license_keys WHERE key = $1)", key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check license key exists: %w", err)
	}
	return exists, nil
}

// ListByCustomer returns all keys for a brand/customer pair, newest first.
func (r *LicenseKeyRepository) ListByCustomer(ctx context.Context, brandID, customerEmail string) ([]domain.LicenseKey, error) {
	query := "SELECT " + licenseKeyColumns + ` FROM license_keys
		WHERE brand_id = $1 AND customer_email = $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, brandID, customerEmail)
	if err != nil {
		return nil, fmt.Errorf("list license keys: %w", err)
	}
	defer rows.Close()

	keys := []domain.LicenseKey{}
	for rows.Next() {
		var k domain.LicenseKey
		if err := rows.Scan(
			&k.ID,
			&k.BrandID,
			&k.CustomerEmail,
			&k.Key,
			&k.Status,
			&k.CreatedByBrandID,
			&k.CreatedAt,
			&k.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan license key row: %w", err)
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate license key rows: %w", err)
	}

	return keys, nil
}

// Update persists a modified license-key snapshot.
func (r *LicenseKeyRepository) Update(ctx context.Context, k *domain.LicenseKey) error {
	query := `
		UPDATE license_keys
		SET customer_email = $1, status = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query,
		k.CustomerEmail,
		k.Status,
		k.UpdatedAt,
		k.ID,
	)
	if err != nil {
		return fmt.Errorf("update license key: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanLicenseKey executes a query expected to return a single license-key row.
func (r *LicenseKeyRepository) scanLicenseKey(ctx context.Context, query string, args ...any) (*domain.LicenseKey, error) {
	var k domain.LicenseKey

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&k.ID,
		&k.BrandID,
		&k.CustomerEmail,
		&k.Key,
		&k.Status,
		&k.CreatedByBrandID,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan license key: %w", err)
	}

	return &k, nil
}
