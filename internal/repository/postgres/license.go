package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/pkg/database"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

const licenseColumns = "id, license_key_id, product_id, status, seat_limit, starts_at, expires_at, activated_at, created_at, updated_at"

// LicenseRepository implements repository.LicenseRepository using PostgreSQL.
// Validation-path queries are traced; they sit on the hot path of every
// product installation phoning home.
type LicenseRepository struct {
	db database.DBTX
}

// NewLicenseRepository creates a new PostgreSQL-backed license repository.
func NewLicenseRepository(db database.DBTX) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// Create inserts a new license into the database.
func (r *LicenseRepository) Create(ctx context.Context, l *domain.License) error {
	query := `
		INSERT INTO licenses (id, license_key_id, product_id, status, seat_limit, starts_at, expires_at, activated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		l.ID,
		l.LicenseKeyID,
		l.ProductID,
		l.Status,
		l.SeatLimit,
		l.StartsAt,
		l.ExpiresAt,
		l.ActivatedAt,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("license", "product", l.ProductID)
		}
		return fmt.Errorf("insert license: %w", err)
	}

	return nil
}

// GetByID retrieves a license by its ID.
func (r *LicenseRepository) GetByID(ctx context.Context, id string) (*domain.License, error) {
	query := "SELECT " + licenseColumns + " FROM licenses WHERE id = $1"
	return r.scanLicense(ctx, query, id)
}

// GetByKeyAndProduct retrieves the license for a (license key, product) pair.
func (r *LicenseRepository) GetByKeyAndProduct(ctx context.Context, licenseKeyID, productID string) (*domain.License, error) {
	query := "SELECT " + licenseColumns + " FROM licenses WHERE license_key_id = $1 AND product_id = $2"

	ctx, end := database.TraceQuery(ctx, "GetLicenseByKeyAndProduct", query)
	l, err := r.scanLicense(ctx, query, licenseKeyID, productID)
	end(err)
	return l, err
}

// ListByLicenseKey returns all licenses under a key joined with product
// details, newest first. A license whose product row is gone still appears,
// with "Unknown" as the product name.
func (r *LicenseRepository) ListByLicenseKey(ctx context.Context, licenseKeyID string) ([]domain.LicenseView, error) {
	query := `
		SELECT l.id, l.license_key_id, l.product_id, l.status, l.seat_limit, l.starts_at, l.expires_at, l.activated_at, l.created_at, l.updated_at,
		       COALESCE(p.name, 'Unknown'), COALESCE(p.slug, '')
		FROM licenses l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.license_key_id = $1
		ORDER BY l.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "ListLicensesByKey", query)
	rows, err := r.db.Query(ctx, query, licenseKeyID)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	views := []domain.LicenseView{}
	for rows.Next() {
		var v domain.LicenseView
		if err := rows.Scan(
			&v.ID,
			&v.LicenseKeyID,
			&v.ProductID,
			&v.Status,
			&v.SeatLimit,
			&v.StartsAt,
			&v.ExpiresAt,
			&v.ActivatedAt,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.ProductName,
			&v.ProductSlug,
		); err != nil {
			end(err)
			return nil, fmt.Errorf("scan license row: %w", err)
		}
		views = append(views, v)
	}

	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate license rows: %w", err)
	}

	return views, nil
}

// ListValidByBrand returns the brand's valid and suspended licenses, newest first.
func (r *LicenseRepository) ListValidByBrand(ctx context.Context, brandID string) ([]domain.License, error) {
	query := `
		SELECT l.id, l.license_key_id, l.product_id, l.status, l.seat_limit, l.starts_at, l.expires_at, l.activated_at, l.created_at, l.updated_at
		FROM licenses l
		INNER JOIN license_keys lk ON lk.id = l.license_key_id
		WHERE lk.brand_id = $1 AND l.status IN ($2, $3)
		ORDER BY l.created_at DESC`

	rows, err := r.db.Query(ctx, query, brandID, domain.LicenseStatusValid, domain.LicenseStatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("list licenses by brand: %w", err)
	}
	defer rows.Close()

	licenses := []domain.License{}
	for rows.Next() {
		var l domain.License
		if err := rows.Scan(
			&l.ID,
			&l.LicenseKeyID,
			&l.ProductID,
			&l.Status,
			&l.SeatLimit,
			&l.StartsAt,
			&l.ExpiresAt,
			&l.ActivatedAt,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan license row: %w", err)
		}
		licenses = append(licenses, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate license rows: %w", err)
	}

	return licenses, nil
}

// Update persists a modified license snapshot.
func (r *LicenseRepository) Update(ctx context.Context, l *domain.License) error {
	query := `
		UPDATE licenses
		SET status = $1, starts_at = $2, expires_at = $3, activated_at = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		l.Status,
		l.StartsAt,
		l.ExpiresAt,
		l.ActivatedAt,
		l.UpdatedAt,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("update license: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ExpireOverdue marks every license whose window has passed as expired,
// whatever its current status, in a single statement. Safe to run
// concurrently from multiple instances.
func (r *LicenseRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE licenses
		SET status = $1, updated_at = $2
		WHERE expires_at < $2 AND status != $1`

	ctx, end := database.TraceQuery(ctx, "ExpireOverdueLicenses", query)
	ct, err := r.db.Exec(ctx, query, domain.LicenseStatusExpired, now)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("expire overdue licenses: %w", err)
	}

	return ct.RowsAffected(), nil
}

// scanLicense executes a query expected to return a single license row.
func (r *LicenseRepository) scanLicense(ctx context.Context, query string, args ...any) (*domain.License, error) {
	var l domain.License

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&l.ID,
		&l.LicenseKeyID,
		&l.ProductID,
		&l.Status,
		&l.SeatLimit,
		&l.StartsAt,
		&l.ExpiresAt,
		&l.ActivatedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan license: %w", err)
	}

	return &l, nil
}
