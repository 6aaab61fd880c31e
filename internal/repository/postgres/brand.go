package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/pkg/database"
	apperrors "github.com/keymint/licensing/pkg/errors"
)

const brandColumns = "id, name, slug, provisioning_key, validation_key, status, created_at, updated_at, deleted_at"

// BrandRepository implements repository.BrandRepository using PostgreSQL.
type BrandRepository struct {
	db database.DBTX
}

// NewBrandRepository creates a new PostgreSQL-backed brand repository.
func NewBrandRepository(db database.DBTX) *BrandRepository {
	return &BrandRepository{db: db}
}

// Create inserts a new brand into the database.
func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) error {
	query := `
		INSERT INTO brands (id, name, slug, provisioning_key, validation_key, status, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.Name,
		b.Slug,
		b.ProvisioningKey,
		b.ValidationKey,
		b.Status,
		b.CreatedAt,
		b.UpdatedAt,
		b.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "slug", b.Slug)
		}
		return fmt.Errorf("insert brand: %w", err)
	}

	return nil
}

// GetByID retrieves a brand by its ID.
func (r *BrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	query := "SELECT " + brandColumns + " FROM brands WHERE id = $1"
	return r.scanBrand(ctx, query, id)
}

// GetBySlug retrieves a non-deleted brand by its slug.
func (r *BrandRepository) GetBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	query := "SELECT " + brandColumns + " FROM brands WHERE slug = $1 AND deleted_at IS NULL"
	return r.scanBrand(ctx, query, slug)
}

// GetByProvisioningKey retrieves a brand by its provisioning API key.
func (r *BrandRepository) GetByProvisioningKey(ctx context.Context, key string) (*domain.Brand, error) {
	query := "SELECT " + brandColumns + " FROM brands WHERE provisioning_key = $1"
	return r.scanBrand(ctx, query, key)
}

// GetByValidationKey retrieves a brand by its validation API key.
func (r *BrandRepository) GetByValidationKey(ctx context.Context, key string) (*domain.Brand, error) {
	query := "SELECT " + brandColumns + " FROM brands WHERE validation_key = $1"
	return r.scanBrand(ctx, query, key)
}

// Update persists a modified brand snapshot.
func (r *BrandRepository) Update(ctx context.Context, b *domain.Brand) error {
	query := `
		UPDATE brands
		SET name = $1, slug = $2, status = $3, updated_at = $4, deleted_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		b.Name,
		b.Slug,
		b.Status,
		b.UpdatedAt,
		b.DeletedAt,
		b.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "slug", b.Slug)
		}
		return fmt.Errorf("update brand: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanBrand executes a query expected to return a single brand row.
func (r *BrandRepository) scanBrand(ctx context.Context, query string, args ...any) (*domain.Brand, error) {
	var b domain.Brand

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&b.ID,
		&b.Name,
		&b.Slug,
		&b.ProvisioningKey,
		&b.ValidationKey,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan brand: %w", err)
	}

	return &b, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
