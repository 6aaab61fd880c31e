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

const productColumns = "id, brand_id, name, slug, description, status, created_at, updated_at"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, brand_id, name, slug, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BrandID,
		p.Name,
		p.Slug,
		p.Description,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	return r.scanProduct(ctx, query, id)
}

// GetByBrandAndSlug retrieves a product by owning brand and slug.
func (r *ProductRepository) GetByBrandAndSlug(ctx context.Context, brandID, slug string) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE brand_id = $1 AND slug = $2"
	return r.scanProduct(ctx, query, brandID, slug)
}

// ListByBrand returns all products of a brand, newest first.
func (r *ProductRepository) ListByBrand(ctx context.Context, brandID string) ([]domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE brand_id = $1 ORDER BY created_at DESC"
	return r.listProducts(ctx, query, brandID)
}

// ListActiveByBrand returns the brand's active products, newest first.
func (r *ProductRepository) ListActiveByBrand(ctx context.Context, brandID string) ([]domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE brand_id = $1 AND status = $2 ORDER BY created_at DESC"
	return r.listProducts(ctx, query, brandID, domain.ProductStatusActive)
}

// Update persists a modified product snapshot.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Status,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *ProductRepository) listProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.BrandID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// scanProduct executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var p domain.Product

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.BrandID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}
