package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

const productColumns = `p.id::text, p.name, p.description, p.price,
		COALESCE(p.category_id::text, ''), COALESCE(c.name, ''),
		p.image_urls, p.stock_quantity, p.is_featured`

const (
	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.created_at, p.name`

	listProductsByCategoryIDSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = $1::uuid
		ORDER BY p.created_at, p.name`

	listProductsByCategoryNameSQL = `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE LOWER(c.name) = LOWER($1) OR c.slug = LOWER($1)
		ORDER BY p.created_at, p.name`

	listFeaturedSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_featured
		ORDER BY p.created_at, p.name
		LIMIT $1`

	getProductSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1::uuid`

	getStockSQL = `SELECT stock_quantity FROM products WHERE id = $1::uuid`

	listCategoriesSQL = `SELECT id::text, name, slug, description FROM categories ORDER BY name`
)

var _ product.Catalog = (*Catalog)(nil)

// Catalog implements product.Catalog backed by PostgreSQL.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog returns a Catalog that uses the given pool.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// ListProducts returns the products matching f.
func (c *Catalog) ListProducts(ctx context.Context, f product.Filter) ([]product.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case f.Category == "":
		rows, err = c.pool.Query(ctx, listProductsSQL)
	case f.ByCategoryID():
		rows, err = c.pool.Query(ctx, listProductsByCategoryIDSQL, f.Category)
	default:
		rows, err = c.pool.Query(ctx, listProductsByCategoryNameSQL, f.Category)
	}
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListFeatured returns up to limit featured products.
func (c *Catalog) ListFeatured(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := c.pool.Query(ctx, listFeaturedSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single product by its identifier.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	if !isUUID(id) {
		return nil, product.ErrNotFound
	}
	rows, err := c.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetStock returns the live stock level.
func (c *Catalog) GetStock(ctx context.Context, id string) (int, error) {
	if !isUUID(id) {
		return 0, product.ErrNotFound
	}
	var stock int
	if err := c.pool.QueryRow(ctx, getStockSQL, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, fmt.Errorf("getting stock for %q: %w", id, err)
	}
	return stock, nil
}

// ListCategories returns all categories ordered by name.
func (c *Catalog) ListCategories(ctx context.Context) ([]product.Category, error) {
	rows, err := c.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Category, error) {
		var cat product.Category
		err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description)
		return cat, err
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		images []string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price,
		&p.CategoryID, &p.Category,
		&images, &p.StockQuantity, &p.IsFeatured,
	)
	p.Images = product.NormalizeImages(images...)
	return p, err
}

func isUUID(s string) bool {
	return product.Filter{Category: s}.ByCategoryID()
}
