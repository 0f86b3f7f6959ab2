package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

const (
	upsertCategorySQL = `INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description
		RETURNING id::text`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, category_id, image_urls, stock_quantity, is_featured)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			image_urls = EXCLUDED.image_urls,
			stock_quantity = EXCLUDED.stock_quantity,
			is_featured = EXCLUDED.is_featured
		RETURNING id::text`
)

// UpsertCategory creates or updates a category by slug and returns its id.
func (c *Catalog) UpsertCategory(ctx context.Context, cat product.Category) (string, error) {
	var id string
	if err := c.pool.QueryRow(ctx, upsertCategorySQL, cat.Name, cat.Slug, cat.Description).Scan(&id); err != nil {
		return "", errors.Wrapf(err, "upsert category %q", cat.Slug)
	}
	return id, nil
}

// UpsertProduct creates or updates a product and returns its id. An empty
// p.ID inserts a new product with a generated id.
func (c *Catalog) UpsertProduct(ctx context.Context, p product.Product) (string, error) {
	stock := 0
	if p.StockQuantity != nil {
		stock = *p.StockQuantity
	}
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}

	var id string
	err := c.pool.QueryRow(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID, images, stock, p.IsFeatured,
	).Scan(&id)
	if err != nil {
		return "", errors.Wrapf(err, "upsert product %q", p.Name)
	}
	return id, nil
}
