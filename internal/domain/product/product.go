package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PlaceholderImage is used for products stored without any image.
const PlaceholderImage = "/images/placeholder-snack.png"

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Images      Images
	CategoryID  string
	Category    string
	Description string
	// StockQuantity is the stock level at read time. Nil means the catalog
	// does not track stock for this product.
	StockQuantity *int
	IsFeatured    bool
}

// InStock reports whether the product has stock left according to the
// snapshot it was read with. Untracked products are always in stock.
func (p Product) InStock() bool {
	return p.StockQuantity == nil || *p.StockQuantity > 0
}

// Category groups products for browsing and box-builder rules.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
}

// Images is an ordered list of image references, the first being primary.
type Images []string

// NormalizeImages drops blank references and falls back to the placeholder so
// the result is never empty.
func NormalizeImages(refs ...string) Images {
	out := make(Images, 0, len(refs))
	for _, ref := range refs {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	if len(out) == 0 {
		out = append(out, PlaceholderImage)
	}
	return out
}

// Primary returns the display image.
func (i Images) Primary() string {
	if len(i) == 0 {
		return PlaceholderImage
	}
	return i[0]
}

// Filter selects products by category. Category holds either a category ID
// (UUID) or a category name/slug.
type Filter struct {
	Category string
}

// ByCategoryID reports whether the filter value should be matched against
// category IDs rather than names.
func (f Filter) ByCategoryID() bool {
	if f.Category == "" {
		return false
	}
	_, err := uuid.Parse(f.Category)
	return err == nil
}

// Catalog defines read operations for the product catalog.
type Catalog interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	ListFeatured(ctx context.Context, limit int) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	// GetStock returns the live stock level. It returns ErrNotFound when the
	// product does not exist.
	GetStock(ctx context.Context, id string) (int, error)
}
