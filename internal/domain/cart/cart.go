// Package cart implements the storefront box: a persisted, stock-aware cart
// with a single optional coupon and derived pricing.
package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// MaxQuantity is the most units of one line a cart holds.
const MaxQuantity = 99

var (
	// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	// ErrOutOfStock is returned when the product has no stock left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInsufficientStock is returned when the requested quantity exceeds
	// the available stock.
	ErrInsufficientStock = errors.New("not enough stock available")
	// ErrStockUnavailable is returned when stock could not be verified.
	ErrStockUnavailable = errors.New("stock check failed")
	// ErrEmptyCouponCode is returned when a coupon is applied without a code.
	ErrEmptyCouponCode = errors.New("coupon code required")
	// ErrNoState is returned by a Persister that holds no saved cart.
	ErrNoState = errors.New("no persisted cart state")
)

// StockUnavailableError reports a failed stock lookup. It matches
// ErrStockUnavailable.
type StockUnavailableError struct {
	ProductID string
	Err       error
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("check stock for %s: %v", e.ProductID, e.Err)
}

func (e *StockUnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStockUnavailable.
func (e *StockUnavailableError) Is(target error) bool { return target == ErrStockUnavailable }

// Item is a single cart line. Items are unique by ID.
type Item struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Quantity    int
	Images      product.Images
	Category    string
	CategoryID  string
	Description string
	// StockQuantity is the last stock level seen when the item was added or
	// updated. It is informational; stock is re-checked on every mutation.
	StockQuantity *int
	// Contents lists the catalog products bundled in a custom box.
	Contents []BundleLine
}

// PrimaryImage returns the image to display for the item.
func (i Item) PrimaryImage() string {
	return i.Images.Primary()
}

// LineTotal returns price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// IsBundle reports whether the item is a synthesized custom box.
func (i Item) IsBundle() bool {
	return len(i.Contents) > 0
}

// BundleLine is one catalog product inside a custom box.
type BundleLine struct {
	ProductID string
	Name      string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// AppliedCoupon is the coupon currently subtracted from the total. A cart
// either has one or has none; the code and discount never diverge.
type AppliedCoupon struct {
	Code     string
	Discount decimal.Decimal
}

// Product describes what is being added to the cart.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Images      product.Images
	Category    string
	CategoryID  string
	Description string
	Contents    []BundleLine
}

// FromCatalog converts a catalog product into an add descriptor.
func FromCatalog(p product.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Images:      p.Images,
		Category:    p.Category,
		CategoryID:  p.CategoryID,
		Description: p.Description,
	}
}

// Persister is a durable slot holding one serialized cart.
type Persister interface {
	// Load returns the saved bytes, or ErrNoState when nothing was saved.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// StockChecker reports live stock for catalog products. It returns
// product.ErrNotFound for unknown products.
type StockChecker interface {
	Stock(ctx context.Context, productID string) (int, error)
}

// CouponChecker provides the eligibility rule used to revalidate an applied
// coupon after the cart changes.
type CouponChecker interface {
	MinOrderAmount(ctx context.Context, code string) (decimal.Decimal, error)
}
