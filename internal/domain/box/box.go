// Package box implements the "build your own box" composer: a local
// selection of catalog products that is committed to the cart as a single
// custom box item.
package box

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// MinCategories is the number of distinct categories a box must draw from.
const MinCategories = 2

const (
	boxName  = "Custom Box"
	idPrefix = "custom-box-"
	boxImage = "/images/custom-box.png"
)

var (
	ErrEmptyBox            = errors.New("box is empty")
	ErrNotEnoughCategories = errors.New("box needs items from at least two categories")
)

// Line is one selected product and its quantity.
type Line struct {
	Product  product.Product
	Quantity int
}

// Total returns price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Adder receives the committed box. *cart.Store implements it.
type Adder interface {
	Add(ctx context.Context, p cart.Product, qty int) error
}

var _ Adder = (*cart.Store)(nil)

// Builder holds an uncommitted selection in insertion order.
type Builder struct {
	mu    sync.Mutex
	lines []Line
	now   func() time.Time
	// last is the timestamp of the previous box, so ids never repeat.
	last int64
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Add selects one more unit of p.
func (b *Builder) Add(p product.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(p.ID); i >= 0 {
		if b.lines[i].Quantity < cart.MaxQuantity {
			b.lines[i].Quantity++
		}
		return
	}
	b.lines = append(b.lines, Line{Product: p, Quantity: 1})
}

// SetQuantity sets the selected quantity of p, removing it when n <= 0.
// Quantities above cart.MaxQuantity are capped.
func (b *Builder) SetQuantity(p product.Product, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, cart.MaxQuantity)

	i := b.indexLocked(p.ID)
	switch {
	case n <= 0 && i >= 0:
		b.lines = slices.Delete(b.lines, i, i+1)
	case n <= 0:
	case i >= 0:
		b.lines[i].Quantity = n
	default:
		b.lines = append(b.lines, Line{Product: p, Quantity: n})
	}
}

// Remove drops a product from the selection.
func (b *Builder) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(id); i >= 0 {
		b.lines = slices.Delete(b.lines, i, i+1)
	}
}

// Lines returns a copy of the selection.
func (b *Builder) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.lines)
}

// TotalItems returns the number of selected units.
func (b *Builder) TotalItems() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for _, l := range b.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the price of the selection.
func (b *Builder) Subtotal() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return subtotal(b.lines)
}

// CategoriesRepresented returns the distinct categories in the selection, in
// order of first appearance.
func (b *Builder) CategoriesRepresented() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return categories(b.lines)
}

// CanCheckout reports whether the selection may be committed.
func (b *Builder) CanCheckout() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return checkout(b.lines) == nil
}

// Commit adds the selection to the cart as one custom box and clears it. The
// selection is kept if the cart rejects the box.
func (b *Builder) Commit(ctx context.Context, to Adder) (cart.Product, error) {
	b.mu.Lock()
	if err := checkout(b.lines); err != nil {
		b.mu.Unlock()
		return cart.Product{}, err
	}
	lines := slices.Clone(b.lines)
	stamp := max(b.now().UnixMilli(), b.last+1)
	b.last = stamp
	b.mu.Unlock()

	p := bundle(lines, stamp)
	if err := to.Add(ctx, p, 1); err != nil {
		return cart.Product{}, errors.Wrap(err, "add box to cart")
	}

	b.mu.Lock()
	// Keep anything selected while the box was being added.
	if slices.Equal(lineKeys(b.lines), lineKeys(lines)) {
		b.lines = nil
	}
	b.mu.Unlock()
	return p, nil
}

func (b *Builder) indexLocked(id string) int {
	return slices.IndexFunc(b.lines, func(l Line) bool { return l.Product.ID == id })
}

func checkout(lines []Line) error {
	if len(lines) == 0 {
		return ErrEmptyBox
	}
	if len(categories(lines)) < MinCategories {
		return ErrNotEnoughCategories
	}
	return nil
}

// categoryKey prefers the category id and falls back to its name.
func categoryKey(p product.Product) string {
	if p.CategoryID != "" {
		return p.CategoryID
	}
	return p.Category
}

func categories(lines []Line) []string {
	var out []string
	for _, l := range lines {
		key := categoryKey(l.Product)
		if l.Quantity > 0 && key != "" && !slices.Contains(out, key) {
			out = append(out, key)
		}
	}
	return out
}

func subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

type lineKey struct {
	id  string
	qty int
}

func lineKeys(lines []Line) []lineKey {
	keys := make([]lineKey, len(lines))
	for i, l := range lines {
		keys[i] = lineKey{id: l.Product.ID, qty: l.Quantity}
	}
	return keys
}

func bundle(lines []Line, stamp int64) cart.Product {
	var units int
	contents := make([]cart.BundleLine, len(lines))
	for i, l := range lines {
		units += l.Quantity
		contents[i] = cart.BundleLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Category:  l.Product.Category,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
		}
	}
	return cart.Product{
		ID:          fmt.Sprintf("%s%d", idPrefix, stamp),
		Name:        boxName,
		Price:       subtotal(lines).Round(2),
		Images:      product.Images{boxImage},
		Category:    "custom",
		Description: fmt.Sprintf("Custom box with %d items", units),
		Contents:    contents,
	}
}
