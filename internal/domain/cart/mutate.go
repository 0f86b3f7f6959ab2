package cart

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// Add puts qty units of p into the cart, merging with an existing line of the
// same id. With stock tracking the live stock is fetched first and the add is
// rejected, leaving the cart untouched, when it cannot be covered.
func (s *Store) Add(ctx context.Context, p Product, qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}

	var stock *int
	if s.tracksStock(p) {
		n, err := s.checkStock(ctx, p.ID, p.Name)
		if err != nil {
			return err
		}
		if n <= 0 {
			s.reject(ctx, "add", Notice{
				Kind:    NoticeOutOfStock,
				ItemID:  p.ID,
				Message: fmt.Sprintf("%s is out of stock", p.Name),
			})
			return ErrOutOfStock
		}
		stock = &n
	}

	s.mu.Lock()
	idx := s.indexLocked(p.ID)
	current := 0
	if idx >= 0 {
		current = s.items[idx].Quantity
	}
	// Compared by difference so a large current cannot overflow.
	if qty > MaxQuantity-current {
		s.mu.Unlock()
		s.reject(ctx, "add", Notice{
			Kind:    NoticeQuantityLimit,
			ItemID:  p.ID,
			Message: fmt.Sprintf("You can add at most %d of %s", MaxQuantity, p.Name),
		})
		return ErrInvalidQuantity
	}
	if stock != nil && current+qty > *stock {
		s.mu.Unlock()
		s.reject(ctx, "add", insufficientStock(p.ID, p.Name, *stock))
		return ErrInsufficientStock
	}

	var msg string
	if idx >= 0 {
		s.items[idx].Quantity += qty
		if stock != nil {
			s.items[idx].StockQuantity = stock
		}
		msg = fmt.Sprintf("Added another %s to your box!", p.Name)
	} else {
		s.items = append(s.items, Item{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price,
			Quantity:      qty,
			Images:        product.NormalizeImages(p.Images...),
			Category:      p.Category,
			CategoryID:    p.CategoryID,
			Description:   p.Description,
			StockQuantity: stock,
			Contents:      slices.Clone(p.Contents),
		})
		msg = fmt.Sprintf("%s added to your box!", p.Name)
	}
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "add")
	s.notifier.Notify(ctx, Notice{Kind: NoticeAdded, Level: LevelSuccess, ItemID: p.ID, Message: msg})
	s.revalidateCoupon(ctx)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line exactly like Remove. Updating an id that is not in
// the cart is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, id)
	}
	if qty > MaxQuantity {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	item := s.items[idx]
	s.mu.Unlock()

	var stock *int
	if s.tracksStock(Product{ID: item.ID, Contents: item.Contents}) {
		n, err := s.checkStock(ctx, item.ID, item.Name)
		if err != nil {
			return err
		}
		if qty > n {
			s.reject(ctx, "update", insufficientStock(item.ID, item.Name, n))
			return ErrInsufficientStock
		}
		stock = &n
	}

	s.mu.Lock()
	// The line may have been removed while stock was being checked.
	idx = s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.items[idx].Quantity = qty
	if stock != nil {
		s.items[idx].StockQuantity = stock
	}
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "update")
	s.notifier.Notify(ctx, Notice{
		Kind:    NoticeUpdated,
		Level:   LevelSuccess,
		ItemID:  id,
		Message: fmt.Sprintf("%s quantity set to %d", item.Name, qty),
	})
	s.revalidateCoupon(ctx)
	return nil
}

// Remove deletes the line with the given id. Removing an absent id does
// nothing.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.items[idx]
	s.items = slices.Delete(s.items, idx, idx+1)
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "remove")
	s.notifier.Notify(ctx, Notice{
		Kind:    NoticeRemoved,
		Level:   LevelInfo,
		ItemID:  id,
		Message: fmt.Sprintf("%s removed from your box", removed.Name),
	})
	s.revalidateCoupon(ctx)
	return nil
}

// Clear empties the cart and drops the coupon in one step.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.coupon = nil
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "clear")
	s.notifier.Notify(ctx, Notice{Kind: NoticeCleared, Level: LevelInfo, Message: "Your box is now empty"})
}

// tracksStock reports whether p is a catalog product whose stock must be
// checked. Custom boxes are not catalog products.
func (s *Store) tracksStock(p Product) bool {
	return s.stock != nil && len(p.Contents) == 0
}

// checkStock fetches live stock. Unknown products have no stock.
func (s *Store) checkStock(ctx context.Context, id, name string) (int, error) {
	n, err := s.stock.Stock(ctx, id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		return 0, nil
	case err != nil:
		s.lg.Warn("Stock check failed", zap.String("product_id", id), zap.Error(err))
		s.reject(ctx, "stock", Notice{
			Kind:    NoticeStockUnavailable,
			ItemID:  id,
			Message: fmt.Sprintf("Could not check stock for %s, please try again", name),
		})
		return 0, &StockUnavailableError{ProductID: id, Err: err}
	}
	return n, nil
}

func (s *Store) reject(ctx context.Context, op string, n Notice) {
	n.Level = LevelError
	s.count(ctx, s.rejected, op)
	s.notifier.Notify(ctx, n)
}

func insufficientStock(id, name string, available int) Notice {
	return Notice{
		Kind:    NoticeInsufficientStock,
		ItemID:  id,
		Message: fmt.Sprintf("Not enough stock available for %s (only %d left)", name, available),
	}
}
