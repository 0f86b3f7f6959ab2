package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Checkout is a consistent view of the cart taken under one lock. Items,
// coupon and breakdown always describe the same state.
type Checkout struct {
	Items     []Item
	Coupon    *AppliedCoupon
	Breakdown Breakdown
	// Version identifies the state the view was taken from.
	Version uint64
}

// Subtotal returns the breakdown subtotal.
func (c Checkout) Subtotal() decimal.Decimal {
	return c.Breakdown.Subtotal
}

// Checkout captures the cart for placing an order.
func (s *Store) Checkout() Checkout {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	discount := decimal.Zero
	if snap.Coupon != nil {
		discount = snap.Coupon.Discount
	}
	return Checkout{
		Items:     snap.Items,
		Coupon:    snap.Coupon,
		Breakdown: s.pricing.Price(s.subtotalLocked(), discount, s.itemCountLocked()),
		Version:   s.version,
	}
}

// Settle removes what an order placed from co took out of the cart. When the
// cart is unchanged since co was taken it is emptied; otherwise only the
// ordered quantities and the ordered coupon are removed, and anything added
// meanwhile stays.
func (s *Store) Settle(ctx context.Context, co Checkout) {
	s.mu.Lock()
	if s.version == co.Version {
		s.items = nil
		s.coupon = nil
		s.saveLocked(ctx)
		s.mu.Unlock()

		s.count(ctx, s.mutations, "clear")
		s.notifier.Notify(ctx, Notice{Kind: NoticeCleared, Level: LevelInfo, Message: "Your box is now empty"})
		return
	}

	for _, ordered := range co.Items {
		idx := s.indexLocked(ordered.ID)
		if idx < 0 {
			continue
		}
		if left := s.items[idx].Quantity - ordered.Quantity; left > 0 {
			s.items[idx].Quantity = left
		} else {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		}
	}
	if co.Coupon != nil && s.coupon != nil && s.coupon.Code == co.Coupon.Code {
		s.coupon = nil
	}
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "settle")
	s.notifier.Notify(ctx, Notice{Kind: NoticeUpdated, Level: LevelInfo, Message: "Ordered items removed from your box"})
	s.revalidateCoupon(ctx)
}
