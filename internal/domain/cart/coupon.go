package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyCoupon records a coupon that the caller has already validated,
// replacing any previous one. A non-positive discount leaves the cart
// without a coupon.
func (s *Store) ApplyCoupon(ctx context.Context, code string, discount decimal.Decimal) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCouponCode
	}
	if !discount.IsPositive() {
		s.RemoveCoupon(ctx)
		return nil
	}

	s.mu.Lock()
	s.coupon = &AppliedCoupon{Code: code, Discount: discount.Round(2)}
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "apply_coupon")
	s.notifier.Notify(ctx, Notice{
		Kind:    NoticeCouponApplied,
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Coupon %s applied, you save ₹%s", code, discount.StringFixed(2)),
	})
	return nil
}

// RemoveCoupon drops the applied coupon, if any.
func (s *Store) RemoveCoupon(ctx context.Context) {
	s.mu.Lock()
	if s.coupon == nil {
		s.mu.Unlock()
		return
	}
	code := s.coupon.Code
	s.coupon = nil
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.count(ctx, s.mutations, "remove_coupon")
	s.notifier.Notify(ctx, Notice{
		Kind:    NoticeCouponRemoved,
		Level:   LevelInfo,
		Message: fmt.Sprintf("Coupon %s removed", code),
	})
}

// revalidateCoupon re-checks the applied coupon against the current subtotal
// and revokes it silently when it no longer qualifies or when eligibility
// cannot be confirmed.
func (s *Store) revalidateCoupon(ctx context.Context) {
	s.mu.Lock()
	if s.coupon == nil {
		s.mu.Unlock()
		return
	}
	code := s.coupon.Code
	s.mu.Unlock()

	var (
		minimum decimal.Decimal
		err     error
	)
	if s.coupons != nil {
		minimum, err = s.coupons.MinOrderAmount(ctx, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another change may have replaced or dropped the coupon meanwhile.
	if s.coupon == nil || s.coupon.Code != code {
		return
	}
	subtotal := s.subtotalLocked()

	var reason string
	switch {
	case err != nil:
		reason = "lookup failed"
	case !subtotal.IsPositive():
		reason = "cart empty"
	case subtotal.LessThan(minimum):
		reason = "below minimum order"
	default:
		return
	}

	s.coupon = nil
	s.saveLocked(ctx)
	s.count(ctx, s.revoked, reason)
	s.lg.Info("Coupon revoked",
		zap.String("code", code),
		zap.String("reason", reason),
		zap.Stringer("subtotal", subtotal),
		zap.Stringer("minimum", minimum),
		zap.Error(err),
	)
}
