package remote

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
)

var _ cart.CouponChecker = (*CouponGuard)(nil)

// CouponGuard implements cart.CouponChecker. While the circuit is open every
// lookup fails fast and the store revokes the coupon.
type CouponGuard struct {
	next cart.CouponChecker
	cb   *gobreaker.CircuitBreaker[decimal.Decimal]
}

// NewCouponGuard wraps next, usually a *coupon.Service.
func NewCouponGuard(next cart.CouponChecker, cfg BreakerConfig, lg *zap.Logger) *CouponGuard {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &CouponGuard{
		next: next,
		cb: newBreaker[decimal.Decimal]("coupon-lookup", cfg, lg, func(err error) bool {
			return errors.Is(err, coupon.ErrNotFound)
		}),
	}
}

// MinOrderAmount returns the minimum order amount of code.
func (g *CouponGuard) MinOrderAmount(ctx context.Context, code string) (decimal.Decimal, error) {
	return g.cb.Execute(func() (decimal.Decimal, error) {
		return g.next.MinOrderAmount(ctx, code)
	})
}
