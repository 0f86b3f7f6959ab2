package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrLoginRequired is returned when a coupon is validated without a user.
	ErrLoginRequired = errors.New("login required")
	// ErrEmptyCode is returned when no code was entered.
	ErrEmptyCode = errors.New("coupon code required")
)

// Result is the outcome of ValidateAndApply as shown to the customer.
type Result struct {
	Valid    bool
	Message  string
	Discount decimal.Decimal
}

// Service validates coupons against their rules and records redemptions.
type Service struct {
	repo   Repository
	filter *CodeFilter
	lg     *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. A nil filter disables the pre-check.
func NewService(repo Repository, filter *CodeFilter, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{repo: repo, filter: filter, lg: lg, now: time.Now}
}

// GetCoupon returns the rule for code, or ErrNotFound.
func (s *Service) GetCoupon(ctx context.Context, code string) (*Rule, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if s.filter != nil && !s.filter.MayContain(code) {
		return nil, ErrNotFound
	}
	rule, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	return rule, nil
}

// MinOrderAmount returns the minimum order amount of code. It is used to
// revalidate a coupon already applied to a cart.
func (s *Service) MinOrderAmount(ctx context.Context, code string) (decimal.Decimal, error) {
	rule, err := s.GetCoupon(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	return rule.MinOrderAmount, nil
}

// Validate checks that userID may redeem code on an order of amount and
// returns the discount. Eligibility failures are returned as sentinel errors;
// anything else is an infrastructure failure.
func (s *Service) Validate(ctx context.Context, code, userID string, amount decimal.Decimal) (*Rule, decimal.Decimal, error) {
	if userID == "" {
		return nil, decimal.Zero, ErrLoginRequired
	}

	rule, err := s.GetCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, decimal.Zero, ErrInvalidCoupon
		}
		return nil, decimal.Zero, err
	}

	now := s.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return rule, decimal.Zero, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return rule, decimal.Zero, ErrCouponExpired
	}

	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return rule, decimal.Zero, ErrCouponUsageLimitReached
	}
	if rule.MaxUsesPerUser > 0 {
		used, err := s.repo.CountUsesByUser(ctx, rule.Code, userID)
		if err != nil {
			return rule, decimal.Zero, errors.Wrap(err, "count coupon uses")
		}
		if used >= rule.MaxUsesPerUser {
			return rule, decimal.Zero, ErrUserLimitReached
		}
	}

	if amount.LessThan(rule.MinOrderAmount) {
		return rule, decimal.Zero, ErrBelowMinimum
	}

	discount, err := Apply(rule, amount)
	if err != nil {
		return rule, decimal.Zero, err
	}
	return rule, discount, nil
}

// ValidateAndApply validates code for userID and amount and renders the
// outcome as a customer-facing Result. Only infrastructure failures are
// returned as errors.
func (s *Service) ValidateAndApply(ctx context.Context, code, userID string, amount decimal.Decimal) (Result, error) {
	rule, discount, err := s.Validate(ctx, code, userID, amount)
	switch {
	case err == nil:
		if !discount.IsPositive() {
			return Result{Message: "This coupon gives no discount on your order"}, nil
		}
		return Result{
			Valid:    true,
			Message:  fmt.Sprintf("Coupon applied! You saved ₹%s", discount.StringFixed(2)),
			Discount: discount,
		}, nil
	case errors.Is(err, ErrLoginRequired):
		return Result{Message: "Please log in to use coupons"}, nil
	case errors.Is(err, ErrEmptyCode):
		return Result{Message: "Please enter a coupon code"}, nil
	case errors.Is(err, ErrInvalidCoupon):
		return Result{Message: "Invalid coupon code"}, nil
	case errors.Is(err, ErrCouponExpired):
		if rule.ValidFrom != nil && s.now().Before(*rule.ValidFrom) {
			return Result{Message: "This coupon is not active yet"}, nil
		}
		return Result{Message: "This coupon has expired"}, nil
	case errors.Is(err, ErrCouponUsageLimitReached):
		return Result{Message: "This coupon has reached its usage limit"}, nil
	case errors.Is(err, ErrUserLimitReached):
		return Result{Message: "You have already used this coupon"}, nil
	case errors.Is(err, ErrBelowMinimum):
		return Result{
			Message: fmt.Sprintf("Minimum order amount of ₹%s required", rule.MinOrderAmount.StringFixed(2)),
		}, nil
	default:
		s.lg.Error("Coupon validation failed", zap.String("code", NormalizeCode(code)), zap.Error(err))
		return Result{}, err
	}
}

// RecordUsage stores a redemption.
func (s *Service) RecordUsage(ctx context.Context, u Usage) error {
	u.Code = NormalizeCode(u.Code)
	if err := s.repo.RecordUsage(ctx, u); err != nil {
		return errors.Wrap(err, "record coupon usage")
	}
	return nil
}
