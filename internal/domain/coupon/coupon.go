package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order amount, optionally
	// capped by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the order amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned by a Repository for unknown codes.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidCoupon is returned when a coupon code is unknown.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrUserLimitReached is returned when the user already used the coupon
	// as often as allowed.
	ErrUserLimitReached = errors.New("coupon already used")
	// ErrBelowMinimum is returned when the order amount is under the
	// coupon's minimum.
	ErrBelowMinimum = errors.New("order amount below coupon minimum")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code           string
	DiscountType   DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	// MaxDiscount caps percentage discounts. Zero means no cap.
	MaxDiscount decimal.Decimal
	Description string
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	// MaxUses limits total redemptions. Zero means unlimited.
	MaxUses int
	Uses    int
	// MaxUsesPerUser limits redemptions per user. Zero means unlimited.
	MaxUsesPerUser int
}

// Usage is one redemption of a coupon with a placed order.
type Usage struct {
	Code     string
	UserID   string
	OrderID  string
	Discount decimal.Decimal
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	// FindByCode returns ErrNotFound for unknown codes.
	FindByCode(ctx context.Context, code string) (*Rule, error)
	ListCodes(ctx context.Context) ([]string, error)
	CountUsesByUser(ctx context.Context, code, userID string) (int, error)
	// RecordUsage stores the redemption and increments the coupon's use count.
	RecordUsage(ctx context.Context, u Usage) error
}

// NormalizeCode canonicalizes user input. Codes are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
