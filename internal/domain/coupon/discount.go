package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount a rule gives on the order amount. It does not
// check eligibility.
func Apply(rule *Rule, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	var d decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			d = decimal.Min(d, rule.MaxDiscount)
		}
	case DiscountFixed:
		d = rule.Value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	// A discount never exceeds what is being paid for.
	d = decimal.Min(d, amount)
	return floorAtZero(d).Round(2), nil
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
