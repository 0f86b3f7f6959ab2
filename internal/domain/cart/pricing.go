package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ConvenienceMode selects how the convenience fee is charged.
type ConvenienceMode string

const (
	// ConvenienceFlat charges a fixed fee per non-empty order.
	ConvenienceFlat ConvenienceMode = "flat"
	// ConvenienceRate charges a fraction of the subtotal.
	ConvenienceRate ConvenienceMode = "percent"
)

// Pricing is the deployment's fee policy.
type Pricing struct {
	// FreeDeliveryThreshold waives the delivery fee for subtotals at or above it.
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
	ConvenienceMode       ConvenienceMode
	// ConvenienceFlat is charged when ConvenienceMode is ConvenienceFlat.
	ConvenienceFlat decimal.Decimal
	// ConvenienceRate is a fraction (0.05 for 5%) used with ConvenienceRate mode.
	ConvenienceRate decimal.Decimal
}

// DefaultPricing mirrors the storefront's launch configuration.
func DefaultPricing() Pricing {
	return Pricing{
		FreeDeliveryThreshold: decimal.NewFromInt(149),
		DeliveryFee:           decimal.NewFromInt(20),
		ConvenienceMode:       ConvenienceFlat,
		ConvenienceFlat:       decimal.NewFromInt(10),
		ConvenienceRate:       decimal.RequireFromString("0.05"),
	}
}

// Validate rejects policies that would produce negative fees.
func (p Pricing) Validate() error {
	switch {
	case p.FreeDeliveryThreshold.IsNegative():
		return errors.New("free delivery threshold must not be negative")
	case p.DeliveryFee.IsNegative():
		return errors.New("delivery fee must not be negative")
	case p.ConvenienceFlat.IsNegative():
		return errors.New("convenience fee must not be negative")
	case p.ConvenienceRate.IsNegative():
		return errors.New("convenience rate must not be negative")
	}
	switch p.ConvenienceMode {
	case ConvenienceFlat, ConvenienceRate:
		return nil
	default:
		return errors.Errorf("unsupported convenience mode: %q", p.ConvenienceMode)
	}
}

// DeliveryFeeFor returns the delivery fee for the subtotal. Empty carts pay
// nothing.
func (p Pricing) DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.DeliveryFee
}

// ConvenienceFeeFor returns the convenience fee for the subtotal.
func (p Pricing) ConvenienceFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if p.ConvenienceMode == ConvenienceRate {
		return subtotal.Mul(p.ConvenienceRate).Round(2)
	}
	return p.ConvenienceFlat
}

// AmountToFreeDelivery returns how much more the customer must add to get
// free delivery, or zero when it already applies.
func (p Pricing) AmountToFreeDelivery(subtotal decimal.Decimal) decimal.Decimal {
	rest := p.FreeDeliveryThreshold.Sub(subtotal)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Breakdown is the priced view of a cart.
type Breakdown struct {
	Subtotal             decimal.Decimal
	DeliveryFee          decimal.Decimal
	ConvenienceFee       decimal.Decimal
	Discount             decimal.Decimal
	Total                decimal.Decimal
	ItemCount            int
	AmountToFreeDelivery decimal.Decimal
}

// Price computes the breakdown for the subtotal and the stored coupon
// discount. The discount is capped at the subtotal so it can never eat into
// the fees.
func (p Pricing) Price(subtotal, discount decimal.Decimal, itemCount int) Breakdown {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	discount = decimal.Min(discount, subtotal)

	delivery := p.DeliveryFeeFor(subtotal)
	convenience := p.ConvenienceFeeFor(subtotal)
	total := subtotal.Add(delivery).Add(convenience).Sub(discount)

	return Breakdown{
		Subtotal:             subtotal.Round(2),
		DeliveryFee:          delivery.Round(2),
		ConvenienceFee:       convenience.Round(2),
		Discount:             discount.Round(2),
		Total:                total.Round(2),
		ItemCount:            itemCount,
		AmountToFreeDelivery: p.AmountToFreeDelivery(subtotal).Round(2),
	}
}
