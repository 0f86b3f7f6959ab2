package order

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
)

// MaxHostel is the highest hostel number on campus.
const MaxHostel = 12

const minPhoneDigits = 10

// Sentinel errors for order validation.
var (
	ErrUnauthenticated      = errors.New("please log in to place an order")
	ErrEmptyCart            = errors.New("your box is empty")
	ErrInvalidPhone         = errors.New("please enter a valid WhatsApp number")
	ErrInvalidHostel        = errors.New("please select a valid hostel")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
)

// MissingFieldError indicates a required delivery field was left blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// CouponRejectedError indicates the applied coupon no longer qualifies. The
// coupon has been removed from the cart.
type CouponRejectedError struct {
	Code string
	Err  error
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %v", e.Code, e.Err)
}

func (e *CouponRejectedError) Unwrap() error { return e.Err }

// Cart is the checkout view of a cart. *cart.Store implements it.
type Cart interface {
	Checkout() cart.Checkout
	RemoveCoupon(ctx context.Context)
	Settle(ctx context.Context, co cart.Checkout)
}

var _ Cart = (*cart.Store)(nil)

// CouponRedeemer re-checks and records coupons at checkout.
// *coupon.Service implements it.
type CouponRedeemer interface {
	Validate(ctx context.Context, code, userID string, amount decimal.Decimal) (*coupon.Rule, decimal.Decimal, error)
	RecordUsage(ctx context.Context, u coupon.Usage) error
}

var _ CouponRedeemer = (*coupon.Service)(nil)

// Payee identifies the UPI account QR payments go to.
type Payee struct {
	VPA  string
	Name string
	Note string
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID        string
	Delivery      Delivery
	PaymentMethod PaymentMethod
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order *Order
	// PaymentLink is a upi://pay link to render as a QR code. Empty for COD.
	PaymentLink string
}

// Service encapsulates order placement business logic.
type Service struct {
	orders  Repository
	coupons CouponRedeemer
	payee   Payee
	tracer  trace.Tracer
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates an order Service. A nil coupons disables coupon checks
// at checkout; a nil tracer disables tracing.
func NewService(orders Repository, coupons CouponRedeemer, payee Payee, tracer trace.Tracer, lg *zap.Logger) *Service {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		orders:  orders,
		coupons: coupons,
		payee:   payee,
		tracer:  tracer,
		lg:      lg,
		now:     time.Now,
	}
}

// PlaceOrder validates delivery details, prices the cart, persists the order,
// records coupon usage and settles the cart. The order is built from a single
// checkout view; settling removes only what was ordered.
func (s *Service) PlaceOrder(ctx context.Context, c Cart, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("payment_method", string(req.PaymentMethod))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if req.UserID == "" {
		return nil, ErrUnauthenticated
	}
	co := c.Checkout()
	items := co.Items
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	delivery, err := validateDelivery(req.Delivery)
	if err != nil {
		return nil, err
	}
	if req.PaymentMethod != PaymentCOD && req.PaymentMethod != PaymentQR {
		return nil, ErrInvalidPaymentMethod
	}

	hasCoupon := co.Coupon != nil
	if hasCoupon && s.coupons != nil {
		if err := s.recheckCoupon(ctx, c, *co.Coupon, co.Subtotal(), req.UserID); err != nil {
			return nil, err
		}
	}

	summary := co.Breakdown
	o := &Order{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		Items:          make([]OrderItem, len(items)),
		Subtotal:       summary.Subtotal,
		DeliveryFee:    summary.DeliveryFee,
		ConvenienceFee: summary.ConvenienceFee,
		Discount:       summary.Discount,
		Amount:         summary.Total,
		Delivery:       delivery,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  PaymentPending,
		CreatedAt:      s.now().UTC(),
	}
	if hasCoupon && summary.Discount.IsPositive() {
		o.CouponCode = co.Coupon.Code
	}
	for i, item := range items {
		o.Items[i] = OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(
		attribute.String("order_id", o.ID),
		attribute.String("amount", o.Amount.String()),
	)

	if o.CouponCode != "" && s.coupons != nil {
		if err := s.coupons.RecordUsage(ctx, coupon.Usage{
			Code:     o.CouponCode,
			UserID:   o.UserID,
			OrderID:  o.ID,
			Discount: o.Discount,
		}); err != nil {
			// The order stands without the usage record.
			s.lg.Error("Failed to record coupon usage",
				zap.String("order_id", o.ID),
				zap.String("code", o.CouponCode),
				zap.Error(err),
			)
		}
	}

	c.Settle(ctx, co)
	s.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Stringer("amount", o.Amount),
		zap.String("payment_method", string(o.PaymentMethod)),
	)

	res := &PlaceOrderResult{Order: o}
	if o.PaymentMethod == PaymentQR {
		res.PaymentLink = s.PaymentLink(o)
	}
	return res, nil
}

func (s *Service) recheckCoupon(ctx context.Context, c Cart, applied cart.AppliedCoupon, subtotal decimal.Decimal, userID string) error {
	_, _, err := s.coupons.Validate(ctx, applied.Code, userID, subtotal)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, coupon.ErrUserLimitReached),
		errors.Is(err, coupon.ErrBelowMinimum):
		c.RemoveCoupon(ctx)
		return &CouponRejectedError{Code: applied.Code, Err: err}
	default:
		return errors.Wrap(err, "check coupon")
	}
}

// PaymentLink builds the UPI deep link for an order.
func (s *Service) PaymentLink(o *Order) string {
	q := url.Values{}
	q.Set("pa", s.payee.VPA)
	q.Set("pn", s.payee.Name)
	q.Set("am", o.Amount.StringFixed(2))
	q.Set("cu", "INR")
	note := s.payee.Note
	if note == "" {
		note = "Order Payment"
	}
	q.Set("tn", fmt.Sprintf("%s %s", note, shortID(o.ID)))
	return "upi://pay?" + q.Encode()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func validateDelivery(d Delivery) (Delivery, error) {
	d = Delivery{
		PhoneNumber:  strings.TrimSpace(d.PhoneNumber),
		HostelNumber: strings.TrimSpace(d.HostelNumber),
		RoomNumber:   strings.TrimSpace(d.RoomNumber),
	}
	switch {
	case d.PhoneNumber == "":
		return d, &MissingFieldError{Field: "phone number"}
	case d.HostelNumber == "":
		return d, &MissingFieldError{Field: "hostel number"}
	case d.RoomNumber == "":
		return d, &MissingFieldError{Field: "room number"}
	}

	var digits int
	for _, r := range d.PhoneNumber {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-':
		default:
			return d, ErrInvalidPhone
		}
	}
	if digits < minPhoneDigits {
		return d, ErrInvalidPhone
	}

	hostel, err := strconv.Atoi(d.HostelNumber)
	if err != nil || hostel < 1 || hostel > MaxHostel {
		return d, ErrInvalidHostel
	}
	return d, nil
}
