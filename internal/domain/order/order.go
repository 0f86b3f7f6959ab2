package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays on delivery.
type PaymentMethod string

const (
	PaymentCOD PaymentMethod = "cod"
	PaymentQR  PaymentMethod = "qr"
)

// PaymentStatus tracks whether the order has been paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Order represents a placed customer order with pricing and delivery details.
type Order struct {
	ID             string
	UserID         string
	Items          []OrderItem
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	ConvenienceFee decimal.Decimal
	Discount       decimal.Decimal
	// Amount is what the customer pays.
	Amount        decimal.Decimal
	CouponCode    string
	Delivery      Delivery
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// OrderItem is a snapshot of a cart line at checkout.
type OrderItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Delivery is where the order goes on campus.
type Delivery struct {
	PhoneNumber  string
	HostelNumber string
	RoomNumber   string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
