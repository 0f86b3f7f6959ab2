package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, user_id, items, subtotal, delivery_fee, convenience_fee,
		discount, amount, coupon_code, phone_number, hostel_number, room_number,
		payment_method, payment_status, created_at)
	VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON,
		o.Subtotal, o.DeliveryFee, o.ConvenienceFee, o.Discount, o.Amount,
		o.CouponCode,
		o.Delivery.PhoneNumber, o.Delivery.HostelNumber, o.Delivery.RoomNumber,
		string(o.PaymentMethod), string(o.PaymentStatus), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}
