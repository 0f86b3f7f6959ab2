package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
)

const (
	getCouponSQL = `SELECT code, discount_type, discount_value, min_order_amount, max_discount,
		description, valid_from, valid_until, max_uses, uses, max_uses_per_user
		FROM coupons WHERE code = UPPER($1) AND is_active`

	listCouponCodesSQL = `SELECT code FROM coupons WHERE is_active`

	countUsesByUserSQL = `SELECT COUNT(*) FROM coupon_usages WHERE code = UPPER($1) AND user_id = $2`

	insertUsageSQL = `INSERT INTO coupon_usages (code, user_id, order_id, discount)
		VALUES (UPPER($1), $2, $3::uuid, $4)`

	incrementUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE code = UPPER($1)`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, discount_value, min_order_amount,
		max_discount, description, valid_from, valid_until, max_uses, max_uses_per_user, is_active)
		VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_order_amount = EXCLUDED.min_order_amount,
			max_discount = EXCLUDED.max_discount,
			description = EXCLUDED.description,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			max_uses_per_user = EXCLUDED.max_uses_per_user,
			is_active = TRUE`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon. The query upper-cases the parameter,
// so the code is passed as-is. Returns coupon.ErrNotFound when no active
// coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
	)
	err := r.pool.QueryRow(ctx, getCouponSQL, code).Scan(
		&rule.Code, &discountType, &rule.Value, &rule.MinOrderAmount, &rule.MaxDiscount,
		&rule.Description, &rule.ValidFrom, &rule.ValidUntil, &rule.MaxUses, &rule.Uses, &rule.MaxUsesPerUser,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	rule.DiscountType = coupon.DiscountType(discountType)
	return &rule, nil
}

// ListCodes returns every active coupon code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CountUsesByUser returns how many orders userID placed with code.
func (r *CouponRepository) CountUsesByUser(ctx context.Context, code, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUsesByUserSQL, code, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting uses of %q: %w", code, err)
	}
	return n, nil
}

// RecordUsage stores the redemption and bumps the coupon's use count in one
// transaction.
func (r *CouponRepository) RecordUsage(ctx context.Context, u coupon.Usage) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertUsageSQL, u.Code, u.UserID, u.OrderID, u.Discount); err != nil {
			return fmt.Errorf("inserting usage of %q: %w", u.Code, err)
		}
		if _, err := tx.Exec(ctx, incrementUsesSQL, u.Code); err != nil {
			return fmt.Errorf("incrementing uses of %q: %w", u.Code, err)
		}
		return nil
	})
}

// Upsert creates or replaces a coupon rule, re-activating it. Use counts are
// preserved.
func (r *CouponRepository) Upsert(ctx context.Context, rule coupon.Rule) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		rule.Code, string(rule.DiscountType), rule.Value, rule.MinOrderAmount,
		rule.MaxDiscount, rule.Description, rule.ValidFrom, rule.ValidUntil,
		rule.MaxUses, rule.MaxUsesPerUser,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", rule.Code, err)
	}
	return nil
}
