package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule      *Rule
	err       error
	codes     []string
	userUses  int
	countErr  error
	recordErr error
	recorded  []Usage
	lookups   int
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	m.lookups++
	return m.rule, m.err
}

func (m *mockCouponRepo) ListCodes(_ context.Context) ([]string, error) {
	return m.codes, m.err
}

func (m *mockCouponRepo) CountUsesByUser(_ context.Context, _, _ string) (int, error) {
	return m.userUses, m.countErr
}

func (m *mockCouponRepo) RecordUsage(_ context.Context, u Usage) error {
	m.recorded = append(m.recorded, u)
	return m.recordErr
}

func TestService_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		userID     string
		amount     decimal.Decimal
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "percentage discount",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "NIGHT10", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10)},
			},
			amount:     decimal.NewFromInt(300),
			wantAmount: decimal.NewFromInt(30),
		},
		{
			name: "percentage discount capped by max discount",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "HALF",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(50),
					MaxDiscount:  decimal.NewFromInt(75),
				},
			},
			amount:     decimal.NewFromInt(400),
			wantAmount: decimal.NewFromInt(75),
		},
		{
			name: "fixed discount capped at amount",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "SAVE50", DiscountType: DiscountFixed, Value: decimal.NewFromInt(50)},
			},
			amount:     decimal.NewFromInt(30),
			wantAmount: decimal.NewFromInt(30),
		},
		{
			name:    "unknown code",
			repo:    &mockCouponRepo{err: ErrNotFound},
			amount:  decimal.NewFromInt(100),
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "not logged in",
			repo:    &mockCouponRepo{rule: &Rule{Code: "X"}},
			userID:  "-",
			amount:  decimal.NewFromInt(100),
			wantErr: ErrLoginRequired,
		},
		{
			name: "expired",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "OLD", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), ValidUntil: &pastTime},
			},
			amount:  decimal.NewFromInt(100),
			wantErr: ErrCouponExpired,
		},
		{
			name: "not yet valid",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "SOON", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), ValidFrom: &futureTime},
			},
			amount:  decimal.NewFromInt(100),
			wantErr: ErrCouponExpired,
		},
		{
			name: "global usage limit reached",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "LIMITED", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), MaxUses: 10, Uses: 10},
			},
			amount:  decimal.NewFromInt(100),
			wantErr: ErrCouponUsageLimitReached,
		},
		{
			name: "per user limit reached",
			repo: &mockCouponRepo{
				rule:     &Rule{Code: "ONCE", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), MaxUsesPerUser: 1},
				userUses: 1,
			},
			amount:  decimal.NewFromInt(100),
			wantErr: ErrUserLimitReached,
		},
		{
			name: "below minimum order",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:           "BIG",
					DiscountType:   DiscountFixed,
					Value:          decimal.NewFromInt(50),
					MinOrderAmount: decimal.NewFromInt(200),
				},
			},
			amount:  decimal.NewFromInt(199),
			wantErr: ErrBelowMinimum,
		},
		{
			name: "at minimum order",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:           "BIG",
					DiscountType:   DiscountFixed,
					Value:          decimal.NewFromInt(50),
					MinOrderAmount: decimal.NewFromInt(200),
				},
			},
			amount:     decimal.NewFromInt(200),
			wantAmount: decimal.NewFromInt(50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, nil, nil)
			svc.now = func() time.Time { return fixedNow }
			userID := tt.userID
			switch userID {
			case "":
				userID = "user-1"
			case "-":
				userID = ""
			}

			_, got, err := svc.Validate(context.Background(), "code", userID, tt.amount)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got), "expected amount %s, got %s", tt.wantAmount, got)
		})
	}
}

func TestService_ValidateAndApplyMessages(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	futureTime := fixedNow.Add(time.Hour)

	tests := []struct {
		name      string
		repo      *mockCouponRepo
		userID    string
		wantValid bool
		wantMsg   string
	}{
		{
			name:    "login required",
			repo:    &mockCouponRepo{},
			wantMsg: "Please log in to use coupons",
		},
		{
			name:    "invalid",
			repo:    &mockCouponRepo{err: ErrNotFound},
			userID:  "u1",
			wantMsg: "Invalid coupon code",
		},
		{
			name: "not active yet",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "SOON", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), ValidFrom: &futureTime},
			},
			userID:  "u1",
			wantMsg: "This coupon is not active yet",
		},
		{
			name: "minimum",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "BIG", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5), MinOrderAmount: decimal.NewFromInt(500)},
			},
			userID:  "u1",
			wantMsg: "Minimum order amount of ₹500.00 required",
		},
		{
			name: "applied",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "SAVE50", DiscountType: DiscountFixed, Value: decimal.NewFromInt(50)},
			},
			userID:    "u1",
			wantValid: true,
			wantMsg:   "Coupon applied! You saved ₹50.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, nil, nil)
			svc.now = func() time.Time { return fixedNow }

			res, err := svc.ValidateAndApply(context.Background(), "code", tt.userID, decimal.NewFromInt(200))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestService_ValidateAndApplyInfraError(t *testing.T) {
	svc := NewService(&mockCouponRepo{err: errors.New("db down")}, nil, nil)

	_, err := svc.ValidateAndApply(context.Background(), "SAVE50", "u1", decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestService_FilterSkipsLookup(t *testing.T) {
	repo := &mockCouponRepo{rule: &Rule{Code: "SAVE50", DiscountType: DiscountFixed, Value: decimal.NewFromInt(50)}}
	svc := NewService(repo, NewCodeFilter([]string{"SAVE50"}), nil)

	_, err := svc.GetCoupon(context.Background(), "MADEUP99")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, repo.lookups)

	rule, err := svc.GetCoupon(context.Background(), " save50 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE50", rule.Code)
	assert.Equal(t, 1, repo.lookups)
}

func TestService_MinOrderAmount(t *testing.T) {
	repo := &mockCouponRepo{rule: &Rule{Code: "BIG", MinOrderAmount: decimal.NewFromInt(250)}}
	svc := NewService(repo, nil, nil)

	got, err := svc.MinOrderAmount(context.Background(), "BIG")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(got))

	repo.err = ErrNotFound
	repo.rule = nil
	_, err = svc.MinOrderAmount(context.Background(), "BIG")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_RecordUsage(t *testing.T) {
	repo := &mockCouponRepo{}
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.RecordUsage(context.Background(), Usage{Code: "save50", UserID: "u1", OrderID: "o1"}))
	require.Len(t, repo.recorded, 1)
	assert.Equal(t, "SAVE50", repo.recorded[0].Code)

	repo.recordErr = errors.New("db error")
	err := svc.RecordUsage(context.Background(), Usage{Code: "SAVE50"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record coupon usage")
}

func TestCodeFilter(t *testing.T) {
	f := NewCodeFilter([]string{"NIGHT10", "save50"})
	assert.True(t, f.MayContain("night10"))
	assert.True(t, f.MayContain("SAVE50"))
	assert.False(t, f.MayContain("NOPE1234"))

	f.Add("LATE20")
	assert.True(t, f.MayContain("LATE20"))

	require.NoError(t, f.Refresh(context.Background(), &mockCouponRepo{codes: []string{"ONLY"}}))
	assert.True(t, f.MayContain("ONLY"))
	assert.False(t, f.MayContain("NIGHT10"))
}

func TestApply(t *testing.T) {
	rule := &Rule{DiscountType: DiscountPercentage, Value: decimal.RequireFromString("12.5")}

	got, err := Apply(rule, decimal.RequireFromString("99.99"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got), "got %s", got)

	got, err = Apply(rule, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = Apply(&Rule{DiscountType: "free_lowest"}, decimal.NewFromInt(10))
	require.Error(t, err)
}
