package cart

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// --- Mock implementations ---

type mockPersister struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (m *mockPersister) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return nil, ErrNoState
	}
	return m.data, nil
}

func (m *mockPersister) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = data
	return nil
}

type mockStock struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
	calls int
	// hook runs before the stock level is returned.
	hook func()
}

func (m *mockStock) Stock(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	m.calls++
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n, ok := m.stock[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	return n, nil
}

type mockCoupons struct {
	min map[string]decimal.Decimal
	err error
}

func (m *mockCoupons) MinOrderAmount(_ context.Context, code string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	v, ok := m.min[code]
	if !ok {
		return decimal.Zero, errors.New("coupon not found")
	}
	return v, nil
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) kinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NoticeKind, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Kind
	}
	return out
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func chips() Product {
	return Product{ID: "p1", Name: "Chips", Price: dec("20"), Category: "chips", CategoryID: "c1"}
}

func cola() Product {
	return Product{ID: "p2", Name: "Cola", Price: dec("40"), Category: "drinks", CategoryID: "c2"}
}

type fixture struct {
	store     *Store
	persister *mockPersister
	stock     *mockStock
	coupons   *mockCoupons
	notices   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		persister: &mockPersister{},
		stock:     &mockStock{stock: map[string]int{"p1": 5, "p2": 10}},
		coupons:   &mockCoupons{min: map[string]decimal.Decimal{"SAVE50": dec("100"), "ANY": decimal.Zero}},
		notices:   &recorder{},
	}
	store, err := New(context.Background(), Deps{
		Persister: f.persister,
		Stock:     f.stock,
		Coupons:   f.coupons,
		Notifier:  f.notices,
		Pricing:   DefaultPricing(),
	})
	require.NoError(t, err)
	f.store = store
	return f
}

// assertInvariants checks the properties every reachable cart must hold.
func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	items := s.Items()
	seen := map[string]bool{}
	units := 0
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
		assert.GreaterOrEqual(t, item.Quantity, 1)
		assert.NotEmpty(t, item.Images)
		units += item.Quantity
	}
	assert.Equal(t, units, s.ItemCount())

	c, ok := s.Coupon()
	if ok {
		assert.NotEmpty(t, c.Code)
		assert.True(t, c.Discount.IsPositive())
	}

	b := s.Summary()
	assert.True(t, b.Total.GreaterThanOrEqual(b.DeliveryFee.Add(b.ConvenienceFee)),
		"total %s below fees", b.Total)
}

// --- Tests ---

func TestNew_RequiresPersister(t *testing.T) {
	_, err := New(context.Background(), Deps{})
	require.Error(t, err)
}

func TestNew_RestoreFailures(t *testing.T) {
	tests := []struct {
		name      string
		persister *mockPersister
		loadErr   bool
	}{
		{name: "nothing saved", persister: &mockPersister{}},
		{name: "load error", persister: &mockPersister{loadErr: errors.New("connection refused")}, loadErr: true},
		{name: "malformed", persister: &mockPersister{data: []byte(`{"items":[`)}},
		{name: "wrong version", persister: &mockPersister{data: []byte(`{"version":7,"items":[]}`)}},
		{name: "zero quantity", persister: &mockPersister{
			data: []byte(`{"version":1,"items":[{"id":"p1","name":"Chips","price":"20","quantity":0}]}`),
		}},
		{name: "code without discount", persister: &mockPersister{
			data: []byte(`{"version":1,"items":[],"couponDiscount":"0","couponCode":"SAVE50"}`),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), Deps{Persister: tt.persister})
			require.NoError(t, err)
			assert.Empty(t, s.Items())
			_, ok := s.Coupon()
			assert.False(t, ok)
			if tt.loadErr {
				assert.Error(t, s.LoadErr())
			} else {
				assert.NoError(t, s.LoadErr())
			}
		})
	}
}

func TestAdd_NewItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Add(ctx, chips(), 1))

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, product.PlaceholderImage, items[0].PrimaryImage())
	require.NotNil(t, items[0].StockQuantity)
	assert.Equal(t, 5, *items[0].StockQuantity)
	assert.True(t, dec("20").Equal(f.store.Subtotal()))
	assert.Equal(t, []NoticeKind{NoticeAdded}, f.notices.kinds())
	assert.Equal(t, "Chips added to your box!", f.notices.last().Message)
	assertInvariants(t, f.store)
}

func TestAdd_MergesExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Add(ctx, chips(), 1))
	require.NoError(t, f.store.Add(ctx, chips(), 1))

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, dec("40").Equal(f.store.Subtotal()))
	assert.Equal(t, "Added another Chips to your box!", f.notices.last().Message)
	assertInvariants(t, f.store)
}

func TestAdd_TwiceEqualsOnceWithTwo(t *testing.T) {
	a := newFixture(t)
	b := newFixture(t)
	ctx := context.Background()

	require.NoError(t, a.store.Add(ctx, chips(), 1))
	require.NoError(t, a.store.Add(ctx, chips(), 1))
	require.NoError(t, b.store.Add(ctx, chips(), 2))

	assert.Equal(t, b.store.Items()[0].Quantity, a.store.Items()[0].Quantity)
	assert.Equal(t, b.store.Snapshot().Encode(), a.store.Snapshot().Encode())
}

func TestAdd_NormalizesImages(t *testing.T) {
	f := newFixture(t)
	p := chips()
	p.Images = product.Images{"", "chips-front.jpg", "chips-back.jpg"}

	require.NoError(t, f.store.Add(context.Background(), p, 1))
	assert.Equal(t, "chips-front.jpg", f.store.Items()[0].PrimaryImage())
}

func TestAdd_InvalidQuantity(t *testing.T) {
	f := newFixture(t)

	err := f.store.Add(context.Background(), chips(), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, f.store.Items())
	assert.Zero(t, f.stock.calls)
}

func TestAdd_QuantityLimit(t *testing.T) {
	t.Run("stock tracked", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		require.NoError(t, f.store.Add(ctx, chips(), 1))
		before := f.store.Snapshot().Encode()

		err := f.store.Add(ctx, chips(), math.MaxInt)
		require.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, before, f.store.Snapshot().Encode())
		assert.Equal(t, 1, f.store.Items()[0].Quantity)
		assertInvariants(t, f.store)
	})
	t.Run("untracked", func(t *testing.T) {
		notices := &recorder{}
		s, err := New(context.Background(), Deps{Persister: &mockPersister{}, Notifier: notices})
		require.NoError(t, err)
		ctx := context.Background()

		require.ErrorIs(t, s.Add(ctx, chips(), math.MaxInt), ErrInvalidQuantity)
		assert.Empty(t, s.Items())

		require.NoError(t, s.Add(ctx, chips(), MaxQuantity))
		require.ErrorIs(t, s.Add(ctx, chips(), 1), ErrInvalidQuantity)
		assert.Equal(t, MaxQuantity, s.ItemCount())
		assert.Equal(t, NoticeQuantityLimit, notices.last().Kind)
		assert.Equal(t, LevelError, notices.last().Level)
		assertInvariants(t, s)
	})
}

func TestAdd_StockRejections(t *testing.T) {
	tests := []struct {
		name     string
		stock    map[string]int
		stockErr error
		prior    int
		qty      int
		wantErr  error
		notice   NoticeKind
	}{
		{name: "zero stock", stock: map[string]int{"p1": 0}, qty: 1, wantErr: ErrOutOfStock, notice: NoticeOutOfStock},
		{name: "unknown product", stock: map[string]int{}, qty: 1, wantErr: ErrOutOfStock, notice: NoticeOutOfStock},
		{name: "exceeds stock", stock: map[string]int{"p1": 2}, qty: 3, wantErr: ErrInsufficientStock, notice: NoticeInsufficientStock},
		{name: "existing plus new exceeds stock", stock: map[string]int{"p1": 2}, prior: 2, qty: 1, wantErr: ErrInsufficientStock, notice: NoticeInsufficientStock},
		{name: "stock service down", stock: map[string]int{"p1": 5}, stockErr: errors.New("timeout"), qty: 1, wantErr: ErrStockUnavailable, notice: NoticeStockUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.stock.stock = map[string]int{"p1": 10}
			if tt.prior > 0 {
				require.NoError(t, f.store.Add(ctx, chips(), tt.prior))
			}
			before := f.store.Snapshot().Encode()

			f.stock.stock = tt.stock
			f.stock.err = tt.stockErr
			err := f.store.Add(ctx, chips(), tt.qty)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.store.Snapshot().Encode())
			last := f.notices.last()
			assert.Equal(t, tt.notice, last.Kind)
			assert.Equal(t, LevelError, last.Level)
			assertInvariants(t, f.store)
		})
	}
}

func TestAdd_StockUnavailableError(t *testing.T) {
	f := newFixture(t)
	cause := errors.New("stock service timeout")
	f.stock.err = cause

	err := f.store.Add(context.Background(), chips(), 1)
	require.ErrorIs(t, err, ErrStockUnavailable)
	require.ErrorIs(t, err, cause)

	var stockErr *StockUnavailableError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Contains(t, err.Error(), "p1")
}

func TestAdd_WithoutStockTracking(t *testing.T) {
	s, err := New(context.Background(), Deps{Persister: &mockPersister{}})
	require.NoError(t, err)

	require.NoError(t, s.Add(context.Background(), chips(), 50))
	assert.Equal(t, 50, s.ItemCount())
	assert.Nil(t, s.Items()[0].StockQuantity)
}

func TestAdd_BundleSkipsStockCheck(t *testing.T) {
	f := newFixture(t)
	box := Product{
		ID:    "custom-box-1",
		Name:  "Custom Box",
		Price: dec("60"),
		Contents: []BundleLine{
			{ProductID: "p1", Name: "Chips", Category: "chips", Price: dec("20"), Quantity: 1},
			{ProductID: "p2", Name: "Cola", Category: "drinks", Price: dec("40"), Quantity: 1},
		},
	}

	require.NoError(t, f.store.Add(context.Background(), box, 1))
	assert.Zero(t, f.stock.calls)
	items := f.store.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsBundle())
	assert.Len(t, items[0].Contents, 2)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 1))

	require.NoError(t, f.store.UpdateQuantity(ctx, "p1", 4))
	assert.Equal(t, 4, f.store.Items()[0].Quantity)
	assert.Equal(t, NoticeUpdated, f.notices.last().Kind)
	assertInvariants(t, f.store)
}

func TestUpdateQuantity_ExceedsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 2))

	err := f.store.UpdateQuantity(ctx, "p1", 10)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, f.store.Items()[0].Quantity)
	assert.Equal(t, NoticeInsufficientStock, f.notices.last().Kind)
}

func TestUpdateQuantity_AboveLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 2))

	for _, qty := range []int{MaxQuantity + 1, math.MaxInt} {
		err := f.store.UpdateQuantity(ctx, "p1", qty)
		require.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, 2, f.store.Items()[0].Quantity)
	}
	assertInvariants(t, f.store)
}

func TestUpdateQuantity_ZeroMatchesRemove(t *testing.T) {
	byUpdate := newFixture(t)
	byRemove := newFixture(t)
	ctx := context.Background()
	require.NoError(t, byUpdate.store.Add(ctx, chips(), 2))
	require.NoError(t, byRemove.store.Add(ctx, chips(), 2))

	require.NoError(t, byUpdate.store.UpdateQuantity(ctx, "p1", 0))
	require.NoError(t, byRemove.store.Remove(ctx, "p1"))

	assert.Empty(t, byUpdate.store.Items())
	assert.Equal(t, byRemove.notices.kinds(), byUpdate.notices.kinds())
	assert.Equal(t, byRemove.notices.last(), byUpdate.notices.last())
	assert.Equal(t, NoticeRemoved, byUpdate.notices.last().Kind)
}

func TestUpdateQuantity_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.UpdateQuantity(context.Background(), "missing", 3))
	assert.Empty(t, f.store.Items())
	assert.Empty(t, f.notices.kinds())
	assert.Zero(t, f.stock.calls)
}

func TestUpdateQuantity_RemovedDuringStockCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 1))

	f.stock.hook = func() {
		f.stock.hook = nil
		require.NoError(t, f.store.Remove(ctx, "p1"))
	}
	require.NoError(t, f.store.UpdateQuantity(ctx, "p1", 3))

	assert.Empty(t, f.store.Items())
	assertInvariants(t, f.store)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 1))
	require.NoError(t, f.store.Add(ctx, cola(), 1))

	require.NoError(t, f.store.Remove(ctx, "p1"))
	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, "Chips removed from your box", f.notices.last().Message)

	n := len(f.notices.kinds())
	require.NoError(t, f.store.Remove(ctx, "p1"))
	assert.Len(t, f.notices.kinds(), n, "removing an absent item must not notify")
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, cola(), 3))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))

	f.store.Clear(ctx)

	assert.Empty(t, f.store.Items())
	_, ok := f.store.Coupon()
	assert.False(t, ok)
	assert.Equal(t, NoticeCleared, f.notices.last().Kind)
	assert.Equal(t, "Your box is now empty", f.notices.last().Message)

	restored, err := New(ctx, Deps{Persister: f.persister})
	require.NoError(t, err)
	assert.Empty(t, restored.Items())
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, cola(), 5))

	require.ErrorIs(t, f.store.ApplyCoupon(ctx, "  ", dec("10")), ErrEmptyCouponCode)

	require.NoError(t, f.store.ApplyCoupon(ctx, "ANY", dec("10")))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))
	c, ok := f.store.Coupon()
	require.True(t, ok)
	assert.Equal(t, "SAVE50", c.Code)
	assert.True(t, dec("50").Equal(c.Discount))

	require.NoError(t, f.store.ApplyCoupon(ctx, "ZERO", decimal.Zero))
	_, ok = f.store.Coupon()
	assert.False(t, ok)
	assertInvariants(t, f.store)
}

func TestRemoveCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, cola(), 5))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))

	f.store.RemoveCoupon(ctx)
	_, ok := f.store.Coupon()
	assert.False(t, ok)
	assert.Equal(t, NoticeCouponRemoved, f.notices.last().Kind)

	n := len(f.notices.kinds())
	f.store.RemoveCoupon(ctx)
	assert.Len(t, f.notices.kinds(), n)
}

func TestCoupon_TotalAndRevocationOnEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock.stock["big"] = 10
	big := Product{ID: "big", Name: "Party Pack", Price: dec("200")}
	require.NoError(t, f.store.Add(ctx, big, 1))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))

	b := f.store.Summary()
	// 200 + 0 delivery (above 149) + 10 convenience - 50
	assert.True(t, dec("160").Equal(b.Total), "total %s", b.Total)
	assert.True(t, dec("50").Equal(b.Discount))

	require.NoError(t, f.store.Remove(ctx, "big"))
	_, ok := f.store.Coupon()
	assert.False(t, ok)
	assert.True(t, f.store.Summary().Discount.IsZero())
	assertInvariants(t, f.store)
}

func TestCoupon_RevokedBelowMinimum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, cola(), 3))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))

	// 120 still meets the 100 minimum.
	require.NoError(t, f.store.UpdateQuantity(ctx, "p2", 3))
	_, ok := f.store.Coupon()
	require.True(t, ok)

	// 80 does not.
	require.NoError(t, f.store.UpdateQuantity(ctx, "p2", 2))
	_, ok = f.store.Coupon()
	assert.False(t, ok)
}

func TestCoupon_RevokedWhenLookupFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, cola(), 3))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))

	f.coupons.err = errors.New("service unavailable")
	require.NoError(t, f.store.Add(ctx, chips(), 1))

	_, ok := f.store.Coupon()
	assert.False(t, ok)
	assert.Len(t, f.store.Items(), 2)
}

func TestCoupon_KeptWithoutCheckerUntilEmpty(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Deps{Persister: &mockPersister{}})
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, cola(), 2))
	require.NoError(t, s.ApplyCoupon(ctx, "SAVE50", dec("50")))

	require.NoError(t, s.UpdateQuantity(ctx, "p2", 1))
	_, ok := s.Coupon()
	require.True(t, ok)

	require.NoError(t, s.Remove(ctx, "p2"))
	_, ok = s.Coupon()
	assert.False(t, ok)
}

func TestSummary_DiscountCappedAtSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 1))
	require.NoError(t, f.store.ApplyCoupon(ctx, "ANY", dec("500")))

	b := f.store.Summary()
	assert.True(t, dec("20").Equal(b.Discount))
	// 20 + 20 delivery + 10 convenience - 20
	assert.True(t, dec("30").Equal(b.Total), "total %s", b.Total)
	assertInvariants(t, f.store)
}

func TestDeliveryThreshold(t *testing.T) {
	ctx := context.Background()
	pricing := DefaultPricing()
	pricing.FreeDeliveryThreshold = dec("1000")
	pricing.DeliveryFee = dec("40")

	s, err := New(ctx, Deps{Persister: &mockPersister{}, Pricing: pricing})
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, Product{ID: "p", Name: "Tray", Price: dec("400")}, 3))

	b := s.Summary()
	assert.True(t, dec("1200").Equal(b.Subtotal))
	assert.True(t, b.DeliveryFee.IsZero())

	require.NoError(t, s.UpdateQuantity(ctx, "p", 2))
	b = s.Summary()
	assert.True(t, dec("800").Equal(b.Subtotal))
	assert.True(t, dec("40").Equal(b.DeliveryFee))
	assert.True(t, dec("200").Equal(b.AmountToFreeDelivery))
}

func TestPersistence_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, chips(), 2))
	require.NoError(t, f.store.Add(ctx, cola(), 3))
	require.NoError(t, f.store.ApplyCoupon(ctx, "SAVE50", dec("50")))
	saved := f.persister.data

	restored, err := New(ctx, Deps{Persister: f.persister})
	require.NoError(t, err)
	assert.Equal(t, f.store.Items(), restored.Items())
	c, ok := restored.Coupon()
	require.True(t, ok)
	assert.Equal(t, "SAVE50", c.Code)

	// Saving what was loaded yields the same bytes, twice over.
	once := restored.Snapshot().Encode()
	assert.Equal(t, saved, once)
	snap, err := DecodeSnapshot(once)
	require.NoError(t, err)
	assert.Equal(t, once, snap.Encode())
}

func TestPersistence_SaveFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.persister.saveErr = errors.New("disk full")

	require.NoError(t, f.store.Add(context.Background(), chips(), 1))
	assert.Len(t, f.store.Items(), 1)
	assert.Equal(t, 1, f.persister.saves)
}

func TestConcurrentAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock.stock["p1"] = 1000
	f.stock.stock["p2"] = 1000

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.Add(ctx, chips(), 1))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.Add(ctx, cola(), 1))
		}()
	}
	wg.Wait()

	items := f.store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 100, f.store.ItemCount())
	assertInvariants(t, f.store)
}

func TestConcurrentAdds_RespectStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.store.Add(ctx, chips(), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, f.store.ItemCount())
	assertInvariants(t, f.store)
}
