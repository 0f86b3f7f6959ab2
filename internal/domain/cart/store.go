package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Deps are the collaborators of a Store. Only Persister is required.
type Deps struct {
	Persister Persister
	// Stock enables stock tracking when set.
	Stock StockChecker
	// Coupons is consulted when an applied coupon must be revalidated. When
	// nil the coupon is revoked only once the cart becomes empty.
	Coupons  CouponChecker
	Notifier Notifier
	// Pricing defaults to DefaultPricing when left zero.
	Pricing Pricing
	Logger  *zap.Logger
	Meter   metric.Meter
}

// Store is the cart state container. It is safe for concurrent use; every
// change is applied against the latest state and written through to the
// Persister.
type Store struct {
	mu     sync.Mutex
	items  []Item
	coupon *AppliedCoupon
	// version counts committed changes.
	version uint64
	loadErr error

	persister Persister
	stock     StockChecker
	coupons   CouponChecker
	notifier  Notifier
	pricing   Pricing
	lg        *zap.Logger

	mutations metric.Int64Counter
	rejected  metric.Int64Counter
	revoked   metric.Int64Counter
}

// New creates a Store and restores the persisted cart. A missing, unreadable
// or malformed snapshot yields an empty cart; an unreadable one is reported
// by LoadErr.
func New(ctx context.Context, deps Deps) (*Store, error) {
	if deps.Persister == nil {
		return nil, errors.New("cart persister is required")
	}
	if deps.Pricing.ConvenienceMode == "" {
		deps.Pricing = DefaultPricing()
	}
	if err := deps.Pricing.Validate(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Meter == nil {
		deps.Meter = noop.NewMeterProvider().Meter("")
	}

	s := &Store{
		persister: deps.Persister,
		stock:     deps.Stock,
		coupons:   deps.Coupons,
		notifier:  deps.Notifier,
		pricing:   deps.Pricing,
		lg:        deps.Logger,
	}

	var err error
	if s.mutations, err = deps.Meter.Int64Counter("cart.mutations",
		metric.WithDescription("Applied cart mutations"),
	); err != nil {
		return nil, errors.Wrap(err, "mutations counter")
	}
	if s.rejected, err = deps.Meter.Int64Counter("cart.rejections",
		metric.WithDescription("Cart mutations rejected by stock checks"),
	); err != nil {
		return nil, errors.Wrap(err, "rejections counter")
	}
	if s.revoked, err = deps.Meter.Int64Counter("cart.coupon.revocations",
		metric.WithDescription("Coupons revoked after the cart changed"),
	); err != nil {
		return nil, errors.Wrap(err, "revocations counter")
	}

	s.restore(ctx)
	return s, nil
}

func (s *Store) restore(ctx context.Context) {
	data, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, ErrNoState):
		return
	case err != nil:
		s.lg.Warn("Failed to load cart, starting empty", zap.Error(err))
		s.loadErr = err
		return
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		s.lg.Warn("Discarding malformed cart", zap.Error(err))
		return
	}
	s.items = snap.Items
	s.coupon = snap.Coupon
}

// LoadErr returns the error that prevented restoring the persisted cart, or
// nil when the cart was restored or nothing was saved. A store with a load
// error must not be kept: its first save would overwrite the unread cart.
func (s *Store) LoadErr() error {
	return s.loadErr
}

// Items returns a copy of the cart lines in display order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	for i, item := range s.items {
		out[i] = cloneItem(item)
	}
	return out
}

// Coupon returns the applied coupon, if any.
func (s *Store) Coupon() (AppliedCoupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coupon == nil {
		return AppliedCoupon{}, false
	}
	return *s.coupon, true
}

// Subtotal returns the sum of price times quantity over all items.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtotalLocked()
}

// ItemCount returns the total number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCountLocked()
}

// Pricing returns the fee policy used by the store.
func (s *Store) Pricing() Pricing {
	return s.pricing
}

// Summary prices the cart.
func (s *Store) Summary() Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	discount := decimal.Zero
	if s.coupon != nil {
		discount = s.coupon.Discount
	}
	return s.pricing.Price(s.subtotalLocked(), discount, s.itemCountLocked())
}

// Snapshot returns the current serializable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) subtotalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) itemCountLocked() int {
	var n int
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(item Item) bool { return item.ID == id })
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Items: make([]Item, len(s.items))}
	for i, item := range s.items {
		snap.Items[i] = cloneItem(item)
	}
	if s.coupon != nil {
		c := *s.coupon
		snap.Coupon = &c
	}
	return snap
}

// saveLocked writes the state through to the persister. Saving under the
// lock keeps persisted snapshots in commit order.
func (s *Store) saveLocked(ctx context.Context) {
	s.version++
	if err := s.persister.Save(ctx, s.snapshotLocked().Encode()); err != nil {
		s.lg.Error("Failed to persist cart", zap.Error(err))
	}
}

func (s *Store) count(ctx context.Context, c metric.Int64Counter, op string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func cloneItem(item Item) Item {
	item.Images = slices.Clone(item.Images)
	item.Contents = slices.Clone(item.Contents)
	if item.StockQuantity != nil {
		n := *item.StockQuantity
		item.StockQuantity = &n
	}
	return item
}
