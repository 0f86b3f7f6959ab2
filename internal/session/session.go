// Package session keeps one cart and one box builder per browser session.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/box"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
)

var (
	// ErrInvalidID is returned for session ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid session id")
	// ErrUnavailable is returned when a saved cart could not be read. The
	// session is not cached and the next Get retries.
	ErrUnavailable = errors.New("cart temporarily unavailable")
)

// restoreTimeout bounds reading a saved cart. The read is detached from the
// caller so a disconnecting client cannot fail it.
const restoreTimeout = 5 * time.Second

// Slots hands out the persistence slot of a session.
type Slots interface {
	Slot(session string) cart.Persister
}

// Deps configures the stores the registry creates.
type Deps struct {
	Slots    Slots
	Stock    cart.StockChecker
	Coupons  cart.CouponChecker
	Notifier cart.Notifier
	Pricing  cart.Pricing
	Logger   *zap.Logger
	Meter    metric.Meter
}

// Session is the live state of one browser session.
type Session struct {
	ID   string
	Cart *cart.Store
	Box  *box.Builder

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Registry creates sessions on first use and evicts idle ones. Evicted carts
// are already persisted and are restored on the next access.
type Registry struct {
	deps Deps
	idle time.Duration
	lg   *zap.Logger
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	loading  singleflight.Group
}

// NewRegistry creates a Registry. Sessions idle for longer than idle are
// evicted by Run.
func NewRegistry(deps Deps, idle time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		deps:     deps,
		idle:     idle,
		lg:       deps.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session with id, restoring its cart on first access. A
// cart that cannot be read yields ErrUnavailable rather than an empty
// session, which would overwrite the saved cart on its first change.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(r.now())
		return s, nil
	}

	v, err, _ := r.loading.Do(id, func() (any, error) {
		r.mu.RLock()
		s, ok := r.sessions[id]
		r.mu.RUnlock()
		if ok {
			return s, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		defer cancel()

		store, err := cart.New(loadCtx, cart.Deps{
			Persister: r.deps.Slots.Slot(id),
			Stock:     r.deps.Stock,
			Coupons:   r.deps.Coupons,
			Notifier:  r.deps.Notifier,
			Pricing:   r.deps.Pricing,
			Logger:    r.lg.With(zap.String("session", id)),
			Meter:     r.deps.Meter,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
		if err := store.LoadErr(); err != nil {
			return nil, errors.Wrapf(ErrUnavailable, "restore cart: %v", err)
		}
		s = &Session{ID: id, Cart: store, Box: box.NewBuilder()}
		s.touch(r.now())

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s = v.(*Session)
	s.touch(r.now())
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict drops sessions idle for longer than the idle timeout and returns how
// many were dropped.
func (r *Registry) Evict() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.lg.Debug("Evicted idle sessions",
					zap.Int("evicted", n),
					zap.Int("live", r.Len()),
				)
			}
		}
	}
}
