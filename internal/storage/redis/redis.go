// Package redis persists serialized carts in Redis, one key per session.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
)

// DefaultTTL keeps an untouched cart for a week.
const DefaultTTL = 7 * 24 * time.Hour

// CartStates hands out per-session persistence slots.
type CartStates struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewCartStates creates CartStates. A non-positive ttl uses DefaultTTL.
func NewCartStates(client redis.UniversalClient, ttl time.Duration) *CartStates {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CartStates{
		client: client,
		ttl:    ttl,
		prefix: cart.StorageKey,
	}
}

// Slot returns the persister for a session.
func (s *CartStates) Slot(session string) cart.Persister {
	return &slot{states: s, key: s.key(session)}
}

// Ping checks connectivity.
func (s *CartStates) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *CartStates) key(session string) string {
	return s.prefix + ":" + session
}

type slot struct {
	states *CartStates
	key    string
}

var _ cart.Persister = (*slot)(nil)

func (s *slot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.states.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNoState
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return data, nil
}

// Save writes the snapshot and refreshes the expiry.
func (s *slot) Save(ctx context.Context, data []byte) error {
	if err := s.states.client.Set(ctx, s.key, data, s.states.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}
