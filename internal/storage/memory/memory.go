// Package memory keeps serialized carts in process memory. It backs local
// development and tests when Redis is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
)

// CartStates hands out per-session persistence slots.
type CartStates struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewCartStates creates an empty CartStates.
func NewCartStates() *CartStates {
	return &CartStates{data: make(map[string][]byte)}
}

// Slot returns the persister for a session.
func (s *CartStates) Slot(session string) cart.Persister {
	return &slot{states: s, key: cart.StorageKey + ":" + session}
}

// Len returns the number of stored carts.
func (s *CartStates) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type slot struct {
	states *CartStates
	key    string
}

func (s *slot) Load(context.Context) ([]byte, error) {
	s.states.mu.RLock()
	defer s.states.mu.RUnlock()
	data, ok := s.states.data[s.key]
	if !ok {
		return nil, cart.ErrNoState
	}
	return append([]byte(nil), data...), nil
}

func (s *slot) Save(_ context.Context, data []byte) error {
	s.states.mu.Lock()
	defer s.states.mu.Unlock()
	s.states.data[s.key] = append([]byte(nil), data...)
	return nil
}
