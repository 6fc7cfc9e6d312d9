package explorer

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

// KeySelector decides which API key the next explorer request uses. The key
// list is fixed at construction time; selection strategy is injected into the
// client so callers choose the rotation behavior.
type KeySelector interface {
	NextKey() string
}

// RoundRobinKeys cycles through the configured keys in order. Safe for
// concurrent use.
type RoundRobinKeys struct {
	keys   []string
	cursor atomic.Uint64
}

// NewRoundRobinKeys builds a round-robin selector over the given keys.
func NewRoundRobinKeys(keys []string) (*RoundRobinKeys, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one api key is required")
	}
	return &RoundRobinKeys{keys: append([]string(nil), keys...)}, nil
}

// NextKey implements the KeySelector interface
func (r *RoundRobinKeys) NextKey() string {
	n := r.cursor.Add(1)
	return r.keys[(n-1)%uint64(len(r.keys))]
}

// RandomKeys picks a uniformly random key per request.
type RandomKeys struct {
	keys []string
}

// NewRandomKeys builds a random selector over the given keys.
func NewRandomKeys(keys []string) (*RandomKeys, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one api key is required")
	}
	return &RandomKeys{keys: append([]string(nil), keys...)}, nil
}

// NextKey implements the KeySelector interface
func (r *RandomKeys) NextKey() string {
	return r.keys[rand.Intn(len(r.keys))]
}
