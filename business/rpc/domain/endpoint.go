// Package domain contains the transport-independent model of the RPC layer:
// endpoint pools and the strategy used to pick an endpoint per call.
package domain

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

// Endpoint is one interchangeable RPC node URL within a network's pool.
type Endpoint struct {
	URL string
}

// Pool is an immutable set of interchangeable endpoints for one network.
type Pool struct {
	network   string
	endpoints []Endpoint
}

// NewPool creates a pool for a network from its configured URLs.
func NewPool(network string, urls []string) *Pool {
	endpoints := make([]Endpoint, len(urls))
	for i, u := range urls {
		endpoints[i] = Endpoint{URL: u}
	}
	return &Pool{network: network, endpoints: endpoints}
}

// Network returns the network tag this pool serves.
func (p *Pool) Network() string {
	return p.network
}

// Size returns the number of endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// At returns the endpoint at index i.
func (p *Pool) At(i int) Endpoint {
	return p.endpoints[i]
}

// Selector picks one endpoint index out of n for a single call. A fresh pick
// happens on every call; a retry one layer up may therefore land on a
// different endpoint.
type Selector interface {
	Next(n int) int
}

// RoundRobin cycles deterministically through the pool.
type RoundRobin struct {
	counter atomic.Uint64
}

// NewRoundRobin creates a round-robin selector.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Next returns the next index in the cycle.
func (s *RoundRobin) Next(n int) int {
	if n <= 0 {
		return 0
	}
	return int((s.counter.Add(1) - 1) % uint64(n))
}

// Random picks uniformly from the pool using an injectable source, so tests
// can force deterministic choices.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom creates a random selector seeded from seed.
func NewRandom(seed int64) *Random {
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

// Next returns a uniformly random index.
func (s *Random) Next(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
