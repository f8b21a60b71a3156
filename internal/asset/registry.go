package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type key struct {
	chainID uint64
	address common.Address
}

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byKey    map[key]*Asset
	bySymbol map[string][]*Asset // symbol -> assets (can repeat across chains)
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[key]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same (chain, address) is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{chainID: a.ChainID(), address: a.Address()}
	if _, exists := r.byKey[k]; exists {
		panic(fmt.Sprintf("asset: %d/%s already registered", k.chainID, k.address.Hex()))
	}

	r.byKey[k] = a
	symbol := strings.ToUpper(a.Symbol())
	r.bySymbol[symbol] = append(r.bySymbol[symbol], a)
}

// Get retrieves an asset by chain and address.
func (r *Registry) Get(chainID uint64, address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byKey[key{chainID: chainID, address: address}]
	return a, ok
}

// GetBySymbolAndChain retrieves an asset by symbol and chain ID.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[strings.ToUpper(symbol)] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// All returns all registered assets.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byKey))
	for _, a := range r.byKey {
		result = append(result, a)
	}
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
