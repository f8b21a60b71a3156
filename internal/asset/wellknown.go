package asset

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const chainIDEthereum = 1

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns a registry pre-populated with well-known mainnet
// tokens.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		seed(defaultRegistry)
	})
	return defaultRegistry
}

func seed(r *Registry) {
	for _, t := range []struct {
		address  string
		symbol   string
		name     string
		decimals uint8
	}{
		{"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "WETH", "Wrapped Ether", 18},
		{"0xA0b86991c6218b36c1d19D4a2e9eb0cE3606eB48", "USDC", "USD Coin", 6},
		{"0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", "Tether USD", 6},
		{"0x6B175474E89094C44Da98b954EedeAC495271d0F", "DAI", "Dai Stablecoin", 18},
		{"0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", "WBTC", "Wrapped BTC", 8},
		{"0x514910771AF9Ca656af840dff83E8264EcF986CA", "LINK", "ChainLink Token", 18},
		{"0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", "UNI", "Uniswap", 18},
	} {
		r.Register(NewAsset(chainIDEthereum, common.HexToAddress(t.address), t.symbol, t.name, t.decimals))
	}
}
