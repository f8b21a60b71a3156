// Package asset provides a static registry of well-known ERC-20 tokens.
// It pre-seeds the token metadata cache so common pairs never hit the
// network for name/symbol/decimals.
package asset

import "github.com/ethereum/go-ethereum/common"

// Asset represents the metadata of a known on-chain token.
// Identity is (chainID, address); symbol is display metadata only.
type Asset struct {
	chainID  uint64
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates a new Asset with the given parameters.
func NewAsset(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 77 {
		panic("asset: decimals exceed uint256 digit bound")
	}

	return &Asset{
		chainID:  chainID,
		address:  address,
		symbol:   symbol,
		name:     name,
		decimals: decimals,
	}
}

// ChainID returns the chain the token is deployed on.
func (a *Asset) ChainID() uint64 {
	return a.chainID
}

// Address returns the token contract address.
func (a *Asset) Address() common.Address {
	return a.address
}

// Symbol returns the ticker symbol (e.g., "WETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}
