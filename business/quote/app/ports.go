// Package app contains the quote orchestrator and its port definitions.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	marketdomain "github.com/dexquote/swap-quoter/business/market/domain"
)

// PoolFinder locates pools and fetches their state. The market context's
// resolver provides the live implementation.
type PoolFinder interface {
	// ResolveAll enumerates every viable pool for a token pair.
	ResolveAll(ctx context.Context, network string, tokenA, tokenB common.Address) ([]marketdomain.PoolRef, error)

	// FetchState returns a pool's current pricing state.
	FetchState(ctx context.Context, ref marketdomain.PoolRef) (*marketdomain.PoolState, error)
}

// TokenReader serves ERC-20 metadata.
type TokenReader interface {
	Metadata(ctx context.Context, network string, token common.Address) (*marketdomain.TokenMeta, error)
}

// GasOracle provides gas prices and estimates.
type GasOracle interface {
	GasPrice(ctx context.Context, network string) (*marketdomain.GasPrice, error)
	EstimateGas(ctx context.Context, network string, to common.Address, data []byte) (*marketdomain.GasEstimate, error)
}
