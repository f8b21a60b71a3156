// Package app contains application services and port definitions for the market context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/business/market/domain"
)

// ChainReader defines the contract reads the resolver and token service
// depend on. The ethereum infra package provides the live implementation.
type ChainReader interface {
	// V2PairAddress looks a pair up on a constant-product factory.
	V2PairAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address) (common.Address, error)

	// V2Reserves reads the reserve snapshot of a pair.
	V2Reserves(ctx context.Context, network string, pair common.Address) (*domain.PoolState, error)

	// V3PoolAddress looks a pool up per fee tier.
	V3PoolAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address, feeTier int64) (common.Address, error)

	// V3PoolState reads slot0 and liquidity from a pool contract.
	V3PoolState(ctx context.Context, network string, pool common.Address) (*domain.PoolState, error)

	// V4PoolState reads pool state through a state-view contract.
	V4PoolState(ctx context.Context, network string, stateView common.Address, poolID common.Hash) (*domain.PoolState, error)

	// HasCode reports whether deployed bytecode exists at an address.
	HasCode(ctx context.Context, network string, addr common.Address) (bool, error)

	// TokenMetadata reads name, symbol and decimals from an ERC-20.
	TokenMetadata(ctx context.Context, network string, token common.Address) (name, symbol string, decimals int64, err error)
}

// GasOracle defines the gas information port consumed by the quote context.
type GasOracle interface {
	// GasPrice retrieves the current gas price for a network.
	GasPrice(ctx context.Context, network string) (*domain.GasPrice, error)

	// EstimateGas estimates gas for a call, degrading to a default limit.
	EstimateGas(ctx context.Context, network string, to common.Address, data []byte) (*domain.GasEstimate, error)
}
