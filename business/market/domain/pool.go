// Package domain contains the core domain types for the market context.
package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// Version identifies the AMM pool design a pool implements.
type Version string

const (
	VersionV2 Version = "V2"
	VersionV3 Version = "V3"
	VersionV4 Version = "V4"
)

// ConcentratedLiquidity reports whether pools of this version price trades
// from a sqrt-price and in-range liquidity rather than plain reserves.
func (v Version) ConcentratedLiquidity() bool {
	return v == VersionV3 || v == VersionV4
}

// FeeTiers are the fee levels enumerated for concentrated-liquidity pools,
// in hundredths of a basis point (100 = 0.01%).
var FeeTiers = []int64{100, 500, 3000, 10000}

// TickSpacingForFee maps a fee tier to its tick spacing.
func TickSpacingForFee(feeTier int64) int64 {
	switch feeTier {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 0
	}
}

// PoolRef identifies one pool on one network. Immutable once resolved.
// V2 and V3 pools live at their own contract address; V4 pools live inside
// the singleton and are identified by PoolID instead.
type PoolRef struct {
	Network     string
	Version     Version
	PoolAddress common.Address
	PoolID      common.Hash
	Token0      common.Address
	Token1      common.Address
	FeeTier     int64
	TickSpacing int64
}

// Identity returns the stable lowercase identifier of the pool, usable as a
// cache key component and a deterministic tie-breaker.
func (r PoolRef) Identity() string {
	if r.Version == VersionV4 {
		return strings.ToLower(r.PoolID.Hex())
	}
	return strings.ToLower(r.PoolAddress.Hex())
}

// NewPoolRef builds a PoolRef with canonical token ordering: the
// lexicographically smaller address becomes Token0, matching the on-chain
// pair ordering.
func NewPoolRef(network string, version Version, pool, tokenA, tokenB common.Address, feeTier int64) PoolRef {
	t0, t1 := SortTokens(tokenA, tokenB)
	ref := PoolRef{
		Network:     network,
		Version:     version,
		PoolAddress: pool,
		Token0:      t0,
		Token1:      t1,
		FeeTier:     feeTier,
	}
	if version.ConcentratedLiquidity() {
		ref.TickSpacing = TickSpacingForFee(feeTier)
	}
	return ref
}

// SortTokens returns the pair in canonical order.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if strings.ToLower(a.Hex()) < strings.ToLower(b.Hex()) {
		return a, b
	}
	return b, a
}

// ZeroForOne reports whether a swap selling tokenIn moves the pool price
// from token0 toward token1.
func (r PoolRef) ZeroForOne(tokenIn common.Address) bool {
	return tokenIn == r.Token0
}

// PoolState is a version-tagged snapshot of a pool's pricing inputs.
// Constant-product pools carry reserves; concentrated-liquidity pools carry
// liquidity, sqrt price, and current tick. Replaced whole on re-fetch.
type PoolState struct {
	Version      Version
	Reserve0     *big.Int
	Reserve1     *big.Int
	Liquidity    *big.Int
	SqrtPriceX96 *big.Int
	Tick         int64
	FetchedAt    time.Time
}

// NewReserveState builds a constant-product snapshot.
func NewReserveState(reserve0, reserve1 *big.Int) *PoolState {
	return &PoolState{
		Version:   VersionV2,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		FetchedAt: time.Now(),
	}
}

// NewLiquidityState builds a concentrated-liquidity snapshot.
func NewLiquidityState(version Version, liquidity, sqrtPriceX96 *big.Int, tick int64) *PoolState {
	return &PoolState{
		Version:      version,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPriceX96,
		Tick:         tick,
		FetchedAt:    time.Now(),
	}
}

// Empty reports whether the pool holds no usable liquidity.
func (s *PoolState) Empty() bool {
	if s.Version.ConcentratedLiquidity() {
		return s.Liquidity == nil || s.Liquidity.Sign() <= 0 ||
			s.SqrtPriceX96 == nil || s.SqrtPriceX96.Sign() <= 0
	}
	return s.Reserve0 == nil || s.Reserve0.Sign() <= 0 ||
		s.Reserve1 == nil || s.Reserve1.Sign() <= 0
}

// Validate rejects snapshots that could not have come from a live pool.
func (s *PoolState) Validate() error {
	if s.Version.ConcentratedLiquidity() {
		if s.Liquidity == nil || s.SqrtPriceX96 == nil {
			return apperror.New(apperror.CodePoolNotFound,
				apperror.WithContext("incomplete concentrated-liquidity state"))
		}
		return nil
	}
	if s.Reserve0 == nil || s.Reserve1 == nil {
		return apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext("incomplete reserve state"))
	}
	return nil
}
