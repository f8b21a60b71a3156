package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/business/market/domain"
	"github.com/dexquote/swap-quoter/internal/apperror"
)

// PoolReader reads pool addresses and state from factories and pools.
// A malformed contract response is reported as a missing pool rather than a
// transport failure; retrying cannot fix an ABI mismatch.
type PoolReader struct {
	reader *Reader
	abis   *contractABIs
}

// NewPoolReader builds a PoolReader over a contract reader.
func NewPoolReader(reader *Reader) (*PoolReader, error) {
	abis, err := loadABIs()
	if err != nil {
		return nil, err
	}
	return &PoolReader{reader: reader, abis: abis}, nil
}

func malformed(ref string, err error) error {
	return apperror.New(apperror.CodePoolNotFound,
		apperror.WithCause(err),
		apperror.WithContext(fmt.Sprintf("malformed response from %s", ref)))
}

// V2PairAddress looks a pair up on a constant-product factory. The zero
// address means the pair has never been created.
func (p *PoolReader) V2PairAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address) (common.Address, error) {
	data, err := p.abis.v2Factory.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, malformed("v2 factory", err)
	}
	raw, err := p.reader.CallContract(ctx, network, factory, data)
	if err != nil {
		return common.Address{}, err
	}
	out, err := p.abis.v2Factory.Unpack("getPair", raw)
	if err != nil {
		return common.Address{}, malformed(factory.Hex(), err)
	}
	return out[0].(common.Address), nil
}

// V2Reserves reads the reserve snapshot of a constant-product pair.
func (p *PoolReader) V2Reserves(ctx context.Context, network string, pair common.Address) (*domain.PoolState, error) {
	data, err := p.abis.v2Pair.Pack("getReserves")
	if err != nil {
		return nil, malformed("v2 pair", err)
	}
	raw, err := p.reader.CallContract(ctx, network, pair, data)
	if err != nil {
		return nil, err
	}
	out, err := p.abis.v2Pair.Unpack("getReserves", raw)
	if err != nil {
		return nil, malformed(pair.Hex(), err)
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, malformed(pair.Hex(), fmt.Errorf("unexpected reserve types"))
	}
	return domain.NewReserveState(reserve0, reserve1), nil
}

// V3PoolAddress looks a pool up on a concentrated-liquidity factory for one
// fee tier. The zero address means no pool exists at that tier.
func (p *PoolReader) V3PoolAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address, feeTier int64) (common.Address, error) {
	data, err := p.abis.v3Factory.Pack("getPool", tokenA, tokenB, big.NewInt(feeTier))
	if err != nil {
		return common.Address{}, malformed("v3 factory", err)
	}
	raw, err := p.reader.CallContract(ctx, network, factory, data)
	if err != nil {
		return common.Address{}, err
	}
	out, err := p.abis.v3Factory.Unpack("getPool", raw)
	if err != nil {
		return common.Address{}, malformed(factory.Hex(), err)
	}
	return out[0].(common.Address), nil
}

// V3PoolState reads slot0 and in-range liquidity from a pool contract.
func (p *PoolReader) V3PoolState(ctx context.Context, network string, pool common.Address) (*domain.PoolState, error) {
	slotData, err := p.abis.v3Pool.Pack("slot0")
	if err != nil {
		return nil, malformed("v3 pool", err)
	}
	rawSlot, err := p.reader.CallContract(ctx, network, pool, slotData)
	if err != nil {
		return nil, err
	}
	slot, err := p.abis.v3Pool.Unpack("slot0", rawSlot)
	if err != nil {
		return nil, malformed(pool.Hex(), err)
	}

	liqData, err := p.abis.v3Pool.Pack("liquidity")
	if err != nil {
		return nil, malformed("v3 pool", err)
	}
	rawLiq, err := p.reader.CallContract(ctx, network, pool, liqData)
	if err != nil {
		return nil, err
	}
	liq, err := p.abis.v3Pool.Unpack("liquidity", rawLiq)
	if err != nil {
		return nil, malformed(pool.Hex(), err)
	}

	sqrtPriceX96, ok := slot[0].(*big.Int)
	if !ok {
		return nil, malformed(pool.Hex(), fmt.Errorf("unexpected slot0 types"))
	}
	tick, ok := slot[1].(*big.Int)
	if !ok {
		return nil, malformed(pool.Hex(), fmt.Errorf("unexpected tick type"))
	}
	liquidity, ok := liq[0].(*big.Int)
	if !ok {
		return nil, malformed(pool.Hex(), fmt.Errorf("unexpected liquidity type"))
	}
	return domain.NewLiquidityState(domain.VersionV3, liquidity, sqrtPriceX96, tick.Int64()), nil
}

// V4PoolState reads a pool's slot0 and liquidity through the singleton's
// state-view contract, keyed by pool id.
func (p *PoolReader) V4PoolState(ctx context.Context, network string, stateView common.Address, poolID common.Hash) (*domain.PoolState, error) {
	slotData, err := p.abis.v4StateView.Pack("getSlot0", poolID)
	if err != nil {
		return nil, malformed("v4 state view", err)
	}
	rawSlot, err := p.reader.CallContract(ctx, network, stateView, slotData)
	if err != nil {
		return nil, err
	}
	slot, err := p.abis.v4StateView.Unpack("getSlot0", rawSlot)
	if err != nil {
		return nil, malformed(stateView.Hex(), err)
	}

	liqData, err := p.abis.v4StateView.Pack("getLiquidity", poolID)
	if err != nil {
		return nil, malformed("v4 state view", err)
	}
	rawLiq, err := p.reader.CallContract(ctx, network, stateView, liqData)
	if err != nil {
		return nil, err
	}
	liq, err := p.abis.v4StateView.Unpack("getLiquidity", rawLiq)
	if err != nil {
		return nil, malformed(stateView.Hex(), err)
	}

	sqrtPriceX96, ok := slot[0].(*big.Int)
	if !ok {
		return nil, malformed(stateView.Hex(), fmt.Errorf("unexpected slot0 types"))
	}
	tick, ok := slot[1].(*big.Int)
	if !ok {
		return nil, malformed(stateView.Hex(), fmt.Errorf("unexpected tick type"))
	}
	liquidity, ok := liq[0].(*big.Int)
	if !ok {
		return nil, malformed(stateView.Hex(), fmt.Errorf("unexpected liquidity type"))
	}
	return domain.NewLiquidityState(domain.VersionV4, liquidity, sqrtPriceX96, tick.Int64()), nil
}

// HasCode reports whether deployed bytecode exists at an address.
func (p *PoolReader) HasCode(ctx context.Context, network string, addr common.Address) (bool, error) {
	code, err := p.reader.Code(ctx, network, addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// TokenMetadata reads name, symbol and decimals from an ERC-20 contract.
func (p *PoolReader) TokenMetadata(ctx context.Context, network string, token common.Address) (string, string, int64, error) {
	name, err := p.stringRead(ctx, network, token, "name")
	if err != nil {
		return "", "", 0, err
	}
	symbol, err := p.stringRead(ctx, network, token, "symbol")
	if err != nil {
		return "", "", 0, err
	}

	data, err := p.abis.erc20.Pack("decimals")
	if err != nil {
		return "", "", 0, metadataFailed(token, err)
	}
	raw, err := p.reader.CallContract(ctx, network, token, data)
	if err != nil {
		return "", "", 0, err
	}
	out, err := p.abis.erc20.Unpack("decimals", raw)
	if err != nil {
		return "", "", 0, metadataFailed(token, err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return "", "", 0, metadataFailed(token, fmt.Errorf("unexpected decimals type"))
	}
	return name, symbol, int64(decimals), nil
}

func (p *PoolReader) stringRead(ctx context.Context, network string, token common.Address, method string) (string, error) {
	data, err := p.abis.erc20.Pack(method)
	if err != nil {
		return "", metadataFailed(token, err)
	}
	raw, err := p.reader.CallContract(ctx, network, token, data)
	if err != nil {
		return "", err
	}
	out, err := p.abis.erc20.Unpack(method, raw)
	if err != nil {
		return "", metadataFailed(token, err)
	}
	s, ok := out[0].(string)
	if !ok {
		return "", metadataFailed(token, fmt.Errorf("unexpected %s type", method))
	}
	return s, nil
}

func metadataFailed(token common.Address, err error) error {
	return apperror.New(apperror.CodeTokenMetadataFailed,
		apperror.WithCause(err),
		apperror.WithContext(token.Hex()))
}
