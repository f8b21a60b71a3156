// Package ethereum reads pool and token state over JSON-RPC.
package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// V2FactoryABI covers pair lookup on constant-product factories.
const V2FactoryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// V2PairABI covers reserve reads on constant-product pairs.
const V2PairABI = `[
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// V3FactoryABI covers per-fee-tier pool lookup.
const V3FactoryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"}
		],
		"name": "getPool",
		"outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// V3PoolABI covers the slot0 and liquidity reads needed to price a pool.
const V3PoolABI = `[
	{
		"inputs": [],
		"name": "slot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
			{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
			{"internalType": "bool", "name": "unlocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// V4StateViewABI covers pool state reads on the singleton's state-view
// contract, keyed by pool id.
const V4StateViewABI = `[
	{
		"inputs": [{"internalType": "bytes32", "name": "poolId", "type": "bytes32"}],
		"name": "getSlot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint24", "name": "protocolFee", "type": "uint24"},
			{"internalType": "uint24", "name": "lpFee", "type": "uint24"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "bytes32", "name": "poolId", "type": "bytes32"}],
		"name": "getLiquidity",
		"outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC20ABI covers the metadata reads for token discovery.
const ERC20ABI = `[
	{
		"inputs": [],
		"name": "name",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "symbol",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// contractABIs holds the parsed ABIs, parsed once per process.
type contractABIs struct {
	v2Factory   abi.ABI
	v2Pair      abi.ABI
	v3Factory   abi.ABI
	v3Pool      abi.ABI
	v4StateView abi.ABI
	erc20       abi.ABI
}

var (
	abisOnce sync.Once
	abis     *contractABIs
	abisErr  error
)

func loadABIs() (*contractABIs, error) {
	abisOnce.Do(func() {
		parse := func(name, raw string) abi.ABI {
			parsed, err := abi.JSON(strings.NewReader(raw))
			if err != nil && abisErr == nil {
				abisErr = fmt.Errorf("failed to parse %s ABI: %w", name, err)
			}
			return parsed
		}
		abis = &contractABIs{
			v2Factory:   parse("v2 factory", V2FactoryABI),
			v2Pair:      parse("v2 pair", V2PairABI),
			v3Factory:   parse("v3 factory", V3FactoryABI),
			v3Pool:      parse("v3 pool", V3PoolABI),
			v4StateView: parse("v4 state view", V4StateViewABI),
			erc20:       parse("erc20", ERC20ABI),
		}
	})
	return abis, abisErr
}

// poolKeyArgs is the ABI tuple hashed into a V4 pool id:
// (currency0, currency1, fee, tickSpacing, hooks).
var poolKeyArgs = abi.Arguments{
	{Type: mustType("address")},
	{Type: mustType("address")},
	{Type: mustType("uint24")},
	{Type: mustType("int24")},
	{Type: mustType("address")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// V4PoolID derives the pool id for a V4 pool key with no hooks. Tokens must
// already be in canonical order.
func V4PoolID(token0, token1 common.Address, feeTier, tickSpacing int64) (common.Hash, error) {
	encoded, err := poolKeyArgs.Pack(
		token0,
		token1,
		big.NewInt(feeTier),
		big.NewInt(tickSpacing),
		common.Address{},
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode pool key: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
