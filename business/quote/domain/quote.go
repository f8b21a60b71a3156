package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	marketdomain "github.com/dexquote/swap-quoter/business/market/domain"
)

// RouteHop is one pool traversed by a quoted route, in execution order.
type RouteHop struct {
	Ref      marketdomain.PoolRef
	HopIndex int
}

// Quote is the fully-populated result of a quote request. Created per call,
// never mutated after return.
type Quote struct {
	Network        string
	TokenIn        common.Address
	TokenOut       common.Address
	AmountIn       *big.Int
	AmountOut      *big.Int
	AmountOutMin   *big.Int
	PriceImpactBps int64
	Route          []RouteHop
	Version        marketdomain.Version
	GasEstimate    uint64
	GasPriceWei    *big.Int
	Deadline       time.Time
	CreatedAt      time.Time
}
