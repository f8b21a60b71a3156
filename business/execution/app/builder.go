package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/business/execution/infra/codec"
	marketdomain "github.com/dexquote/swap-quoter/business/market/domain"
	quotedomain "github.com/dexquote/swap-quoter/business/quote/domain"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/config"
)

// TxBuilder assembles unsigned swap transactions from finished quotes. The
// descriptor goes to the external signer; nothing here touches keys.
type TxBuilder struct {
	cfg *config.Config
}

// NewTxBuilder creates a transaction builder.
func NewTxBuilder(cfg *config.Config) *TxBuilder {
	return &TxBuilder{cfg: cfg}
}

// BuildSwapTx produces the unsigned transaction executing a quoted route
// for a recipient. V4 routes have no configured router and cannot be built
// here.
func (b *TxBuilder) BuildSwapTx(q *quotedomain.Quote, recipient common.Address, nonce uint64) (UnsignedTx, error) {
	netCfg, ok := b.cfg.Network(q.Network)
	if !ok {
		return UnsignedTx{}, apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(q.Network))
	}
	deadline := big.NewInt(q.Deadline.Unix())

	var (
		router common.Address
		data   []byte
	)
	switch q.Version {
	case marketdomain.VersionV2:
		router = common.HexToAddress(netCfg.V2Router)
		data = codec.V2SwapExactTokensForTokens(
			q.AmountIn,
			q.AmountOutMin,
			[]common.Address{q.TokenIn, q.TokenOut},
			recipient,
			deadline,
		)
	case marketdomain.VersionV3:
		router = common.HexToAddress(netCfg.V3Router)
		data = codec.V3ExactInputSingle(codec.V3ExactInputSingleParams{
			TokenIn:           q.TokenIn,
			TokenOut:          q.TokenOut,
			Fee:               routeFeeTier(q),
			Recipient:         recipient,
			Deadline:          deadline,
			AmountIn:          q.AmountIn,
			AmountOutMinimum:  q.AmountOutMin,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	default:
		return UnsignedTx{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("no router configured for this pool version"))
	}

	return UnsignedTx{
		Nonce:      nonce,
		To:         router,
		Value:      big.NewInt(0),
		GasPrice:   q.GasPriceWei,
		GasLimit:   q.GasEstimate,
		Data:       data,
		NetworkTag: q.Network,
	}, nil
}

func routeFeeTier(q *quotedomain.Quote) int64 {
	if len(q.Route) == 0 {
		return 0
	}
	return q.Route[0].Ref.FeeTier
}
