package domain

import (
	"fmt"
	"math/big"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// SlippageDirection selects which bound ApplySlippage computes.
type SlippageDirection int

const (
	// SlippageMin shrinks the amount to its acceptable lower bound.
	SlippageMin SlippageDirection = iota
	// SlippageMax grows the amount to its acceptable upper bound.
	SlippageMax
)

// MaxSlippageBps caps caller-supplied slippage at 50%.
const MaxSlippageBps = 5000

// ApplySlippage bounds an amount by a slippage tolerance in basis points.
func ApplySlippage(amount *big.Int, slippageBps int64, direction SlippageDirection) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amount must be non-negative"))
	}
	if slippageBps < 0 || slippageBps > MaxSlippageBps {
		return nil, apperror.New(apperror.CodeInvalidSlippage,
			apperror.WithContext(fmt.Sprintf("slippage %d bps outside [0, %d]", slippageBps, MaxSlippageBps)))
	}

	factor := big.NewInt(10000 - slippageBps)
	if direction == SlippageMax {
		factor = big.NewInt(10000 + slippageBps)
	}

	out := new(big.Int).Mul(amount, factor)
	return out.Div(out, bpsDivisor), nil
}
