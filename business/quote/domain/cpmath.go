// Package domain implements the pure pricing math and routing rules for
// the quote context. Nothing in this package performs I/O.
package domain

import (
	"fmt"
	"math/big"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// DefaultCPFeeBps is the constant-product trading fee in basis points.
const DefaultCPFeeBps = 30

var (
	bpsDivisor = big.NewInt(10000)
	one        = big.NewInt(1)
)

func invalidReserves(detail string) error {
	return apperror.New(apperror.CodeInvalidReserves, apperror.WithContext(detail))
}

// CPOut computes the output of a constant-product swap:
// out = reserveOut * amountInWithFee / (reserveIn + amountInWithFee), with
// amountInWithFee = amountIn * (10000 - feeBps) / 10000.
func CPOut(reserveIn, reserveOut, amountIn *big.Int, feeBps int64) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || amountIn == nil {
		return nil, invalidReserves("nil amount")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, invalidReserves("non-positive reserve")
	}
	if amountIn.Sign() <= 0 {
		return nil, invalidReserves("non-positive amount in")
	}
	if feeBps < 0 || feeBps >= 10000 {
		return nil, invalidReserves(fmt.Sprintf("fee %d bps out of range", feeBps))
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(10000-feeBps))
	numerator := new(big.Int).Mul(reserveOut, amountInWithFee)
	denominator := new(big.Int).Mul(reserveIn, bpsDivisor)
	denominator.Add(denominator, amountInWithFee)
	return numerator.Div(numerator, denominator), nil
}

// CPIn computes the input required to receive amountOut from a
// constant-product pool, rounding up so the produced input always suffices.
func CPIn(reserveIn, reserveOut, amountOut *big.Int, feeBps int64) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || amountOut == nil {
		return nil, invalidReserves("nil amount")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, invalidReserves("non-positive reserve")
	}
	if amountOut.Sign() <= 0 {
		return nil, invalidReserves("non-positive amount out")
	}
	if feeBps < 0 || feeBps >= 10000 {
		return nil, invalidReserves(fmt.Sprintf("fee %d bps out of range", feeBps))
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("amount out exceeds pool reserve"))
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, bpsDivisor)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, big.NewInt(10000-feeBps))
	amountIn := new(big.Int).Div(numerator, denominator)
	return amountIn.Add(amountIn, one), nil
}

// PriceImpactBps measures how far the realized execution price fell below
// the pre-trade spot price, in basis points. Never negative.
func PriceImpactBps(reserveIn, reserveOut, amountIn, amountOut *big.Int) (int64, error) {
	if reserveIn == nil || reserveOut == nil || amountIn == nil || amountOut == nil {
		return 0, invalidReserves("nil amount")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountIn.Sign() <= 0 {
		return 0, invalidReserves("non-positive input")
	}
	if amountOut.Sign() < 0 {
		return 0, invalidReserves("negative amount out")
	}

	// impact = 10000 - 10000 * (amountOut/amountIn) / (reserveOut/reserveIn)
	numerator := new(big.Int).Mul(amountOut, reserveIn)
	numerator.Mul(numerator, bpsDivisor)
	denominator := new(big.Int).Mul(amountIn, reserveOut)
	realized := new(big.Int).Div(numerator, denominator)

	impact := new(big.Int).Sub(bpsDivisor, realized)
	if impact.Sign() < 0 {
		return 0, nil
	}
	return impact.Int64(), nil
}
