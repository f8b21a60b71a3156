package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// Q96 is the UQ64.96 fixed-point representation of 1.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// q192 is Q96 squared, the divisor that turns sqrtPriceX96^2 into a ratio.
var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// pipsDivisor is 100% for concentrated-liquidity fees, which are quoted in
// hundredths of a basis point (3000 = 0.30%).
var pipsDivisor = big.NewInt(1_000_000)

// clPricePrecision is the decimal precision kept when converting fixed-point
// prices; wide enough for any pair of 0..77 decimal tokens.
const clPricePrecision = 40

// CLPrice converts a Q64.96 square-root price into the decimal-adjusted
// price of token0 in token1 and its inverse. decimals0/decimals1 are the
// pair's ERC-20 decimals.
func CLPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (price0to1, price1to0 decimal.Decimal, err error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, invalidReserves("non-positive sqrt price")
	}

	ratio := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	raw := decimal.NewFromBigInt(ratio, 0).DivRound(decimal.NewFromBigInt(q192, 0), clPricePrecision)

	// The raw ratio is in base units; shifting by the decimal difference
	// yields the human-readable price.
	price0to1 = raw.Shift(int32(decimals0) - int32(decimals1))
	if price0to1.IsZero() {
		return decimal.Zero, decimal.Zero, invalidReserves("price underflows at this precision")
	}
	price1to0 = decimal.New(1, 0).DivRound(price0to1, clPricePrecision)
	return price0to1, price1to0, nil
}

// CLOut computes the output of a swap against a concentrated-liquidity pool
// assuming the trade settles within the current tick's liquidity. The fee is
// taken from the input in pips. zeroForOne sells token0 for token1.
func CLOut(liquidity, sqrtPriceX96, amountIn *big.Int, feePips int64, zeroForOne bool) (*big.Int, error) {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("no in-range liquidity"))
	}
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, invalidReserves("non-positive sqrt price")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, invalidReserves("non-positive amount in")
	}
	if feePips < 0 || feePips >= 1_000_000 {
		return nil, invalidReserves(fmt.Sprintf("fee %d pips out of range", feePips))
	}

	amountLessFee := new(big.Int).Mul(amountIn, big.NewInt(1_000_000-feePips))
	amountLessFee.Div(amountLessFee, pipsDivisor)
	if amountLessFee.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	if zeroForOne {
		// next = ceil(L<<96 * sqrtP / (L<<96 + amountIn * sqrtP)), then
		// amountOut = L * (sqrtP - next) / Q96, rounded down.
		liquidityX96 := new(big.Int).Lsh(liquidity, 96)
		denominator := new(big.Int).Mul(amountLessFee, sqrtPriceX96)
		denominator.Add(denominator, liquidityX96)
		next := mulDivRoundingUp(liquidityX96, sqrtPriceX96, denominator)

		delta := new(big.Int).Sub(sqrtPriceX96, next)
		out := new(big.Int).Mul(liquidity, delta)
		return out.Div(out, Q96), nil
	}

	// next = sqrtP + amountIn<<96 / L, then
	// amountOut = L<<96 * (next - sqrtP) / next / sqrtP, rounded down.
	step := new(big.Int).Lsh(amountLessFee, 96)
	step.Div(step, liquidity)
	next := new(big.Int).Add(sqrtPriceX96, step)

	liquidityX96 := new(big.Int).Lsh(liquidity, 96)
	delta := new(big.Int).Sub(next, sqrtPriceX96)
	out := new(big.Int).Mul(liquidityX96, delta)
	out.Div(out, next)
	return out.Div(out, sqrtPriceX96), nil
}

// CLPriceImpactBps measures execution slippage against the pre-trade spot
// price implied by sqrtPriceX96, in basis points. Never negative.
func CLPriceImpactBps(sqrtPriceX96, amountIn, amountOut *big.Int, zeroForOne bool) (int64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, invalidReserves("non-positive sqrt price")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return 0, invalidReserves("non-positive amount in")
	}
	if amountOut == nil || amountOut.Sign() < 0 {
		return 0, invalidReserves("negative amount out")
	}

	ratio := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)

	// realized = 10000 * amountOut / (amountIn * spot), with spot read in the
	// direction of the trade.
	var realized *big.Int
	if zeroForOne {
		// spot price of token0 in token1 = ratio / 2^192
		numerator := new(big.Int).Mul(amountOut, q192)
		numerator.Mul(numerator, bpsDivisor)
		denominator := new(big.Int).Mul(amountIn, ratio)
		realized = numerator.Div(numerator, denominator)
	} else {
		// spot price of token1 in token0 = 2^192 / ratio
		numerator := new(big.Int).Mul(amountOut, ratio)
		numerator.Mul(numerator, bpsDivisor)
		denominator := new(big.Int).Mul(amountIn, q192)
		realized = numerator.Div(numerator, denominator)
	}

	impact := new(big.Int).Sub(bpsDivisor, realized)
	if impact.Sign() < 0 {
		return 0, nil
	}
	return impact.Int64(), nil
}

func mulDivRoundingUp(a, b, c *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	quotient, rem := new(big.Int).DivMod(product, c, new(big.Int))
	if rem.Sign() > 0 {
		quotient.Add(quotient, one)
	}
	return quotient
}
