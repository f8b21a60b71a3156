package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

func TestCLPrice_UnitPrice(t *testing.T) {
	price0to1, price1to0, err := CLPrice(new(big.Int).Set(Q96), 18, 18)
	if err != nil {
		t.Fatalf("CLPrice: %v", err)
	}
	if !price0to1.Equal(decimal.New(1, 0)) {
		t.Fatalf("price0to1 = %s; want 1", price0to1)
	}
	if !price1to0.Equal(decimal.New(1, 0)) {
		t.Fatalf("price1to0 = %s; want 1", price1to0)
	}
}

func TestCLPrice_SquaresTheSqrtPrice(t *testing.T) {
	sqrtP := new(big.Int).Mul(Q96, big.NewInt(2))
	price0to1, price1to0, err := CLPrice(sqrtP, 18, 18)
	if err != nil {
		t.Fatalf("CLPrice: %v", err)
	}
	if !price0to1.Equal(decimal.New(4, 0)) {
		t.Fatalf("price0to1 = %s; want 4", price0to1)
	}
	if !price1to0.Equal(decimal.New(25, -2)) {
		t.Fatalf("price1to0 = %s; want 0.25", price1to0)
	}
}

func TestCLPrice_DecimalAdjustment(t *testing.T) {
	// A raw ratio of 1 between a 6-decimal token0 and an 18-decimal token1
	// means token0 is worth 10^-12 of token1 in human units.
	price0to1, _, err := CLPrice(new(big.Int).Set(Q96), 6, 18)
	if err != nil {
		t.Fatalf("CLPrice: %v", err)
	}
	if !price0to1.Equal(decimal.New(1, -12)) {
		t.Fatalf("price0to1 = %s; want 1e-12", price0to1)
	}
}

func TestCLPrice_RejectsZeroPrice(t *testing.T) {
	_, _, err := CLPrice(big.NewInt(0), 18, 18)
	if apperror.GetCode(err) != apperror.CodeInvalidReserves {
		t.Fatalf("code = %s; want INVALID_RESERVES", apperror.GetCode(err))
	}
}

func TestCLOut_SmallSwapNearSpot(t *testing.T) {
	liquidity := bigFromString(t, "1000000000000000000") // 1e18
	amountIn := bigFromString(t, "1000000000000000")     // 1e15, 0.1% of liquidity

	for _, zeroForOne := range []bool{true, false} {
		out, err := CLOut(liquidity, new(big.Int).Set(Q96), amountIn, 0, zeroForOne)
		if err != nil {
			t.Fatalf("CLOut(zeroForOne=%v): %v", zeroForOne, err)
		}
		// At unit price the output tracks the input minus impact.
		if out.Cmp(amountIn) >= 0 {
			t.Fatalf("out = %s; want below amount in at unit price", out)
		}
		floor := bigFromString(t, "998000000000000")
		if out.Cmp(floor) < 0 {
			t.Fatalf("out = %s; impact too large for a 0.1%% trade", out)
		}
	}
}

func TestCLOut_FeeReducesOutput(t *testing.T) {
	liquidity := bigFromString(t, "1000000000000000000")
	amountIn := bigFromString(t, "1000000000000000")

	noFee, err := CLOut(liquidity, new(big.Int).Set(Q96), amountIn, 0, true)
	if err != nil {
		t.Fatalf("CLOut without fee: %v", err)
	}
	withFee, err := CLOut(liquidity, new(big.Int).Set(Q96), amountIn, 3000, true)
	if err != nil {
		t.Fatalf("CLOut with fee: %v", err)
	}
	if withFee.Cmp(noFee) >= 0 {
		t.Fatalf("fee-bearing output %s is not below no-fee output %s", withFee, noFee)
	}
	// A 0.30% fee should cost roughly 0.30% of the output.
	expected := new(big.Int).Mul(noFee, big.NewInt(9965))
	expected.Div(expected, big.NewInt(10000))
	if withFee.Cmp(expected) < 0 {
		t.Fatalf("fee-bearing output %s lost more than the fee", withFee)
	}
}

func TestCLOut_NoLiquidity(t *testing.T) {
	_, err := CLOut(big.NewInt(0), new(big.Int).Set(Q96), big.NewInt(1000), 3000, true)
	if apperror.GetCode(err) != apperror.CodeInsufficientLiquidity {
		t.Fatalf("code = %s; want INSUFFICIENT_LIQUIDITY", apperror.GetCode(err))
	}
}

func TestCLOut_Validation(t *testing.T) {
	liquidity := big.NewInt(1000)
	tests := []struct {
		name     string
		sqrtP    *big.Int
		amountIn *big.Int
		feePips  int64
	}{
		{"zero sqrt price", big.NewInt(0), big.NewInt(10), 0},
		{"zero amount", new(big.Int).Set(Q96), big.NewInt(0), 0},
		{"fee out of range", new(big.Int).Set(Q96), big.NewInt(10), 1_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CLOut(liquidity, tt.sqrtP, tt.amountIn, tt.feePips, true)
			if apperror.GetCode(err) != apperror.CodeInvalidReserves {
				t.Fatalf("code = %s; want INVALID_RESERVES", apperror.GetCode(err))
			}
		})
	}
}

func TestCLPriceImpactBps_GrowsWithTradeSize(t *testing.T) {
	liquidity := bigFromString(t, "1000000000000000000000") // 1e21
	sqrtP := new(big.Int).Set(Q96)

	var last int64 = -1
	for _, a := range []string{"1000000000000000000", "10000000000000000000", "100000000000000000000"} {
		amountIn := bigFromString(t, a)
		out, err := CLOut(liquidity, sqrtP, amountIn, 0, true)
		if err != nil {
			t.Fatalf("CLOut(%s): %v", a, err)
		}
		impact, err := CLPriceImpactBps(sqrtP, amountIn, out, true)
		if err != nil {
			t.Fatalf("CLPriceImpactBps(%s): %v", a, err)
		}
		if impact < last {
			t.Fatalf("impact decreased from %d to %d as trade size grew", last, impact)
		}
		last = impact
	}
}
