package domain

import (
	"math/big"
	"testing"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big.Int literal %q", s)
	}
	return v
}

func TestCPOut_SixDecimalPairScenario(t *testing.T) {
	reserveIn := bigFromString(t, "1000000000000000000000")  // 1000 tokens, 18 decimals
	reserveOut := bigFromString(t, "2000000000000")          // 2,000,000 tokens, 6 decimals
	amountIn := bigFromString(t, "1000000000000000000")      // 1 token

	out, err := CPOut(reserveIn, reserveOut, amountIn, DefaultCPFeeBps)
	if err != nil {
		t.Fatalf("CPOut: %v", err)
	}

	// Spot is 2000 out-tokens per in-token; one unit against a thousand-unit
	// reserve loses ~0.1% to impact and 0.3% to the fee.
	low := bigFromString(t, "1990000000")
	high := bigFromString(t, "1994000000")
	if out.Cmp(low) <= 0 || out.Cmp(high) >= 0 {
		t.Fatalf("out = %s; want strictly between %s and %s", out, low, high)
	}
}

func TestCPOut_StrictlyBelowNoFeeOutput(t *testing.T) {
	tests := []struct {
		name       string
		reserveIn  string
		reserveOut string
		amountIn   string
	}{
		{"balanced pool", "1000000000000000000000", "1000000000000000000000", "5000000000000000000"},
		{"skewed pool", "1000000000000000000000", "2000000000000", "1000000000000000000"},
		{"tiny trade", "500000000000000000000", "700000000000000000000", "1000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reserveIn := bigFromString(t, tt.reserveIn)
			reserveOut := bigFromString(t, tt.reserveOut)
			amountIn := bigFromString(t, tt.amountIn)

			withFee, err := CPOut(reserveIn, reserveOut, amountIn, DefaultCPFeeBps)
			if err != nil {
				t.Fatalf("CPOut with fee: %v", err)
			}
			noFee, err := CPOut(reserveIn, reserveOut, amountIn, 0)
			if err != nil {
				t.Fatalf("CPOut without fee: %v", err)
			}
			if withFee.Cmp(noFee) >= 0 {
				t.Fatalf("fee-bearing output %s is not below no-fee output %s", withFee, noFee)
			}
		})
	}
}

func TestCPOut_RoundTripNeverUndercharges(t *testing.T) {
	reserveIn := bigFromString(t, "1000000000000000000000")
	reserveOut := bigFromString(t, "2000000000000")
	amounts := []string{"1000000000000000000", "37000000000000000000", "250000000000000000000"}

	for _, a := range amounts {
		amountIn := bigFromString(t, a)
		out, err := CPOut(reserveIn, reserveOut, amountIn, DefaultCPFeeBps)
		if err != nil {
			t.Fatalf("CPOut(%s): %v", a, err)
		}
		back, err := CPIn(reserveIn, reserveOut, out, DefaultCPFeeBps)
		if err != nil {
			t.Fatalf("CPIn(%s): %v", out, err)
		}
		if back.Cmp(amountIn) > 0 {
			// Rounding must favor the pool by at most the rounding margin.
			diff := new(big.Int).Sub(back, amountIn)
			limit := new(big.Int).Div(amountIn, big.NewInt(1000))
			if diff.Cmp(limit) > 0 {
				t.Fatalf("CPIn(CPOut(%s)) = %s; drifted by %s", amountIn, back, diff)
			}
		}
	}
}

func TestCPOut_Validation(t *testing.T) {
	valid := big.NewInt(1000)
	tests := []struct {
		name                          string
		reserveIn, reserveOut, amount *big.Int
		feeBps                        int64
	}{
		{"zero reserve in", big.NewInt(0), valid, valid, 30},
		{"negative reserve out", valid, big.NewInt(-1), valid, 30},
		{"zero amount", valid, valid, big.NewInt(0), 30},
		{"nil amount", valid, valid, nil, 30},
		{"fee too high", valid, valid, valid, 10000},
		{"negative fee", valid, valid, valid, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CPOut(tt.reserveIn, tt.reserveOut, tt.amount, tt.feeBps)
			if apperror.GetCode(err) != apperror.CodeInvalidReserves {
				t.Fatalf("code = %s; want INVALID_RESERVES", apperror.GetCode(err))
			}
		})
	}
}

func TestCPIn_InsufficientLiquidity(t *testing.T) {
	reserveIn := big.NewInt(1000)
	reserveOut := big.NewInt(2000)

	_, err := CPIn(reserveIn, reserveOut, big.NewInt(2000), DefaultCPFeeBps)
	if apperror.GetCode(err) != apperror.CodeInsufficientLiquidity {
		t.Fatalf("code = %s; want INSUFFICIENT_LIQUIDITY", apperror.GetCode(err))
	}
	_, err = CPIn(reserveIn, reserveOut, big.NewInt(3000), DefaultCPFeeBps)
	if apperror.GetCode(err) != apperror.CodeInsufficientLiquidity {
		t.Fatalf("code = %s; want INSUFFICIENT_LIQUIDITY", apperror.GetCode(err))
	}
}

func TestPriceImpactBps_MonotoneInTradeSize(t *testing.T) {
	reserveIn := bigFromString(t, "1000000000000000000000")
	reserveOut := bigFromString(t, "2000000000000")

	var last int64 = -1
	for _, a := range []string{"1000000000000000000", "10000000000000000000", "100000000000000000000", "500000000000000000000"} {
		amountIn := bigFromString(t, a)
		out, err := CPOut(reserveIn, reserveOut, amountIn, DefaultCPFeeBps)
		if err != nil {
			t.Fatalf("CPOut(%s): %v", a, err)
		}
		impact, err := PriceImpactBps(reserveIn, reserveOut, amountIn, out)
		if err != nil {
			t.Fatalf("PriceImpactBps(%s): %v", a, err)
		}
		if impact < 0 {
			t.Fatalf("impact = %d; want non-negative", impact)
		}
		if impact < last {
			t.Fatalf("impact decreased from %d to %d as trade size grew", last, impact)
		}
		last = impact
	}
}
