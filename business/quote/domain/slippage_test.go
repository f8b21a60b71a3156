package domain

import (
	"math/big"
	"testing"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

func TestApplySlippage_KnownValue(t *testing.T) {
	amount := bigFromString(t, "1000000000000000000")
	got, err := ApplySlippage(amount, 50, SlippageMin)
	if err != nil {
		t.Fatalf("ApplySlippage: %v", err)
	}
	if got.String() != "995000000000000000" {
		t.Fatalf("min bound = %s; want 995000000000000000", got)
	}
}

func TestApplySlippage_Bounds(t *testing.T) {
	amounts := []string{"1", "1000", "1000000000000000000", "340282366920938463463374607431768211455"}
	slippages := []int64{0, 1, 50, 500, 5000}

	for _, a := range amounts {
		amount := bigFromString(t, a)
		for _, bps := range slippages {
			minOut, err := ApplySlippage(amount, bps, SlippageMin)
			if err != nil {
				t.Fatalf("min(%s, %d): %v", a, bps, err)
			}
			maxOut, err := ApplySlippage(amount, bps, SlippageMax)
			if err != nil {
				t.Fatalf("max(%s, %d): %v", a, bps, err)
			}
			if minOut.Cmp(amount) > 0 {
				t.Fatalf("min bound %s exceeds amount %s at %d bps", minOut, amount, bps)
			}
			if maxOut.Cmp(amount) < 0 {
				t.Fatalf("max bound %s is below amount %s at %d bps", maxOut, amount, bps)
			}
		}
	}
}

func TestApplySlippage_RejectsOutOfRange(t *testing.T) {
	amount := big.NewInt(1000)
	for _, bps := range []int64{-1, 5001, 10000} {
		_, err := ApplySlippage(amount, bps, SlippageMin)
		if apperror.GetCode(err) != apperror.CodeInvalidSlippage {
			t.Fatalf("slippage %d: code = %s; want INVALID_SLIPPAGE", bps, apperror.GetCode(err))
		}
	}
}

func TestApplySlippage_RejectsNegativeAmount(t *testing.T) {
	_, err := ApplySlippage(big.NewInt(-1), 50, SlippageMin)
	if apperror.GetCode(err) != apperror.CodeInvalidAmount {
		t.Fatalf("code = %s; want INVALID_AMOUNT", apperror.GetCode(err))
	}
	_, err = ApplySlippage(nil, 50, SlippageMin)
	if apperror.GetCode(err) != apperror.CodeInvalidAmount {
		t.Fatalf("code = %s; want INVALID_AMOUNT", apperror.GetCode(err))
	}
}
