package domain

import (
	"math/big"

	marketdomain "github.com/dexquote/swap-quoter/business/market/domain"
	"github.com/dexquote/swap-quoter/internal/apperror"
)

// RouteCandidate is one priced pool evaluated for a swap. Produced and
// consumed within a single selection pass.
type RouteCandidate struct {
	Ref             marketdomain.PoolRef
	AmountOut       *big.Int
	PriceImpactBps  int64
	GasEstimate     uint64
	FeeTierBonusBps int64
}

// Constraints filter candidates before ranking. Zero values disable a
// constraint.
type Constraints struct {
	MaxPriceImpactBps int64
	MaxGasEstimate    uint64
}

// nearTieBps is the margin within which two adjusted outputs count as a tie
// and gas cost decides instead.
const nearTieBps = 1

// SelectBest picks the winning candidate: highest fee-tier-adjusted output,
// near-ties broken by lowest gas estimate, then by pool identity so the
// same candidate set always yields the same winner.
func SelectBest(candidates []RouteCandidate, constraints Constraints) (RouteCandidate, error) {
	var viable []RouteCandidate
	for _, c := range candidates {
		if c.AmountOut == nil || c.AmountOut.Sign() <= 0 {
			continue
		}
		if constraints.MaxPriceImpactBps > 0 && c.PriceImpactBps > constraints.MaxPriceImpactBps {
			continue
		}
		if constraints.MaxGasEstimate > 0 && c.GasEstimate > constraints.MaxGasEstimate {
			continue
		}
		viable = append(viable, c)
	}
	if len(viable) == 0 {
		return RouteCandidate{}, apperror.New(apperror.CodeNoViableRoute,
			apperror.WithContext("no candidate survived constraint filtering"))
	}

	adjusted := make([]*big.Int, len(viable))
	best := new(big.Int)
	for i, c := range viable {
		adjusted[i] = adjustedOut(c)
		if adjusted[i].Cmp(best) > 0 {
			best.Set(adjusted[i])
		}
	}

	// Finalists sit within the near-tie margin of the best adjusted output;
	// among them the cheapest execution wins.
	threshold := new(big.Int).Mul(best, big.NewInt(10000-nearTieBps))
	threshold.Div(threshold, bpsDivisor)

	winner := -1
	for i := range viable {
		if adjusted[i].Cmp(threshold) < 0 {
			continue
		}
		if winner < 0 {
			winner = i
			continue
		}
		if viable[i].GasEstimate != viable[winner].GasEstimate {
			if viable[i].GasEstimate < viable[winner].GasEstimate {
				winner = i
			}
			continue
		}
		if viable[i].Ref.Identity() < viable[winner].Ref.Identity() {
			winner = i
		}
	}

	return viable[winner], nil
}

// adjustedOut applies the flat preferred-tier bonus to a candidate's output
// for ranking purposes only; the quoted amount stays unadjusted.
func adjustedOut(c RouteCandidate) *big.Int {
	out := new(big.Int).Mul(c.AmountOut, big.NewInt(10000+c.FeeTierBonusBps))
	return out.Div(out, bpsDivisor)
}
