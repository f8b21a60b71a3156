package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const wordSize = 32

// word encodes a big integer as a 32-byte big-endian word.
func word(v *big.Int) []byte {
	out := make([]byte, wordSize)
	if v != nil {
		v.FillBytes(out)
	}
	return out
}

// addressWord encodes an address right-aligned in a 32-byte word.
func addressWord(a common.Address) []byte {
	out := make([]byte, wordSize)
	copy(out[wordSize-common.AddressLength:], a.Bytes())
	return out
}

func withSelector(sel [4]byte, words ...[]byte) []byte {
	out := make([]byte, 0, 4+len(words)*wordSize)
	out = append(out, sel[:]...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// BalanceOf builds balanceOf(owner) calldata.
func BalanceOf(owner common.Address) []byte {
	return withSelector(selBalanceOf, addressWord(owner))
}

// Allowance builds allowance(owner, spender) calldata.
func Allowance(owner, spender common.Address) []byte {
	return withSelector(selAllowance, addressWord(owner), addressWord(spender))
}

// Approve builds approve(spender, amount) calldata.
func Approve(spender common.Address, amount *big.Int) []byte {
	return withSelector(selApprove, addressWord(spender), word(amount))
}

// Transfer builds transfer(to, amount) calldata.
func Transfer(to common.Address, amount *big.Int) []byte {
	return withSelector(selTransfer, addressWord(to), word(amount))
}

// Name builds name() calldata.
func Name() []byte { return withSelector(selName) }

// Symbol builds symbol() calldata.
func Symbol() []byte { return withSelector(selSymbol) }

// Decimals builds decimals() calldata.
func Decimals() []byte { return withSelector(selDecimals) }

// V2SwapExactTokensForTokens builds router calldata for a constant-product
// swap along a token path. The path is a dynamic array, so its words follow
// the five-word head at offset 0xa0.
func V2SwapExactTokensForTokens(amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) []byte {
	words := [][]byte{
		word(amountIn),
		word(amountOutMin),
		word(big.NewInt(5 * wordSize)),
		addressWord(to),
		word(deadline),
		word(big.NewInt(int64(len(path)))),
	}
	for _, hop := range path {
		words = append(words, addressWord(hop))
	}
	return withSelector(selV2Swap, words...)
}

// V3ExactInputSingleParams are the static tuple fields of an
// exactInputSingle router call, in ABI order.
type V3ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               int64
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// V3ExactInputSingle builds router calldata for a single-pool
// concentrated-liquidity swap. The tuple has no dynamic fields and encodes
// inline.
func V3ExactInputSingle(p V3ExactInputSingleParams) []byte {
	return withSelector(selV3ExactInputSingle,
		addressWord(p.TokenIn),
		addressWord(p.TokenOut),
		word(big.NewInt(p.Fee)),
		addressWord(p.Recipient),
		word(p.Deadline),
		word(p.AmountIn),
		word(p.AmountOutMinimum),
		word(p.SqrtPriceLimitX96),
	)
}
