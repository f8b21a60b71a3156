// Package codec assembles ABI calldata for the contract calls the quoter
// and the execution ports hand off.
package codec

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical function signatures. Selectors are the first four bytes of the
// keccak-256 hash of the signature.
const (
	SigBalanceOf = "balanceOf(address)"
	SigAllowance = "allowance(address,address)"
	SigApprove   = "approve(address,uint256)"
	SigName      = "name()"
	SigSymbol    = "symbol()"
	SigDecimals  = "decimals()"
	SigTransfer  = "transfer(address,uint256)"

	SigV2SwapExactTokensForTokens = "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)"
	SigV3ExactInputSingle         = "exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))"
)

// Selector returns the 4-byte function selector for a canonical signature.
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

var (
	selBalanceOf = Selector(SigBalanceOf)
	selAllowance = Selector(SigAllowance)
	selApprove   = Selector(SigApprove)
	selName      = Selector(SigName)
	selSymbol    = Selector(SigSymbol)
	selDecimals  = Selector(SigDecimals)
	selTransfer  = Selector(SigTransfer)

	selV2Swap             = Selector(SigV2SwapExactTokensForTokens)
	selV3ExactInputSingle = Selector(SigV3ExactInputSingle)
)
