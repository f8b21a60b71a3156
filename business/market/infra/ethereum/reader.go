package ethereum

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	rpcapp "github.com/dexquote/swap-quoter/business/rpc/app"
	"github.com/dexquote/swap-quoter/internal/retry"
)

// callMsg is the eth_call parameter object; only read calls are issued so
// from, value and gas are omitted.
type callMsg struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Reader issues contract reads through the RPC gateway, retrying transient
// failures per the configured policy.
type Reader struct {
	caller rpcapp.Caller
	policy retry.Policy
}

// NewReader builds a Reader over an RPC caller.
func NewReader(caller rpcapp.Caller, policy retry.Policy) *Reader {
	return &Reader{caller: caller, policy: policy}
}

// CallContract executes a read-only eth_call against the latest block.
func (r *Reader) CallContract(ctx context.Context, network string, to common.Address, data []byte) ([]byte, error) {
	return retry.Do(ctx, r.policy, retry.Transient, func(ctx context.Context) ([]byte, error) {
		var out hexutil.Bytes
		err := r.caller.Call(ctx, network, &out, "eth_call", callMsg{To: to, Data: data}, "latest")
		return out, err
	})
}

// Code fetches the deployed bytecode at an address. A zero-length result
// means no contract lives there.
func (r *Reader) Code(ctx context.Context, network string, addr common.Address) ([]byte, error) {
	return retry.Do(ctx, r.policy, retry.Transient, func(ctx context.Context) ([]byte, error) {
		var out hexutil.Bytes
		err := r.caller.Call(ctx, network, &out, "eth_getCode", addr, "latest")
		return out, err
	})
}

// GasPriceWei fetches the node's suggested gas price.
func (r *Reader) GasPriceWei(ctx context.Context, network string) (*hexutil.Big, error) {
	return retry.Do(ctx, r.policy, retry.Transient, func(ctx context.Context) (*hexutil.Big, error) {
		var out hexutil.Big
		err := r.caller.Call(ctx, network, &out, "eth_gasPrice")
		return &out, err
	})
}
