// Package app contains the RPC gateway service: endpoint selection,
// request coalescing, and opportunistic batching over the JSON-RPC transport.
package app

import (
	"context"
	"encoding/json"

	"github.com/dexquote/swap-quoter/business/rpc/infra/jsonrpc"
)

// Caller is the read-path contract the rest of the application depends on.
// Implementations classify failures exactly once; callers and the retry
// controller rely on that classification without re-deriving it.
type Caller interface {
	// Call performs one JSON-RPC call against the named network and
	// unmarshals the result into result (which may be nil).
	Call(ctx context.Context, network string, result any, method string, params ...any) error
}

// Transport is the per-endpoint wire contract implemented by the jsonrpc
// client. It exists as an interface so gateway behavior is testable without
// a live node.
type Transport interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	Batch(ctx context.Context, elems []jsonrpc.BatchElem) error
	URL() string
	Close()
}
