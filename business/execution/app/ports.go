// Package app contains the execution context's ports and services. The
// quote path never invokes the signing or broadcast collaborators; they are
// boundary interfaces handed fully-assembled descriptors.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UnsignedTx is the transaction descriptor handed to the external signer.
// Key material never enters this process.
type UnsignedTx struct {
	Nonce      uint64
	To         common.Address
	Value      *big.Int
	GasPrice   *big.Int
	GasLimit   uint64
	Data       []byte
	NetworkTag string
}

// Signer is the external signing service. The credential is caller-supplied
// and opaque.
type Signer interface {
	Sign(ctx context.Context, tx UnsignedTx, credential string) (signed []byte, err error)
}

// Broadcaster submits a signed transaction blob and reports the hash. It
// does not poll for confirmation.
type Broadcaster interface {
	Broadcast(ctx context.Context, network string, signed []byte) (common.Hash, error)
}
