package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// Classify maps a raw transport failure to its structured classification.
// It is called exactly once per failure, here at the transport boundary;
// upstream layers must pass the result through unchanged.
func Classify(err error) *apperror.AppError {
	if err == nil {
		return nil
	}

	// Already classified (e.g. circuit breaker open).
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.New(apperror.CodeTimeout, apperror.WithCause(err))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.New(apperror.CodeTimeout, apperror.WithCause(err))
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
		}
		return apperror.New(apperror.CodeNetworkError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("http status %d", httpErr.StatusCode)))
	}

	// A JSON-RPC error object returned by the node passes through with its
	// code and message preserved.
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithMessage(rpcErr.Error()),
			apperror.WithContext(fmt.Sprintf("node error code %d", rpcErr.ErrorCode())))
	}

	return apperror.New(apperror.CodeNetworkError, apperror.WithCause(err))
}
