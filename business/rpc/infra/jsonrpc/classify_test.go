package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

type fakeRPCError struct {
	code int
	msg  string
}

func (e *fakeRPCError) Error() string  { return e.msg }
func (e *fakeRPCError) ErrorCode() int { return e.code }

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "net failure" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  apperror.Code
		retryable bool
	}{
		{
			name:      "deadline_exceeded",
			err:       context.DeadlineExceeded,
			wantCode:  apperror.CodeTimeout,
			retryable: true,
		},
		{
			name:      "net_timeout",
			err:       &fakeNetError{timeout: true},
			wantCode:  apperror.CodeTimeout,
			retryable: true,
		},
		{
			name:      "http_429",
			err:       rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"},
			wantCode:  apperror.CodeRateLimitExceeded,
			retryable: true,
		},
		{
			name:      "http_503",
			err:       rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"},
			wantCode:  apperror.CodeNetworkError,
			retryable: true,
		},
		{
			name:      "node_error_passthrough",
			err:       &fakeRPCError{code: -32000, msg: "execution reverted"},
			wantCode:  apperror.CodeRPCError,
			retryable: false,
		},
		{
			name:      "plain_transport_failure",
			err:       errors.New("connection refused"),
			wantCode:  apperror.CodeNetworkError,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Code != tt.wantCode {
				t.Fatalf("Classify code = %s; want %s", got.Code, tt.wantCode)
			}
			if got.Retryable != tt.retryable {
				t.Fatalf("Classify retryable = %v; want %v", got.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassify_NilIsNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Fatalf("Classify(nil) = %v", got)
	}
}

func TestClassify_NodeErrorKeepsCodeAndMessage(t *testing.T) {
	got := Classify(&fakeRPCError{code: -32601, msg: "method not found"})
	if got.Message != "method not found" {
		t.Fatalf("message = %q", got.Message)
	}
	if got.Context != fmt.Sprintf("node error code %d", -32601) {
		t.Fatalf("context = %q", got.Context)
	}
}

func TestClassify_AlreadyClassifiedPassesThrough(t *testing.T) {
	orig := apperror.New(apperror.CodeCircuitOpen)
	if got := Classify(orig); got.Code != apperror.CodeCircuitOpen {
		t.Fatalf("re-classified to %s", got.Code)
	}
}
