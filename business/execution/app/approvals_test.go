package app

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/logger"
	"github.com/dexquote/swap-quoter/internal/retry"
)

// flakyCaller fails the first failures calls with a transient error, then
// answers with a fixed allowance word.
type flakyCaller struct {
	failures  int64
	allowance *big.Int
	calls     atomic.Int64
}

func (f *flakyCaller) Call(ctx context.Context, network string, result any, method string, params ...any) error {
	n := f.calls.Add(1)
	if n <= f.failures {
		return apperror.New(apperror.CodeNetworkError)
	}
	word := make([]byte, 32)
	f.allowance.FillBytes(word)
	*(result.(*hexutil.Bytes)) = word
	return nil
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    10 * time.Millisecond,
	}
}

var (
	testToken   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOwner   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testSpender = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestAllowance_TransientFailureRetried(t *testing.T) {
	caller := &flakyCaller{failures: 1, allowance: big.NewInt(500)}
	svc := NewApprovalService(caller, time.Minute, testPolicy(), logger.Nop())
	defer svc.Close()

	amount, err := svc.Allowance(context.Background(), "mainnet", testToken, testOwner, testSpender)
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("allowance = %s; want 500", amount)
	}
	if got := caller.calls.Load(); got != 2 {
		t.Fatalf("calls = %d; want 2 (one transient failure, one success)", got)
	}
}

func TestAllowance_ExhaustedRetriesSurfaceClassified(t *testing.T) {
	caller := &flakyCaller{failures: 100, allowance: big.NewInt(1)}
	svc := NewApprovalService(caller, time.Minute, testPolicy(), logger.Nop())
	defer svc.Close()

	_, err := svc.Allowance(context.Background(), "mainnet", testToken, testOwner, testSpender)
	if apperror.GetCode(err) != apperror.CodeNetworkError {
		t.Fatalf("code = %s; want NETWORK_ERROR", apperror.GetCode(err))
	}
	if got := caller.calls.Load(); got != 3 {
		t.Fatalf("calls = %d; want the policy's 3 attempts", got)
	}
}

func TestAllowance_SecondLookupServedFromCache(t *testing.T) {
	caller := &flakyCaller{allowance: big.NewInt(42)}
	svc := NewApprovalService(caller, time.Minute, testPolicy(), logger.Nop())
	defer svc.Close()

	for i := 0; i < 2; i++ {
		amount, err := svc.Allowance(context.Background(), "mainnet", testToken, testOwner, testSpender)
		if err != nil {
			t.Fatalf("Allowance #%d: %v", i+1, err)
		}
		if amount.Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("allowance = %s; want 42", amount)
		}
	}
	if got := caller.calls.Load(); got != 1 {
		t.Fatalf("calls = %d; want 1", got)
	}
}
