package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexquote/swap-quoter/business/execution/infra/codec"
	rpcapp "github.com/dexquote/swap-quoter/business/rpc/app"
	"github.com/dexquote/swap-quoter/internal/cache"
	"github.com/dexquote/swap-quoter/internal/logger"
	"github.com/dexquote/swap-quoter/internal/retry"
)

const tracerName = "execution"

// ApprovalService reads ERC-20 allowances through the RPC gateway. Results
// are cached for the approval TTL; actual approval bookkeeping lives with
// the external execution collaborators.
type ApprovalService struct {
	caller rpcapp.Caller
	ttl    time.Duration
	policy retry.Policy
	logger logger.LoggerInterface

	allowances *cache.Cache[string, *big.Int]
	tracer     trace.Tracer
}

// NewApprovalService creates an allowance reader with the given cache TTL.
// Transient read failures retry per the policy.
func NewApprovalService(caller rpcapp.Caller, ttl time.Duration, policy retry.Policy, log logger.LoggerInterface) *ApprovalService {
	return &ApprovalService{
		caller:     caller,
		ttl:        ttl,
		policy:     policy,
		logger:     log,
		allowances: cache.New[string, *big.Int](5 * time.Minute),
		tracer:     otel.Tracer(tracerName),
	}
}

type allowanceCallMsg struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Allowance returns how much of owner's token the spender may move.
func (s *ApprovalService) Allowance(ctx context.Context, network string, token, owner, spender common.Address) (*big.Int, error) {
	ctx, span := s.tracer.Start(ctx, "execution.allowance",
		trace.WithAttributes(
			attribute.String("network", network),
			attribute.String("token", token.Hex()),
		),
	)
	defer span.End()

	key := cache.Key(network, "approval", token.Hex(), owner.Hex(), spender.Hex())
	if amount, found := s.allowances.Get(ctx, key); found {
		span.AddEvent("cache_hit")
		return amount, nil
	}

	out, err := retry.Do(ctx, s.policy, retry.Transient, func(ctx context.Context) (hexutil.Bytes, error) {
		var raw hexutil.Bytes
		callErr := s.caller.Call(ctx, network, &raw, "eth_call",
			allowanceCallMsg{To: token, Data: codec.Allowance(owner, spender)}, "latest")
		return raw, callErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	amount := new(big.Int).SetBytes(out)
	s.allowances.Set(ctx, key, amount, s.ttl)

	span.SetStatus(codes.Ok, "fetched")
	return amount, nil
}

// Close releases the allowance cache.
func (s *ApprovalService) Close() {
	s.allowances.Close()
}
