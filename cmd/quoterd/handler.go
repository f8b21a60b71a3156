package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel/attribute"

	executionapp "github.com/dexquote/swap-quoter/business/execution/app"
	quoteapp "github.com/dexquote/swap-quoter/business/quote/app"
	"github.com/dexquote/swap-quoter/business/quote/domain"
	"github.com/dexquote/swap-quoter/internal/apm"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/logger"
)

// api wires the quote and execution services to HTTP.
type api struct {
	quoter    *quoteapp.Quoter
	approvals *executionapp.ApprovalService
	builder   *executionapp.TxBuilder
	tracer    apm.Tracer
	log       logger.LoggerInterface
}

func newAPI(quoter *quoteapp.Quoter, approvals *executionapp.ApprovalService, builder *executionapp.TxBuilder, log logger.LoggerInterface) *api {
	return &api{
		quoter:    quoter,
		approvals: approvals,
		builder:   builder,
		tracer:    apm.NewTracer("http"),
		log:       log,
	}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/quote", a.handleQuote)
	mux.HandleFunc("POST /v1/swap-tx", a.handleSwapTx)
	mux.HandleFunc("GET /v1/allowance", a.handleAllowance)
	return mux
}

type quoteRequest struct {
	Network           string `json:"network"`
	TokenIn           string `json:"tokenIn"`
	TokenOut          string `json:"tokenOut"`
	AmountIn          string `json:"amountIn"`
	SlippageBps       int64  `json:"slippageBps"`
	DeadlineUnix      int64  `json:"deadlineUnix,omitempty"`
	MaxPriceImpactBps int64  `json:"maxPriceImpactBps,omitempty"`
	MaxGasEstimate    uint64 `json:"maxGasEstimate,omitempty"`
	Recipient         string `json:"recipient,omitempty"`
}

type routeHopResponse struct {
	Pool    string `json:"pool"`
	Version string `json:"version"`
	FeeTier int64  `json:"feeTier"`
}

type quoteResponse struct {
	Network        string             `json:"network"`
	TokenIn        string             `json:"tokenIn"`
	TokenOut       string             `json:"tokenOut"`
	AmountIn       string             `json:"amountIn"`
	AmountOut      string             `json:"amountOut"`
	AmountOutMin   string             `json:"amountOutMin"`
	PriceImpactBps int64              `json:"priceImpactBps"`
	Route          []routeHopResponse `json:"route"`
	Version        string             `json:"version"`
	GasEstimate    uint64             `json:"gasEstimate"`
	GasPriceWei    string             `json:"gasPriceWei"`
	DeadlineUnix   int64              `json:"deadlineUnix"`
	CreatedAt      string             `json:"createdAt"`
}

type swapTxRequest struct {
	quoteRequest
	Nonce uint64 `json:"nonce"`
}

type swapTxResponse struct {
	Quote    quoteResponse `json:"quote"`
	To       string        `json:"to"`
	Value    string        `json:"value"`
	GasLimit uint64        `json:"gasLimit"`
	GasPrice string        `json:"gasPrice"`
	Nonce    uint64        `json:"nonce"`
	Data     string        `json:"data"`
	Network  string        `json:"network"`
}

func (r quoteRequest) toAppRequest() (quoteapp.Request, error) {
	req := quoteapp.Request{
		Network:           r.Network,
		TokenIn:           r.TokenIn,
		TokenOut:          r.TokenOut,
		SlippageBps:       r.SlippageBps,
		MaxPriceImpactBps: r.MaxPriceImpactBps,
		MaxGasEstimate:    r.MaxGasEstimate,
		Recipient:         r.Recipient,
	}

	amount, ok := new(big.Int).SetString(r.AmountIn, 10)
	if !ok {
		return quoteapp.Request{}, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amountIn must be a base-10 integer string"))
	}
	req.AmountIn = amount

	if r.DeadlineUnix != 0 {
		deadline := time.Unix(r.DeadlineUnix, 0)
		req.Deadline = &deadline
	}
	return req, nil
}

func toQuoteResponse(q *domain.Quote) quoteResponse {
	hops := make([]routeHopResponse, 0, len(q.Route))
	for _, hop := range q.Route {
		hops = append(hops, routeHopResponse{
			Pool:    hop.Ref.Identity(),
			Version: string(hop.Ref.Version),
			FeeTier: hop.Ref.FeeTier,
		})
	}

	gasPrice := "0"
	if q.GasPriceWei != nil {
		gasPrice = q.GasPriceWei.String()
	}

	return quoteResponse{
		Network:        q.Network,
		TokenIn:        q.TokenIn.Hex(),
		TokenOut:       q.TokenOut.Hex(),
		AmountIn:       q.AmountIn.String(),
		AmountOut:      q.AmountOut.String(),
		AmountOutMin:   q.AmountOutMin.String(),
		PriceImpactBps: q.PriceImpactBps,
		Route:          hops,
		Version:        string(q.Version),
		GasEstimate:    q.GasEstimate,
		GasPriceWei:    gasPrice,
		DeadlineUnix:   q.Deadline.Unix(),
		CreatedAt:      q.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.StartSpanFromContext(r.Context(), "http.quote")
	defer span.End()

	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, r, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err)))
		return
	}
	span.SetAttributes(
		attribute.String("network", body.Network),
		attribute.String("token_in", body.TokenIn),
		attribute.String("token_out", body.TokenOut),
	)

	req, err := body.toAppRequest()
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	quote, err := a.quoter.Quote(ctx, req)
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

func (a *api) handleSwapTx(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.StartSpanFromContext(r.Context(), "http.swap_tx")
	defer span.End()

	var body swapTxRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, r, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err)))
		return
	}
	if !common.IsHexAddress(body.Recipient) {
		a.writeError(w, r, apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext("recipient is required for transaction building")))
		return
	}

	req, err := body.toAppRequest()
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	quote, err := a.quoter.Quote(ctx, req)
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	tx, err := a.builder.BuildSwapTx(quote, common.HexToAddress(body.Recipient), body.Nonce)
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	gasPrice := "0"
	if tx.GasPrice != nil {
		gasPrice = tx.GasPrice.String()
	}
	a.writeJSON(w, http.StatusOK, swapTxResponse{
		Quote:    toQuoteResponse(quote),
		To:       tx.To.Hex(),
		Value:    tx.Value.String(),
		GasLimit: tx.GasLimit,
		GasPrice: gasPrice,
		Nonce:    tx.Nonce,
		Data:     hexutil.Encode(tx.Data),
		Network:  tx.NetworkTag,
	})
}

func (a *api) handleAllowance(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.StartSpanFromContext(r.Context(), "http.allowance")
	defer span.End()

	q := r.URL.Query()
	network := q.Get("network")
	for _, param := range []string{q.Get("token"), q.Get("owner"), q.Get("spender")} {
		if !common.IsHexAddress(param) {
			a.writeError(w, r, apperror.New(apperror.CodeInvalidAddress,
				apperror.WithContext("token, owner and spender must be hex addresses")))
			return
		}
	}

	allowance, err := a.approvals.Allowance(ctx, network,
		common.HexToAddress(q.Get("token")),
		common.HexToAddress(q.Get("owner")),
		common.HexToAddress(q.Get("spender")),
	)
	if err != nil {
		span.NoticeError(err)
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]string{"allowance": allowance.String()})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		a.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}
