// Package jsonrpc implements the JSON-RPC 2.0 transport for one endpoint,
// including batched calls, with failures classified at this boundary.
package jsonrpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dexquote/swap-quoter/internal/circuitbreaker"
	"github.com/dexquote/swap-quoter/internal/ratelimit"
)

// BatchElem is one request inside a batched call. Result and Err are filled
// by Batch; Err carries the per-element classification.
type BatchElem struct {
	Method string
	Params []any
	Result json.RawMessage
	Err    error
}

// Client is the transport for a single endpoint. The connection is dialed
// lazily and kept for the process lifetime.
type Client struct {
	url string

	mu   sync.Mutex
	conn *rpc.Client

	cb      *circuitbreaker.CircuitBreaker[json.RawMessage]
	limiter *ratelimit.Limiter
}

// NewClient creates a transport for url guarded by a circuit breaker and a
// rate limiter.
func NewClient(url string, requestsPerSecond float64, burst int) *Client {
	return &Client{
		url:     url,
		cb:      circuitbreaker.New[json.RawMessage](circuitbreaker.DefaultConfig(url)),
		limiter: ratelimit.New(requestsPerSecond, burst),
	}
}

// URL returns the endpoint URL.
func (c *Client) URL() string {
	return c.url
}

func (c *Client) dial(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := rpc.DialContext(ctx, c.url)
	if err != nil {
		return nil, Classify(err)
	}
	c.conn = conn
	return conn, nil
}

// Call performs one JSON-RPC call and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Classify(err)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.cb.Execute(func() (json.RawMessage, error) {
		var result json.RawMessage
		if callErr := conn.CallContext(ctx, &result, method, params...); callErr != nil {
			return nil, callErr
		}
		return result, nil
	})
	if err != nil {
		return nil, Classify(err)
	}
	return raw, nil
}

// Batch performs one batched JSON-RPC call. The transport-level error, if
// any, is returned classified; per-element node errors are classified into
// each element's Err.
func (c *Client) Batch(ctx context.Context, elems []BatchElem) error {
	if len(elems) == 0 {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Classify(err)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	batch := make([]rpc.BatchElem, len(elems))
	results := make([]json.RawMessage, len(elems))
	for i := range elems {
		batch[i] = rpc.BatchElem{
			Method: elems[i].Method,
			Args:   elems[i].Params,
			Result: &results[i],
		}
	}

	_, err = c.cb.Execute(func() (json.RawMessage, error) {
		return nil, conn.BatchCallContext(ctx, batch)
	})
	if err != nil {
		return Classify(err)
	}

	for i := range elems {
		if batch[i].Error != nil {
			elems[i].Err = Classify(batch[i].Error)
			continue
		}
		elems[i].Result = results[i]
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
