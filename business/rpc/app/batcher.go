package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// pendingCall is one caller waiting inside the collection window.
type pendingCall struct {
	method string
	params []any
	done   chan callResult
}

type callResult struct {
	raw json.RawMessage
	err error
}

// flushFunc executes a collected batch against one endpoint and delivers an
// outcome to every pending call.
type flushFunc func(calls []*pendingCall)

// Batcher groups independent calls issued within a short collection window
// into a single batched transport call. A full batch is flushed immediately
// rather than waiting out the window; callers are de-batched transparently
// and each sees its own result or error.
type Batcher struct {
	window  time.Duration
	maxSize int
	flush   flushFunc

	mu    sync.Mutex
	queue []*pendingCall
	timer *time.Timer
}

// NewBatcher creates a batcher with the given collection window and maximum
// batch size.
func NewBatcher(window time.Duration, maxSize int, flush flushFunc) *Batcher {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Batcher{
		window:  window,
		maxSize: maxSize,
		flush:   flush,
	}
}

// Submit enqueues one call and blocks until its batch settles or ctx is done.
func (b *Batcher) Submit(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	call := &pendingCall{
		method: method,
		params: params,
		done:   make(chan callResult, 1),
	}

	b.mu.Lock()
	b.queue = append(b.queue, call)
	switch {
	case len(b.queue) >= b.maxSize:
		b.flushLocked()
	case len(b.queue) == 1:
		b.timer = time.AfterFunc(b.window, b.flushNow)
	}
	b.mu.Unlock()

	select {
	case res := <-call.done:
		return res.raw, res.err
	case <-ctx.Done():
		// The batch still completes; this caller just stops waiting.
		return nil, ctx.Err()
	}
}

func (b *Batcher) flushNow() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

// flushLocked hands the current queue to the flush function. Caller holds mu.
func (b *Batcher) flushLocked() {
	if len(b.queue) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	batch := b.queue
	b.queue = nil
	go b.flush(batch)
}

// deliver completes every call in the batch with the same error.
func deliverError(calls []*pendingCall, err error) {
	for _, c := range calls {
		c.done <- callResult{err: err}
	}
}
