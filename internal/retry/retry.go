// Package retry implements a bounded exponential backoff controller.
//
// Business code never embeds its own retry loops: an operation, a failure
// classifier, and a policy go in, and a result or the terminal classified
// error comes out.
package retry

import (
	"context"
	"time"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// Policy bounds the retry schedule.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	Multiplier  float64       // backoff growth factor
	MaxDelay    time.Duration // ceiling for a single delay
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	return p
}

// Classifier reports whether an error is transient and worth retrying.
type Classifier func(error) bool

// Transient classifies by the apperror retryable flag. Unclassified errors
// are terminal.
func Transient(err error) bool {
	return apperror.IsRetryable(err)
}

// Do runs op until it succeeds, the classifier declares the failure terminal,
// or the policy's attempts are exhausted. The last error is returned as-is,
// preserving its original classification.
func Do[T any](ctx context.Context, policy Policy, classify Classifier, op func(context.Context) (T, error)) (T, error) {
	p := policy.normalized()
	if classify == nil {
		classify = Transient
	}

	var zero T
	delay := p.BaseDelay

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxAttempts || !classify(err) {
			return zero, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, apperror.New(apperror.CodeTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("retry aborted by context"))
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
