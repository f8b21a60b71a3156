package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), Transient, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != 42 || calls != 1 {
		t.Fatalf("got %d after %d calls; want 42 after 1", got, calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(5), Transient, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", apperror.New(apperror.CodeNetworkError)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls; want ok after 3", got, calls)
	}
}

func TestDo_TerminalErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), Transient, func(ctx context.Context) (int, error) {
		calls++
		return 0, apperror.New(apperror.CodePoolNotFound)
	})
	if calls != 1 {
		t.Fatalf("terminal error retried %d times", calls)
	}
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("error code = %s; want POOL_NOT_FOUND", apperror.GetCode(err))
	}
}

func TestDo_ExhaustionPreservesClassification(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), Transient, func(ctx context.Context) (int, error) {
		calls++
		return 0, apperror.New(apperror.CodeTimeout)
	})
	if calls != 3 {
		t.Fatalf("made %d attempts; want 3", calls)
	}
	if !apperror.IsRetryable(err) {
		t.Fatal("exhausted transient error lost its retryable classification")
	}
}

func TestDo_UnclassifiedErrorIsTerminal(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), Transient, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("plain failure")
	})
	if calls != 1 {
		t.Fatalf("unclassified error retried %d times", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDo_ContextCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2, MaxDelay: time.Hour}, Transient,
		func(ctx context.Context) (int, error) {
			return 0, apperror.New(apperror.CodeNetworkError)
		})
	if apperror.GetCode(err) != apperror.CodeTimeout {
		t.Fatalf("error code = %s; want TIMEOUT", apperror.GetCode(err))
	}
}
