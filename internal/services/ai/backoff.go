package ai

import (
	"context"
	"time"
)

const (
	// MaxAttempts bounds calls to the model per Generate
	MaxAttempts = 3
	// BaseBackoff is the wait before the second attempt
	BaseBackoff = time.Second
)

// BackoffDelay returns the wait after the n-th failed attempt (n >= 1):
// 1s, 2s, 4s, ...
func BackoffDelay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	if n > 10 {
		n = 10
	}
	return BaseBackoff << uint(n-1)
}

// RetryBudget is the longest a Generate call can take when every attempt
// runs to attemptTimeout: all attempts plus the waits between them.
func RetryBudget(attemptTimeout time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultTimeout
	}
	budget := time.Duration(MaxAttempts) * attemptTimeout
	for n := 1; n < MaxAttempts; n++ {
		budget += BackoffDelay(n)
	}
	return budget
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
