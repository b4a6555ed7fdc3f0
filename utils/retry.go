package utils

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Backoff is the pause/retry policy shared by the orchestrator, the window
// sampler and the storage layer. A zero MinDelay/MaxDelay pair never sleeps.
type Backoff struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Logger      *Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBackoff builds a policy with a randomized delay in [minDelay, maxDelay].
func NewBackoff(maxAttempts int, minDelay, maxDelay time.Duration, logger *Logger) *Backoff {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Backoff{
		MaxAttempts: maxAttempts,
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		Logger:      logger,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NoDelay is a policy that never waits; tests substitute it for real pauses.
func NoDelay(maxAttempts int) *Backoff {
	return NewBackoff(maxAttempts, 0, 0, Discard())
}

// Delay returns the next randomized pause.
func (b *Backoff) Delay() time.Duration {
	if b == nil || b.MaxDelay <= 0 {
		return 0
	}
	span := b.MaxDelay - b.MinDelay
	if span <= 0 {
		return b.MinDelay
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rnd == nil {
		b.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b.MinDelay + time.Duration(b.rnd.Int63n(int64(span)+1))
}

// Pause sleeps for one randomized delay, returning early with ctx.Err() if
// the context is cancelled.
func (b *Backoff) Pause(ctx context.Context) error {
	d := b.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes fn up to MaxAttempts times, pausing between failures.
func (b *Backoff) Do(ctx context.Context, operationName string, fn func() error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			if b.Logger != nil {
				b.Logger.Warn("[retry] %s failed (attempt %d/%d): %v", operationName, attempt, attempts, lastErr)
			}
			if err := b.Pause(ctx); err != nil {
				return fmt.Errorf("%s interrupted after %d attempts: %w", operationName, attempt, err)
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
