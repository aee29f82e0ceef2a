package pool

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Backoff controls how connection attempts are retried.
type Backoff struct {
	// Attempts is the total number of tries; values below 1 mean one try.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	// Jitter spreads each delay by ±25%.
	Jitter bool
}

// DefaultBackoff returns the backoff used when a pool retries its first ping.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts:     1,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Factor:       2.0,
		Jitter:       true,
	}
}

// Retry calls fn until it succeeds, the attempts are used up or ctx is done.
// The last error is returned.
func (b Backoff) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := b.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || attempt >= attempts {
			return err
		}

		wait := delay
		if b.Jitter && delay > 0 {
			spread := delay / 4
			wait = delay - spread + time.Duration(rand.Int63n(int64(spread)*2+1))
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return err
		}

		if b.Factor > 1 {
			delay = time.Duration(float64(delay) * b.Factor)
		}
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
}
