package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffRetry(t *testing.T) {
	b := Backoff{Attempts: 3, InitialDelay: time.Millisecond, Factor: 2}

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := b.Retry(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		err := b.Retry(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("down")
		})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		calls := 0
		err := b.Retry(context.Background(), func(ctx context.Context) error {
			calls++
			return context.Canceled
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts tries once", func(t *testing.T) {
		calls := 0
		_ = Backoff{}.Retry(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("x")
		})
		assert.Equal(t, 1, calls)
	})
}
