package sso

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellableSleeper(t *testing.T) {
	t.Run("sleeps the full duration", func(t *testing.T) {
		s := CancellableSleeper{CheckInterval: 5 * time.Millisecond}
		start := time.Now()
		err := s.Sleep(context.Background(), 30*time.Millisecond)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("zero duration returns immediately", func(t *testing.T) {
		assert.NoError(t, CancellableSleeper{}.Sleep(context.Background(), 0))
	})

	t.Run("already cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := CancellableSleeper{}.Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("probe stops the sleep", func(t *testing.T) {
		var cancelled atomic.Bool
		s := CancellableSleeper{
			Cancelled:     cancelled.Load,
			CheckInterval: 5 * time.Millisecond,
		}
		time.AfterFunc(20*time.Millisecond, func() { cancelled.Store(true) })

		start := time.Now()
		err := s.Sleep(context.Background(), time.Hour)
		assert.ErrorIs(t, err, ErrCancelled)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("deadline stops the sleep", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := CancellableSleeper{}.Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, IsCancellation(err))
	})
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(ErrCancelled))
	assert.True(t, IsCancellation(context.Canceled))
	assert.False(t, IsCancellation(ErrAccessDenied))
	assert.False(t, IsCancellation(nil))
}
