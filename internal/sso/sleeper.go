package sso

import (
	"context"
	"errors"
	"time"
)

// DefaultCancelCheckInterval is how often a CancellableSleeper re-checks for cancellation
const DefaultCancelCheckInterval = 100 * time.Millisecond

// ErrCancelled is returned when the cancellation probe of a CancellableSleeper fires
var ErrCancelled = errors.New("login cancelled")

// CancellableSleeper sleeps in short slices, checking the context and the
// optional Cancelled probe between slices, so a cancelled login stops within
// CheckInterval instead of after a full poll interval.
type CancellableSleeper struct {
	// Cancelled reports an external cancellation request, e.g. a closed dialog
	Cancelled func() bool
	// CheckInterval defaults to DefaultCancelCheckInterval
	CheckInterval time.Duration
}

// Sleep implements Sleeper
func (s CancellableSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	step := s.CheckInterval
	if step <= 0 {
		step = DefaultCancelCheckInterval
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			if err := s.check(ctx); err != nil {
				return err
			}
		}
	}
}

func (s CancellableSleeper) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Cancelled != nil && s.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// IsCancellation reports whether err ended a flow because of a cancellation
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
