package x

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned by Poll when every attempt ran without a result.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// Poll calls fn up to attempts times, sleeping interval between calls, and
// returns the first value fn reports as done. The first call happens
// immediately.
func Poll[T any](ctx context.Context, interval time.Duration, attempts int, fn func(attempt int) (T, bool)) (T, error) {
	var zero T

	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		if v, ok := fn(attempt); ok {
			return v, nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}

	return zero, ErrPollExhausted
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
