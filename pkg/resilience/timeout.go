package resilience

import (
	"context"
	"fmt"
	"time"
)

// CallWithTimeout runs fn under a context that expires after timeout and
// returns as soon as either fn finishes or the deadline passes. fn keeps
// running in the background after a timeout; it must honour ctx to stop.
// A non-positive timeout calls fn directly.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		return zero, fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, timeout)
	}
}

// WithTimeout is CallWithTimeout for functions without a result.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	_, err := CallWithTimeout(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
