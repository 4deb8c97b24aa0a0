package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds fn by a deadline on a derived context. When the
// deadline fires first the caller gets an error immediately; fn keeps
// running in its goroutine until it observes the cancelled context, so
// fn must not hold locks past the deadline. A timeout of zero or less
// disables the bound.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- fn(bounded) }()

	select {
	case err := <-errc:
		return err
	case <-bounded.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, err)
		}
		return fmt.Errorf("%s: %w (limit %v)", name, context.DeadlineExceeded, timeout)
	}
}
