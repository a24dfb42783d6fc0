package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
)

// WithTimeout runs fn under a per-call deadline. Running past it is a
// transport failure: the returned error matches both apperrors.ErrTransport
// and context.DeadlineExceeded and names the operation. Cancellation of the
// parent context is returned as is, so an aborted crawl is not mistaken for
// a slow forum.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		if err == nil || callCtx.Err() == nil {
			return err
		}
	case <-callCtx.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: no answer within %v: %w", apperrors.ErrTransport, name, timeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", name, callCtx.Err())
}
