package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	sentinel := errors.New("down")
	err := Retry(context.Background(), "dead", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestRetryRefusesTransportFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "fetch", RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return fmt.Errorf("%w: status 503", apperrors.ErrTransport)
	})
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, 1, calls)
}

func TestRetryCustomPredicate(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		Retryable:    func(error) bool { return true },
	}
	err := Retry(context.Background(), "always", cfg, func() error {
		calls++
		return apperrors.ErrTransport
	})
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, 4, calls)
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 5*time.Millisecond, "fetch https://forum.test/threads/1", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Contains(t, err.Error(), "https://forum.test/threads/1")
}

func TestWithTimeoutExpiryReportedByCallee(t *testing.T) {
	err := WithTimeout(context.Background(), 5*time.Millisecond, "fetch", func(ctx context.Context) error {
		<-ctx.Done()
		return fmt.Errorf("%w: %v", apperrors.ErrTransport, ctx.Err())
	})
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestWithTimeoutParentCancelIsNotTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := WithTimeout(ctx, time.Second, "fetch", func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrTransport)
}

func TestWithTimeoutPassesResult(t *testing.T) {
	sentinel := errors.New("boom")
	err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
