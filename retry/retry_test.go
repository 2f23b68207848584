/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func TestDoWithRetry(t *testing.T) {
	isRetryable := func(err error) bool { return errors.Is(err, errTransient) }

	t.Run("succeeds after transient errors", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), ConstantBackoffPolicy{Interval: time.Millisecond, MaxAttempts: 3},
			isRetryable, nil, func(ctx context.Context) error {
				calls++
				if calls < 3 {
					return errTransient
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		notified := 0
		err := DoWithRetry(context.Background(), ExponentialBackoffPolicy{InitialInterval: time.Millisecond, MaxAttempts: 2},
			nil, func(error, time.Duration) { notified++ }, func(ctx context.Context) error {
				calls++
				return errTransient
			})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 3, calls)
		require.Equal(t, 2, notified)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), ConstantBackoffPolicy{Interval: time.Millisecond, MaxAttempts: 5},
			isRetryable, nil, func(ctx context.Context) error {
				calls++
				return errFatal
			})
		require.ErrorIs(t, err, errFatal)
		require.Equal(t, 1, calls)
	})

	t.Run("no retry policy", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NoRetryPolicy, nil, nil, func(ctx context.Context) error {
			calls++
			return errTransient
		})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 1, calls)
	})
}
