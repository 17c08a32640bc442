package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestVerifySettings(t *testing.T) {
	require.NoError(t, DefaultSettings().Verify())
	require.NoError(t, Settings{InitialBackoff: time.Second, Multiplier: 1}.Verify())

	for _, tc := range []struct {
		settings Settings
		expected string
	}{
		{Settings{}, "initial backoff must be set to >= 0, got 0s"},
		{Settings{InitialBackoff: time.Millisecond}, "multiplier must be >= 1, got 0"},
		{
			Settings{InitialBackoff: time.Minute, Multiplier: 2, MaxBackoff: time.Second},
			"initial backoff (1m0s) must be less than max backoff (1s)",
		},
	} {
		require.EqualError(t, tc.settings.Verify(), tc.expected)
	}
}

func TestDefaultSchedule(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r, err := NewRetryWithTime(start, DefaultSettings())
	require.NoError(t, err)

	// 250ms, then doubling up to the 5s cap.
	var waits []time.Duration
	prev := start
	for r.ShouldContinue() {
		waits = append(waits, r.NextRetry.Sub(prev))
		prev = r.NextRetry
		r.Next()
	}
	require.Equal(t, []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
	}, waits)
	require.Equal(t, DefaultSettings().MaxRetries, r.Iteration)

	capped, err := NewRetryWithTime(start, Settings{InitialBackoff: time.Second, Multiplier: 10, MaxBackoff: 3 * time.Second})
	require.NoError(t, err)
	capped.Next()
	capped.Next()
	require.Equal(t, start.Add(7*time.Second), capped.NextRetry)
	require.True(t, capped.ShouldContinue())
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	settings := Settings{InitialBackoff: time.Millisecond, Multiplier: 1, MaxRetries: 3}

	t.Run("succeeds after failures", func(t *testing.T) {
		attempts := 0
		var retried []error
		err := Do(ctx, settings, func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.Newf("attempt %d", attempts)
			}
			return nil
		}, func(err error, wait time.Duration) {
			retried = append(retried, err)
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Len(t, retried, 2)
	})

	t.Run("gives up", func(t *testing.T) {
		attempts := 0
		err := Do(ctx, settings, func(ctx context.Context) error {
			attempts++
			return errors.New("always")
		}, nil)
		require.EqualError(t, err, "giving up after 3 attempts: always")
		require.Equal(t, 3, attempts)
	})

	t.Run("context cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Do(cctx, Settings{InitialBackoff: time.Hour, Multiplier: 1}, func(ctx context.Context) error {
			return errors.New("down")
		}, nil)
		require.Error(t, err)
		require.ErrorIs(t, err, context.Canceled)
	})
}
