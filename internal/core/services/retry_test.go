package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func(_ context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesTransient(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func(_ context.Context) error {
		calls++
		if calls < 3 {
			return domain.NewTransientError("embed", errors.New("rate limited"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ExhaustsTransient(t *testing.T) {
	calls := 0
	transient := domain.NewTransientError("embed", errors.New("upstream down"))
	err := testPolicy().Do(context.Background(), "op", func(_ context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, domain.IsTransient(err))
}

func TestRetryPolicy_FatalNotRetried(t *testing.T) {
	calls := 0
	fatal := domain.NewFatalError("embed", errors.New("invalid api key"))
	err := testPolicy().Do(context.Background(), "op", func(_ context.Context) error {
		calls++
		return fatal
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func(_ context.Context) error {
		calls++
		return errors.New("logic bug")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}
	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.Do(ctx, "op", func(_ context.Context) error {
			calls++
			return domain.NewTransientError("embed", errors.New("slow"))
		})
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}
