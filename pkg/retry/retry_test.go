package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}, Config{MaxRetries: 5, Delay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	retries := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	}, Config{
		MaxRetries: 3,
		Delay:      time.Millisecond,
		OnRetry:    func(int, error) { retries++ },
	})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return nil }, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	v, err := DoWithResult(context.Background(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("boom")
		}
		return 42, nil
	}, Config{MaxRetries: 2, Delay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
