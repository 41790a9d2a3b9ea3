package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string     { return fmt.Sprintf("store returned status %d", e.code) }
func (e *statusError) IsRetryable() bool { return e.code == 429 || e.code >= 500 }

func fastConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2.0,
		MaxSameErrorType: 5,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}

func TestDoWithResult_EventualSuccess(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("dial tcp: connection refused")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestDoWithResult_ExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestDoWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	_, err := DoWithResult(ctx, cfg, func() (int, error) {
		return 0, errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"typed 503", &statusError{code: 503}, true},
		{"typed 429", &statusError{code: 429}, true},
		{"typed 400", &statusError{code: 400}, false},
		{"wrapped typed 404", fmt.Errorf("failed to list books: %w", &statusError{code: 404}), false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:1337: connection refused"), true},
		{"rate limit text", errors.New("Rate limit exceeded"), true},
		{"validation", errors.New("slug must be unique"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_PermanentErrorReturnsImmediately(t *testing.T) {
	attempts := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		attempts++
		return &statusError{code: 400}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoIfRetryable_TransientThenSuccess(t *testing.T) {
	attempts := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts == 1 {
			return &statusError{code: 502}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDoIfRetryable_SameErrorEscalates(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 10
	cfg.MaxSameErrorType = 3

	attempts := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		attempts++
		return &statusError{code: 503}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated error")
	assert.Equal(t, 3, attempts)

	var se *statusError
	assert.ErrorAs(t, err, &se)
}

func TestDoWithResultIfRetryable_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := DoWithResultIfRetryable(context.Background(), fastConfig(), func() ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("read: connection reset by peer")
		}
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestClassifyErrorType(t *testing.T) {
	assert.Equal(t, "503", classifyErrorType(errors.New("store returned status 503")))
	assert.Equal(t, "connection", classifyErrorType(errors.New("connection refused")))
	assert.Equal(t, "timeout", classifyErrorType(errors.New("i/o timeout")))
	assert.Equal(t, "unknown", classifyErrorType(errors.New("weird")))
}
