package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockNetError simulates a network error with timeout/temporary flags.
type mockNetError struct {
	msg       string
	timeout   bool
	temporary bool
}

func (e *mockNetError) Error() string   { return e.msg }
func (e *mockNetError) Timeout() bool   { return e.timeout }
func (e *mockNetError) Temporary() bool { return e.temporary }

var _ net.Error = (*mockNetError)(nil)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSuccess(t *testing.T) {
	callCount := 0

	result, err := Do(context.Background(), DefaultConfig(), func() (string, error) {
		callCount++
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 1, callCount)
}

func TestDoRetryOnTransientError(t *testing.T) {
	callCount := 0
	busy := MarkTransient(errors.New("database is locked"))

	result, err := Do(context.Background(), fastConfig(3), func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", busy
		}
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 3, callCount)
}

func TestDoNoRetryOnPermanentError(t *testing.T) {
	callCount := 0
	permanentErr := errors.New("permanent error")

	_, err := Do(context.Background(), DefaultConfig(), func() (string, error) {
		callCount++
		return "", permanentErr
	})

	assert.Equal(t, permanentErr, err)
	assert.Equal(t, 1, callCount)
}

func TestDoExhaustsRetries(t *testing.T) {
	callCount := 0
	busy := MarkTransient(errors.New("busy"))

	err := Run(context.Background(), fastConfig(4), func() error {
		callCount++
		return busy
	})

	assert.Equal(t, busy, err)
	assert.Equal(t, 4, callCount)
}

func TestDoDisabled(t *testing.T) {
	callCount := 0

	err := Run(context.Background(), Disabled(), func() error {
		callCount++
		return MarkTransient(errors.New("busy"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, callCount)

	callCount = 0
	_ = Run(context.Background(), Config{}, func() error {
		callCount++
		return nil
	})
	assert.Equal(t, 1, callCount, "zero config still makes one attempt")
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
	callCount := 0

	err := Run(ctx, cfg, func() error {
		callCount++
		cancel()
		return MarkTransient(errors.New("busy"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("nope"), false},
		{"marked", MarkTransient(errors.New("busy")), true},
		{"wrapped marked", errors.Join(errors.New("ctx"), MarkTransient(errors.New("busy"))), true},
		{"net timeout", &mockNetError{msg: "timeout", timeout: true}, true},
		{"net temporary", &mockNetError{msg: "temp", temporary: true}, true},
		{"net permanent", &mockNetError{msg: "refused"}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}

	assert.Nil(t, MarkTransient(nil))
	inner := errors.New("inner")
	assert.ErrorIs(t, MarkTransient(inner), inner)
}

func TestConfigDelay(t *testing.T) {
	cfg := Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 10*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 20*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 40*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 50*time.Millisecond, cfg.Delay(3))
	assert.Equal(t, 10*time.Millisecond, cfg.Delay(-1))

	cfg.Jitter = 0.1
	for range 20 {
		d := cfg.Delay(0)
		assert.GreaterOrEqual(t, d, 9*time.Millisecond)
		assert.LessOrEqual(t, d, 11*time.Millisecond)
	}
}
