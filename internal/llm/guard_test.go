package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_Success(t *testing.T) {
	g := NewGuard(DefaultGuardConfig("text"), nil)

	res := Call(context.Background(), g, func(context.Context) (string, error) {
		return "hello", nil
	})

	require.True(t, res.OK())
	assert.Equal(t, "hello", res.Value)
	assert.Equal(t, "hello", res.Or("fallback"))
}

func TestCall_FailureIsTyped(t *testing.T) {
	g := NewGuard(DefaultGuardConfig("vision"), nil)

	res := Call(context.Background(), g, func(context.Context) (string, error) {
		return "", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)
	})

	require.False(t, res.OK())
	assert.Equal(t, "vision", res.Failure.Provider)
	assert.Equal(t, ReasonTimeout, res.Failure.Reason)
	assert.Equal(t, "fallback", res.Or("fallback"))
	assert.ErrorIs(t, res.Failure, context.DeadlineExceeded)
}

func TestCall_NilGuard(t *testing.T) {
	res := Call(context.Background(), nil, func(context.Context) ([]float32, error) {
		return nil, ErrBadResponse
	})

	require.False(t, res.OK())
	assert.Equal(t, ReasonBadResponse, res.Failure.Reason)
}

func TestCall_CircuitOpens(t *testing.T) {
	cfg := DefaultGuardConfig("text")
	cfg.RequestsPerSecond = 0
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Minute
	g := NewGuard(cfg, nil)

	boom := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		res := Call(context.Background(), g, func(context.Context) (string, error) {
			return "", boom
		})
		require.False(t, res.OK())
		assert.Equal(t, ReasonUnavailable, res.Failure.Reason)
	}

	called := false
	res := Call(context.Background(), g, func(context.Context) (string, error) {
		called = true
		return "ok", nil
	})

	assert.False(t, called)
	require.False(t, res.OK())
	assert.Equal(t, ReasonCircuitOpen, res.Failure.Reason)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReasonCanceled, Classify(context.Canceled))
	assert.Equal(t, ReasonTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, ReasonBadResponse, Classify(fmt.Errorf("x: %w", ErrBadResponse)))
	assert.Equal(t, ReasonUnavailable, Classify(errors.New("dial tcp: refused")))
}

func TestGuard_Name(t *testing.T) {
	assert.Equal(t, "embeddings", NewGuard(DefaultGuardConfig("embeddings"), nil).Name())

	var g *Guard
	assert.Equal(t, "provider", g.Name())
}
