package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

var errBoom = errors.New("boom")

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		MaxConcurrent:     4,
		Timeout:           time.Second,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		FailureRatio:      0.5,
		MinRequests:       3,
		OpenTimeout:       time.Minute,
		HalfOpenMaxCalls:  1,
	}
}

func fallbackValue(v string) Fallback[string] {
	return func(context.Context, error) (string, error) { return v, nil }
}

func TestCallPassesThroughSuccess(t *testing.T) {
	c := New("test", testPolicy(), fallbackValue("fallback"), logger.NewNop())

	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCallRetriesUntilSuccess(t *testing.T) {
	c := New("test", testPolicy(), fallbackValue("fallback"), logger.NewNop())

	calls := 0
	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestCallServesFallbackAfterRetriesExhausted(t *testing.T) {
	c := New("test", testPolicy(), fallbackValue("fallback"), logger.NewNop())

	calls := 0
	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errBoom
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestCallSurfacesFallbackFailure(t *testing.T) {
	failing := func(_ context.Context, cause error) (string, error) {
		return "", cause
	}
	c := New("test", testPolicy(), failing, logger.NewNop())

	_, err := c.Call(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}

func TestTerminalErrorSkipsRetryAndFallback(t *testing.T) {
	errNotFound := errors.New("not found")
	c := New("test", testPolicy(), fallbackValue("fallback"), logger.NewNop(),
		WithTerminal[string](func(err error) bool { return errors.Is(err, errNotFound) }),
	)

	calls := 0
	_, err := c.Call(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errNotFound
	})
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, 1, calls, "terminal errors are never retried")
}

func TestTerminalErrorsDoNotTripBreaker(t *testing.T) {
	errNotFound := errors.New("not found")
	cfg := testPolicy()
	cfg.MaxRetries = 0
	c := New("test", cfg, fallbackValue("fallback"), logger.NewNop(),
		WithTerminal[string](func(err error) bool { return errors.Is(err, errNotFound) }),
	)

	// Far more terminal failures than the trip threshold.
	for i := 0; i < 20; i++ {
		_, err := c.Call(context.Background(), func(context.Context) (string, error) {
			return "", errNotFound
		})
		assert.ErrorIs(t, err, errNotFound)
	}

	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got, "breaker must still be closed")
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	cfg := testPolicy()
	cfg.MaxRetries = 0
	c := New("test", cfg, fallbackValue("fallback"), logger.NewNop())

	for i := 0; i < 5; i++ {
		_, _ = c.Call(context.Background(), func(context.Context) (string, error) {
			return "", errBoom
		})
	}

	calls := 0
	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got, "open breaker short-circuits to fallback")
	assert.Zero(t, calls, "the underlying call must not run while open")
}

func TestBulkheadRejectsExcessCalls(t *testing.T) {
	cfg := testPolicy()
	cfg.MaxConcurrent = 1
	cfg.MaxRetries = 0
	c := New("test", cfg, fallbackValue("fallback"), logger.NewNop())

	holding := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Call(context.Background(), func(context.Context) (string, error) {
			close(holding)
			<-release
			return "slow", nil
		})
	}()

	<-holding
	got, err := c.Call(context.Background(), func(context.Context) (string, error) {
		return "fast", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got, "excess call rejected immediately")

	close(release)
	wg.Wait()
}

func TestAttemptTimeoutCancelsContext(t *testing.T) {
	cfg := testPolicy()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 0
	c := New("test", cfg, fallbackValue("fallback"), logger.NewNop())

	got, err := c.Call(context.Background(), func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too slow", nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}
