package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

// ErrBulkheadFull is returned to the fallback when the concurrent
// in-flight call limit is reached. Excess calls are rejected immediately,
// never queued.
var ErrBulkheadFull = errors.New("resilience: concurrent call limit exceeded")

// Fallback produces a substitute value after the policy chain gives up.
// Returning an error means no usable fallback exists and the original
// failure surfaces to the caller.
type Fallback[T any] func(ctx context.Context, cause error) (T, error)

// Option configures a Client.
type Option[T any] func(*Client[T])

// WithTerminal marks errors that must bypass retry and fallback entirely:
// they surface to the caller unchanged and do not count toward the
// circuit breaker's failure rate. A confirmed not-found is the canonical
// case.
func WithTerminal[T any](terminal func(error) bool) Option[T] {
	return func(c *Client[T]) {
		c.terminal = terminal
	}
}

// WithStateChangeHook observes circuit breaker transitions, e.g. for a
// metrics gauge.
func WithStateChangeHook[T any](hook func(name string, state gobreaker.State)) Option[T] {
	return func(c *Client[T]) {
		c.stateHook = hook
	}
}

// Client wraps an outbound call with the full policy chain, composed in
// order: bulkhead, per-attempt timeout, retry with backoff, circuit
// breaker, fallback.
type Client[T any] struct {
	name     string
	cfg      config.PolicyConfig
	sem      chan struct{}
	breaker  *gobreaker.CircuitBreaker
	fallback Fallback[T]
	terminal func(error) bool

	stateHook func(string, gobreaker.State)
	log       *logger.Logger
}

// New builds a resilient client around one external dependency.
func New[T any](name string, cfg config.PolicyConfig, fallback Fallback[T], log *logger.Logger, opts ...Option[T]) *Client[T] {
	c := &Client[T]{
		name:     name,
		cfg:      cfg,
		fallback: fallback,
		terminal: func(error) bool { return false },
		log:      log.Named("resilience_" + name),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.MaxConcurrent > 0 {
		c.sem = make(chan struct{}, cfg.MaxConcurrent)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
			if c.stateHook != nil {
				c.stateHook(name, to)
			}
		},
		// Terminal failures are the dependency answering correctly;
		// they must not push the breaker toward open.
		IsSuccessful: func(err error) bool {
			return err == nil || c.terminal(err)
		},
	})

	return c
}

// Call runs fn through the policy chain and returns either its result,
// a terminal error, or the fallback.
func (c *Client[T]) Call(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if c.sem != nil {
		select {
		case c.sem <- struct{}{}:
			defer func() { <-c.sem }()
		default:
			return c.serveFallback(ctx, ErrBulkheadFull)
		}
	}

	backoff := c.cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			val, attemptErr := c.attempt(ctx, fn)
			return val, attemptErr
		})
		if err == nil {
			return res.(T), nil
		}
		lastErr = err

		if c.terminal(err) {
			return zero, err
		}
		// An open breaker will reject every further attempt; go
		// straight to the fallback.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return c.serveFallback(ctx, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = c.nextBackoff(backoff)
	}

	return c.serveFallback(ctx, lastErr)
}

func (c *Client[T]) attempt(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (c *Client[T]) serveFallback(ctx context.Context, cause error) (T, error) {
	c.log.FallbackServed(c.name, cause)
	return c.fallback(ctx, cause)
}

func (c *Client[T]) nextBackoff(current time.Duration) time.Duration {
	next := float64(current) * c.cfg.BackoffMultiplier
	if c.cfg.BackoffJitter > 0 {
		next += (rand.Float64()*2 - 1) * c.cfg.BackoffJitter * next
	}
	if max := float64(c.cfg.MaxBackoff); next > max {
		next = max
	}
	return time.Duration(next)
}

// State exposes the breaker state, mostly for health reporting.
func (c *Client[T]) State() gobreaker.State {
	return c.breaker.State()
}
