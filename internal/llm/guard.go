package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/docgraph/ingest/internal/logging"
)

var errCircuitOpen = errors.New("circuit open")

// GuardConfig holds the limits applied to one provider
type GuardConfig struct {
	Name string

	// RequestsPerSecond and Burst configure the token bucket. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	// Breaker settings
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultGuardConfig returns conservative limits for a provider
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:              name,
		RequestsPerSecond: 2,
		Burst:             4,
		MaxRequests:       3,
		Interval:          60 * time.Second,
		Timeout:           30 * time.Second,
		FailureThreshold:  0.6,
		MinRequests:       5,
	}
}

// Guard rate-limits a provider and trips a circuit breaker when it keeps failing,
// so a dead endpoint fails fast instead of stalling every page of a document.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGuard creates a guard for one provider
func NewGuard(cfg GuardConfig, logger *zap.Logger) *Guard {
	logger = logging.OrNop(logger)

	g := &Guard{name: cfg.Name, logger: logger}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("provider circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return g
}

// Name returns the provider name, "provider" for a nil guard
func (g *Guard) Name() string {
	if g == nil {
		return "provider"
	}
	return g.name
}

// Call runs fn under the guard. A nil guard runs fn directly.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) Result[T] {
	name := g.Name()

	fail := func(err error) Result[T] {
		return Result[T]{Failure: &Failure{Provider: name, Reason: Classify(err), Err: err}}
	}

	if g == nil {
		v, err := fn(ctx)
		if err != nil {
			return fail(err)
		}
		return Result[T]{Value: v}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return fail(err)
	}

	v, ok := out.(T)
	if !ok {
		return fail(fmt.Errorf("%w: unexpected result type %T", ErrBadResponse, out))
	}
	return Result[T]{Value: v}
}
