package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guarded wraps a Completer with a rate limiter and a circuit breaker.
type Guarded struct {
	inner   Completer
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuarded wraps inner. rpm <= 0 disables rate limiting.
func NewGuarded(inner Completer, name string, rpm int) *Guarded {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if rpm > 0 {
		burst := rpm / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	}

	return &Guarded{inner: inner, breaker: breaker, limiter: limiter}
}

func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}
