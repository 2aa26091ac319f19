package websearch

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type guarded struct {
	next    Searcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// WithGuard rate limits outbound searches and opens a breaker after 5 consecutive
// failures. While open, Search fails fast with gobreaker.ErrOpenState.
func WithGuard(next Searcher, perSecond float64, burst int) Searcher {
	log := logger_i.NewLogger("WebSearch")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "web-search",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// a caller's cancelled or expired context says nothing about the provider
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrEmptyQuery) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	})
	return &guarded{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker: cb,
	}
}

func (g *guarded) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Search(ctx, query, k)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Result), nil
}
