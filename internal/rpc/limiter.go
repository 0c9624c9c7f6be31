package rpc

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies a token bucket per endpoint.
type Limiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewLimiter creates a limiter allowing ratePerSecond requests with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  limit,
		burstLimit: burst,
	}
}

// Allow reports whether a request to endpoint may proceed now.
func (l *Limiter) Allow(endpoint string) bool {
	return l.get(endpoint).Allow()
}

// Wait blocks until a request to endpoint is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	return l.get(endpoint).Wait(ctx)
}

func (l *Limiter) get(endpoint string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[endpoint]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok = l.limiters[endpoint]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.rateLimit, l.burstLimit)
	l.limiters[endpoint] = limiter
	return limiter
}
