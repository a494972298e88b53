package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an untouched client bucket is kept.
const idleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*client
	now     func() time.Time
	swept   time.Time
}

type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows perSecond requests per client with bursts of burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow takes a token for id or returns a *RateLimitError.
func (rl *RateLimiter) Allow(id string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	c, ok := rl.clients[id]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[id] = c
	}
	c.seen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &RateLimitError{Limit: float64(rl.limit), Burst: rl.burst, RetryAfter: delay}
	}
	return nil
}

// sweep drops idle clients at most once per idleTTL.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.swept) < idleTTL {
		return
	}
	for id, c := range rl.clients {
		if now.Sub(c.seen) > idleTTL {
			delete(rl.clients, id)
		}
	}
	rl.swept = now
}

// Clients reports the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      float64       // sustained requests per second
	Burst      int           // bucket size
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %.2f/s, burst: %d, retry after: %v)", e.Limit, e.Burst, e.RetryAfter)
}
