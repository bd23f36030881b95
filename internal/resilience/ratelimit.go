package resilience

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously at rate tokens per
// period, holding at most burst tokens. Allow never blocks.
type RateLimiter struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64 // tokens per second
	last   time.Time
	now    func() time.Time
}

// NewRateLimiter permits rate calls per period with the given burst headroom.
func NewRateLimiter(rate int, period time.Duration, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if period <= 0 {
		period = time.Second
	}
	if burst <= 0 {
		burst = rate
	}
	now := time.Now
	return &RateLimiter{
		tokens: float64(burst),
		burst:  float64(burst),
		rate:   float64(rate) / period.Seconds(),
		last:   now(),
		now:    now,
	}
}

// Allow consumes a token when available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	r.tokens += t.Sub(r.last).Seconds() * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = t

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}
