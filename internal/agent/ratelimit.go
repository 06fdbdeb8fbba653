package agent

import (
	"sync"
	"time"
)

const maxTrackedSenders = 10000

// RateLimiter is a token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
	now      func() time.Time
}

func NewRateLimiter(maxBurst int, ratePerMinute float64) *RateLimiter {
	return newRateLimiter(maxBurst, ratePerMinute, time.Now)
}

func newRateLimiter(maxBurst int, ratePerMinute float64, now func() time.Time) *RateLimiter {
	if maxBurst <= 0 {
		maxBurst = 5
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 20
	}
	return &RateLimiter{
		tokens:   float64(maxBurst),
		max:      float64(maxBurst),
		rate:     ratePerMinute / 60.0,
		lastTime: now(),
		now:      now,
	}
}

// Allow takes a token if one is available and never blocks.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) full() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens >= rl.max
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.lastTime).Seconds() * rl.rate
	if rl.tokens > rl.max {
		rl.tokens = rl.max
	}
	rl.lastTime = now
}

// SenderLimiter keeps one bucket per sender.
type SenderLimiter struct {
	mu      sync.Mutex
	buckets map[string]*RateLimiter
	burst   int
	rate    float64
	now     func() time.Time
}

func NewSenderLimiter(burst int, ratePerMinute float64) *SenderLimiter {
	return &SenderLimiter{
		buckets: make(map[string]*RateLimiter),
		burst:   burst,
		rate:    ratePerMinute,
		now:     time.Now,
	}
}

// Allow reports whether sender may be served now.
func (s *SenderLimiter) Allow(sender string) bool {
	s.mu.Lock()
	b, ok := s.buckets[sender]
	if !ok {
		if len(s.buckets) >= maxTrackedSenders {
			s.pruneLocked()
		}
		b = newRateLimiter(s.burst, s.rate, s.now)
		s.buckets[sender] = b
	}
	s.mu.Unlock()
	return b.Allow()
}

// pruneLocked forgets senders whose bucket has fully refilled; they would
// start from a full bucket anyway.
func (s *SenderLimiter) pruneLocked() {
	for id, b := range s.buckets {
		if b.full() {
			delete(s.buckets, id)
		}
	}
}
