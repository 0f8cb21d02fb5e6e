package schedule

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown enforces the per-room pause between reservation commands:
// one command per interval, with a burst of one.
type Cooldown struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewCooldown builds a cooldown enforcer. A non-positive interval
// disables it.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Allow reports whether the room may issue a reservation command now.
func (c *Cooldown) Allow(room string) bool {
	if c == nil || c.interval <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.limiters[room]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.interval), 1)
		c.limiters[room] = limiter
	}
	return limiter.Allow()
}

// Interval returns the configured cooldown, for error messages.
func (c *Cooldown) Interval() time.Duration {
	if c == nil {
		return 0
	}
	return c.interval
}
