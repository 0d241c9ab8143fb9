package middleware

import (
	"sync"
	"time"

	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a client exceeds its request budget
var ErrRateLimited = utils.NewCodedError(fiber.StatusTooManyRequests, "rate_limited", "Demasiadas solicitudes, inténtalo más tarde")

// RateLimiter is a per-IP token bucket limiter
type RateLimiter struct {
	every   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window for every client IP. Clients idle
// for two windows (at least ten minutes) are forgotten.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	idle := 2 * window
	if idle < 10*time.Minute {
		idle = 10 * time.Minute
	}

	rl := &RateLimiter{
		every:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		idleTTL: idle,
		clients: make(map[string]*client),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

// Handler returns the Fiber middleware
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			utils.Log.WithField("ip", c.IP()).Warn("Rate limit exceeded on %s", c.Path())
			return ErrRateLimited
		}
		return c.Next()
	}
}

// Allow reports whether the client may make one more request now
func (rl *RateLimiter) Allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	cl, exists := rl.clients[ip]
	if !exists {
		// Create new limiter: requests per window
		cl = &client{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now
	rl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Stop ends the background cleanup
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
}
