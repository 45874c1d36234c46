package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/molgrid/pkg/errors"
)

// RateLimitConfig bounds how fast a single client may request grids.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; 0 disables limiting.
	RequestsPerSecond float64
	// Burst is the bucket size. Values below 1 are raised to 1.
	Burst int
	// KeyFunc extracts the limit key; nil means the client IP.
	KeyFunc func(c *gin.Context) string
	// IdleTimeout drops limiters not used for this long.
	IdleTimeout time.Duration
}

// Enabled reports whether the config limits anything.
func (c RateLimitConfig) Enabled() bool { return c.RequestsPerSecond > 0 }

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per key.
type ClientLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewClientLimiter creates a limiter set for cfg.
func NewClientLimiter(cfg RateLimitConfig) *ClientLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &ClientLimiter{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}
}

// Reserve takes one token for key. It returns false and the wait until the
// next token when the bucket is empty.
func (l *ClientLimiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter:  rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst),
			lastSeen: now,
		}
		l.clients[key] = cl
		l.evictIdle(now)
	} else {
		cl.lastSeen = now
	}
	l.mu.Unlock()

	r := cl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// evictIdle runs on insert only, so idle sweeps cost nothing on the hot path.
func (l *ClientLimiter) evictIdle(now time.Time) {
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.cfg.IdleTimeout {
			delete(l.clients, k)
		}
	}
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit rejects requests over the per-client budget with 429 and a
// Retry-After header.
func RateLimit(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.Reserve(l.cfg.KeyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.FormatFloat(l.cfg.RequestsPerSecond, 'f', -1, 64))
		if ok {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":    string(errors.ErrCodeRateLimited),
			"message": "rate limit exceeded, please retry later",
		})
	}
}

//Personal.AI order the ending
