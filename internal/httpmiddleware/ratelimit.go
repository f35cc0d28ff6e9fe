package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket is an in-memory rate limiter with one bucket per (client IP,
// route) pair, so a scan burst at the gate cannot starve the dashboard
// endpoints. A single school's volume fits in one process; swap to Redis if
// that changes.
type TokenBucket struct {
	def    limit
	routes map[string]limit

	mu    sync.Mutex
	state map[string]*bucket
}

type limit struct {
	capacity int
	rate     int // tokens per minute
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket creates a limiter holding capacity tokens per key, refilled
// at perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		def:    limit{capacity: capacity, rate: perMinute},
		routes: make(map[string]limit),
		state:  make(map[string]*bucket),
	}
}

// WithRouteLimit overrides the limit for one route pattern (as registered
// with gin, e.g. "/v1/scans").
func (l *TokenBucket) WithRouteLimit(route string, capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	l.routes[route] = limit{capacity: capacity, rate: perMinute}
	return l
}

// Middleware returns a gin handler enforcing the limits.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		route := c.FullPath() // empty for unmatched paths, which share one bucket per IP
		lim, ok := l.routes[route]
		if !ok {
			lim = l.def
		}
		if !l.allow(ip+"|"+route, lim) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (l *TokenBucket) allow(key string, lim limit) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: lim.capacity - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	if refill := int(elapsed * float64(lim.rate)); refill > 0 {
		b.tokens += refill
		if b.tokens > lim.capacity {
			b.tokens = lim.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
