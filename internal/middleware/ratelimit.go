package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

// ErrRateLimited is returned when a client exhausts its bucket.
var ErrRateLimited = appErrors.New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests, slow down")

type rateLimitObserver interface {
	ObserveRateLimited(path string)
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

// TokenBucket is an in-memory per-client rate limiter. State is per process.
// Buckets that have refilled to capacity are dropped on the next sweep, so
// memory tracks recently active clients only.
type TokenBucket struct {
	capacity float64
	perSec   float64
	observer rateLimitObserver
	now      func() time.Time

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket allows bursts of capacity and refills perMinute tokens per minute.
// A non-positive capacity defaults to perMinute. observer may be nil.
func NewTokenBucket(capacity, perMinute int, observer rateLimitObserver) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		observer: observer,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
}

// GinMiddleware enforces per-IP limits.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			if l.observer != nil {
				l.observer.ObserveRateLimited(c.FullPath())
			}
			c.Header("Retry-After", "60")
			response.Error(c, ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return l.capacity >= 1
	}
	b.tokens += now.Sub(b.last).Seconds() * l.perSec
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets that would be full by now. A dropped bucket is
// recreated full on the client's next request, so limits are unchanged.
func (l *TokenBucket) sweep(now time.Time) {
	l.lastSweep = now
	for key, b := range l.state {
		if b.tokens+now.Sub(b.last).Seconds()*l.perSec >= l.capacity {
			delete(l.state, key)
		}
	}
}

func (l *TokenBucket) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state)
}
