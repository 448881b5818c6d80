package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the cleanup interval are dropped on the next request after it elapses.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int

	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

func NewIPRateLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &IPRateLimiter{
		visitors:        make(map[string]*visitor),
		limit:           rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:           burst,
		cleanupInterval: cleanupInterval,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

func (l *IPRateLimiter) reserve(ip string) *rate.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= l.cleanupInterval {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.cleanupInterval {
				delete(l.visitors, key)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.ReserveN(now, 1)
}

// Allow reports whether ip may proceed now and, if not, how long to wait.
func (l *IPRateLimiter) Allow(ip string) (bool, time.Duration) {
	r := l.reserve(ip)
	if !r.OK() {
		return false, l.cleanupInterval
	}

	now := l.now()
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *IPRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
