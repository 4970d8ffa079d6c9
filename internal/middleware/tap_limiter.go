package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// TapLimiter keeps one token bucket per user for the tap endpoint.
type TapLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*tapBucket
	rate     rate.Limit
	burst    int
}

type tapBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTapLimiter(perSecond float64, burst int) *TapLimiter {
	return &TapLimiter{
		limiters: make(map[int64]*tapBucket),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *TapLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	b, ok := l.limiters[userID]
	if !ok {
		b = &tapBucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[userID] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	return b.limiter.Allow()
}

// Cleanup forgets buckets idle for longer than maxIdle.
func (l *TapLimiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.limiters {
		if time.Since(b.lastSeen) > maxIdle {
			delete(l.limiters, id)
		}
	}
}

func (l *TapLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.GetInt64("user_id")) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Tapping too fast"})
			c.Abort()
			return
		}

		c.Next()
	}
}
