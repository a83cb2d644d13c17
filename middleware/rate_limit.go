package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"

	"github.com/cppla/clipbot/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
	mu      sync.Mutex
}

func (l *rateLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expires = now.Add(limiterIdle)
	return l.limiter.Allow()
}

func (l *rateLimiter) expired(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.After(l.expires)
}

// RateLimit applies a per client IP token bucket of perMinute requests.
func RateLimit(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)
	limiters := cmap.New[*rateLimiter]()
	var lastSweep time.Time
	var sweepMu sync.Mutex

	return func(ctx *gin.Context) {
		now := time.Now()

		sweepMu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			lastSweep = now
			for key, l := range limiters.Items() {
				if l.expired(now) {
					limiters.Remove(key)
				}
			}
		}
		sweepMu.Unlock()

		l := limiters.Upsert(ctx.ClientIP(), nil, func(exist bool, old, _ *rateLimiter) *rateLimiter {
			if exist {
				return old
			}
			return &rateLimiter{limiter: rate.NewLimiter(limit, burst)}
		})
		if !l.allow(now) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}

		ctx.Next()
	}
}
