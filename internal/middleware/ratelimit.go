package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/handler"
)

type rateLimiter struct {
	sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit enforces a per-IP token bucket. Stale buckets are evicted in
// the background.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
	}
	go rl.cleanup()

	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.Unlock()

	return v.limiter.Allow()
}

func (rl *rateLimiter) cleanup() {
	for range time.Tick(time.Minute) {
		rl.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.Unlock()
	}
}
