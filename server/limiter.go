package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Desarso/docassist/metrics"
)

const (
	defaultRPS   = 5
	defaultBurst = 10
)

// limiterPool keeps one token bucket per client address.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// rateLimit rejects clients that exceed their bucket with 429.
func rateLimit(pool *limiterPool, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		if m != nil {
			m.RateLimited.Inc()
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please slow down"})
	}
}
