package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type ipLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按 IP 维护令牌桶，空闲超过 ttl 的条目在下一次清扫时移除
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	every     time.Duration
	lastSweep time.Time
	entries   map[string]*ipLimiter
}

func newLimiterSet(perSecond float64, burst int, ttl, every time.Duration) *limiterSet {
	return &limiterSet{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     ttl,
		every:   every,
		entries: make(map[string]*ipLimiter),
	}
}

func (s *limiterSet) allow(ip string, now time.Time) bool {
	s.mu.Lock()
	if now.Sub(s.lastSweep) >= s.every {
		s.sweep(now)
	}
	e, ok := s.entries[ip]
	if !ok {
		e = &ipLimiter{lim: rate.NewLimiter(s.limit, s.burst)}
		s.entries[ip] = e
	}
	e.lastSeen = now
	s.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// sweep 调用方持有锁
func (s *limiterSet) sweep(now time.Time) {
	for ip, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, ip)
		}
	}
	s.lastSweep = now
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RateLimit 设备端旧接口按客户端 IP 限流，超限返回 429 与旧接口格式的错误体
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	set := newLimiterSet(perSecond, burst, limiterIdleTTL, limiterSweepEvery)

	return func(c *gin.Context) {
		if !set.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "Demasiadas solicitudes",
			})
			return
		}
		c.Next()
	}
}
