package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	log      *zap.Logger
	now      func() time.Time
}

func NewIPRateLimiter(r rate.Limit, burst int, log *zap.Logger) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		log:      log,
		now:      time.Now,
	}
}

// NewAuthRateLimiter allows perMinute requests per minute per IP on the
// login and registration endpoints.
func NewAuthRateLimiter(perMinute int, log *zap.Logger) *IPRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return NewIPRateLimiter(rate.Limit(float64(perMinute)/60.0), perMinute, log)
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Sweep forgets IPs idle for longer than idle.
func (l *IPRateLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *IPRateLimiter) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(idle)
		}
	}
}

func (l *IPRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim := l.limiter(ip)
		if !lim.Allow() {
			l.log.Warn("rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			retry := 1
			if l.rate > 0 {
				retry = int(math.Ceil(1 / float64(l.rate)))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
