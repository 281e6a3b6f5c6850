package middleware

import (
	"net/http"
	"sync"
	"yoloweb/internal/logger"
	"yoloweb/internal/response"

	"golang.org/x/time/rate"
)

var ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "Too many requests")

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     sync.Mutex
	logger    *logger.Logger
}

func NewRateLimiter(reqRate float64, burstSize int, logger *logger.Logger) *RateLimiter {
	return &RateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      rate.Limit(reqRate),
		burstSize: burstSize,
		logger:    logger,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if _, exist := rl.bucket[ip]; !exist {
		rl.bucket[ip] = rate.NewLimiter(rl.rate, rl.burstSize)
	}
	return rl.bucket[ip]
}

// Limit rejects requests over the client's budget with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.limiterFor(ip).Allow() {
			rl.logger.Warning("Too many requests for IP %s", ip)
			response.Fail(w, ErrTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
