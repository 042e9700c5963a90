package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is an in-process fixed-window limiter, used when no Redis is configured.
type RateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: map[string]*fixedWindow{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(limitKey(r)) {
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win := rl.windows[key]
	if win == nil || !now.Before(win.resetAt) {
		rl.windows[key] = &fixedWindow{count: 1, resetAt: now.Add(rl.window)}
		rl.evictExpired(now)
		return true
	}
	if win.count >= rl.limit {
		return false
	}
	win.count++
	return true
}

func (rl *RateLimiter) evictExpired(now time.Time) {
	for k, win := range rl.windows {
		if !now.Before(win.resetAt) {
			delete(rl.windows, k)
		}
	}
}

// limitKey buckets by tenant when the request carries one, otherwise by client address.
func limitKey(r *http.Request) string {
	if biz := BusinessID(r); biz != "" {
		return "biz:" + biz
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
