package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-key rate limiter. Keyed by client IP
// unless the route supplies its own key (for example the authed user).
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	window  time.Duration
	limit   int
	done    chan struct{}
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing limit requests per key per
// window. A background janitor drops idle windows; call Close to stop it.
func NewRateLimiter(windowSize time.Duration, limit int) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		window:  windowSize,
		limit:   limit,
		done:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Allow reports whether key may make another request in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, w := range rl.windows {
				if now.Sub(w.start) >= rl.window {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the janitor goroutine.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

// RateLimit wraps a handler with rl. keyFunc derives the limiter key
// from the request; nil means client IP.
func RateLimit(rl *RateLimiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = clientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(keyFunc(r)) {
				w.Header().Set("Retry-After", rl.window.String())
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
