package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter caps anonymous form submissions (login, set/forgot/reset
// password, contact) per client IP. Each IP gets a fixed window of attempts;
// the window starts with the first attempt.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow
	limit    int
	window   time.Duration
	now      func() time.Time
}

type attemptWindow struct {
	count   int
	startAt time.Time
}

// NewRateLimiter allows limit attempts per IP in each window and starts a
// background sweep of idle entries.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]*attemptWindow),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go rl.sweep()
	return rl
}

// SetClock replaces the time source
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

// Allow records an attempt from ip and reports whether it is within the limit
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.attempts[ip]
	if !ok || now.Sub(w.startAt) >= rl.window {
		w = &attemptWindow{startAt: now}
		rl.attempts[ip] = w
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.removeIdle()
	}
}

// removeIdle drops windows that ended more than one window ago
func (rl *RateLimiter) removeIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, w := range rl.attempts {
		if now.Sub(w.startAt) > 2*rl.window {
			delete(rl.attempts, ip)
		}
	}
}

// GetClientIP extracts the client IP from the request
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (when behind proxy); the first entry is the client
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr without the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
