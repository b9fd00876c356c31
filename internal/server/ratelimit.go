package server

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-client limiter keyed by IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*windowState
	limit   int
	window  time.Duration
}

type windowState struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*windowState),
		limit:   limit,
		window:  window,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window * 2)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, state := range rl.clients {
			if now.After(state.windowEnd) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	state, exists := rl.clients[ip]
	if !exists || now.After(state.windowEnd) {
		rl.clients[ip] = &windowState{count: 1, windowEnd: now.Add(rl.window)}
		return true
	}

	if state.count >= rl.limit {
		return false
	}
	state.count++
	return true
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// NewAuthRateLimiter limits login/register to 5 requests per minute.
func NewAuthRateLimiter() *RateLimiter {
	return NewRateLimiter(5, time.Minute)
}

// NewAPIRateLimiter limits general API traffic to 100 requests per minute.
func NewAPIRateLimiter() *RateLimiter {
	return NewRateLimiter(100, time.Minute)
}
