package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter enforces a fixed per-minute request budget per client.
// Counters live in a map keyed by client and epoch minute, so checks
// mostly take the read lock and unrelated clients never serialize on
// each other's counts. A background task prunes windows from past
// minutes.
type RateLimiter struct {
	mu      sync.RWMutex
	windows map[string]*atomic.Int64
	limit   int64
	now     func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*atomic.Int64),
		limit:   int64(perMinute),
		now:     time.Now,
	}
	go rl.prune()
	return rl
}

// Allow records one request for client and reports whether it fits
// the current minute's budget.
func (rl *RateLimiter) Allow(client string) bool {
	key := fmt.Sprintf("%s|%d", client, rl.now().Unix()/60)

	rl.mu.RLock()
	counter, ok := rl.windows[key]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		counter, ok = rl.windows[key]
		if !ok {
			counter = &atomic.Int64{}
			rl.windows[key] = counter
		}
		rl.mu.Unlock()
	}

	return counter.Add(1) <= rl.limit
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"status_code": http.StatusTooManyRequests,
				"detail":      "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) prune() {
	for {
		time.Sleep(time.Minute)
		current := rl.now().Unix() / 60
		suffix := fmt.Sprintf("|%d", current)

		rl.mu.Lock()
		for key := range rl.windows {
			if len(key) < len(suffix) || key[len(key)-len(suffix):] != suffix {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
