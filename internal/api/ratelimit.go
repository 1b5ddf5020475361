// Per-caller budget for the admin endpoints that trigger full world work.
// A manual scan or damage tick walks every loaded cell, so each caller gets
// a fixed number of triggers per rolling window.
package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter grants each caller a fixed trigger budget per window.
type RateLimiter struct {
	mu      sync.Mutex
	budget  int
	window  time.Duration
	callers map[string]*callerState

	now func() time.Time // test hook
}

type callerState struct {
	used        int
	windowStart time.Time
}

// NewRateLimiter allows budget triggers per caller per window.
func NewRateLimiter(budget int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		budget:  budget,
		window:  window,
		callers: make(map[string]*callerState),
		now:     time.Now,
	}
}

// Allow consumes one trigger from the caller's budget. When the budget is
// spent it reports how long until the caller's window resets.
func (rl *RateLimiter) Allow(caller string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictStale(now)

	st, ok := rl.callers[caller]
	if !ok || now.Sub(st.windowStart) >= rl.window {
		rl.callers[caller] = &callerState{used: 1, windowStart: now}
		return true, 0
	}
	if st.used < rl.budget {
		st.used++
		return true, 0
	}
	return false, rl.window - now.Sub(st.windowStart)
}

// evictStale drops callers whose window expired long ago. Runs under the
// lock on every Allow; the caller map stays small enough that a cleanup
// goroutine would be overkill.
func (rl *RateLimiter) evictStale(now time.Time) {
	for caller, st := range rl.callers {
		if now.Sub(st.windowStart) > 2*rl.window {
			delete(rl.callers, caller)
		}
	}
}

// RateLimitMiddleware enforces rl per remote host. Replies 429 with a
// Retry-After header when the budget is spent.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := r.RemoteAddr
		if host, _, err := net.SplitHostPort(caller); err == nil {
			caller = host
		}

		ok, retry := rl.Allow(caller)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
