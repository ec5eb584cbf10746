// Per-client limiter for the compute-bound endpoints. A sweep request can
// burn seconds of CPU, so each client gets a fixed request allowance per
// window rather than a queue.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SweepLimiter grants each client key a fixed number of requests per window.
type SweepLimiter struct {
	mu        sync.Mutex
	allowance map[string]*windowState
	limit     int
	window    time.Duration
}

type windowState struct {
	remaining int
	opened    time.Time
}

// NewSweepLimiter returns a limiter allowing limit requests per window.
func NewSweepLimiter(limit int, window time.Duration) *SweepLimiter {
	return &SweepLimiter{
		allowance: make(map[string]*windowState),
		limit:     limit,
		window:    window,
	}
}

// Take consumes one request from the client's allowance. It reports whether
// the request may proceed and, when denied, the seconds until the window
// reopens.
func (l *SweepLimiter) Take(key string) (ok bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	st, found := l.allowance[key]
	if !found || now.Sub(st.opened) >= l.window {
		// Opportunistic sweep of stale windows keeps the map bounded
		// without a background goroutine.
		for k, s := range l.allowance {
			if now.Sub(s.opened) >= 2*l.window {
				delete(l.allowance, k)
			}
		}
		l.allowance[key] = &windowState{remaining: l.limit - 1, opened: now}
		return true, 0
	}

	if st.remaining > 0 {
		st.remaining--
		return true, 0
	}

	wait := l.window - now.Sub(st.opened)
	return false, int(wait.Seconds()) + 1
}

// SweepLimitMiddleware rejects over-allowance clients with 429.
func SweepLimitMiddleware(l *SweepLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.Take(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientKey identifies the caller: the first X-Forwarded-For hop when
// proxied, otherwise the remote address without its port.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
