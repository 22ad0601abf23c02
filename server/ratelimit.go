package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const clientIdleTimeout = 3 * time.Minute

// ipRateLimiter enforces a per-client request budget. Clients are
// keyed the way the upstream proxy sees them: the first
// X-Forwarded-For hop when present, the socket address otherwise.
type ipRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// perMinute builds a limiter allowing n requests per client per minute.
func perMinute(n int) *ipRateLimiter {
	return &ipRateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(n)),
		burst:   n,
		clients: make(map[string]*clientLimiter),
	}
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *ipRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.clients[key]
	if !ok {
		// New clients pay for the cleanup of idle ones.
		for k, v := range l.clients {
			if now.Sub(v.lastSeen) > clientIdleTimeout {
				delete(l.clients, k)
			}
		}
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

func (l *ipRateLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			httpError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		next(w, r)
	}
}
