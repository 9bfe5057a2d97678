/*
Package limiter provides connection rate limiting based on client IP addresses.

It utilizes the Token Bucket algorithm (rate.Limiter) to control how fast each
remote address may open new chat connections and includes a cleanup goroutine
that periodically removes inactive limiters, preventing memory leaks.
*/
package limiter

import (
	"net"
	"sync"
	"time"

	"rasel/internal/pkg/logx"

	"golang.org/x/time/rate"
)

// IPRateLimiter implements a connection rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu *sync.RWMutex

	// limits stores the map from client IP address to its *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the rate (rate.Limit) of the limiter, events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket capacity).
	b int
}

// NewIPRateLimiter creates and returns a new IPRateLimiter instance.
// It accepts rate r and burst capacity b, and starts a background goroutine to
// periodically clean up inactive limiters.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		mu:     &sync.RWMutex{},
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanUpVisitors()

	return i
}

// getLimiter retrieves the rate limiter for the given IP address, creating one
// on first sight. Double-checked locking keeps creation concurrent-safe.
func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// Allow reports whether a new connection from the given remote address (as
// returned by net.Conn.RemoteAddr) is within the rate limit.
func (i *IPRateLimiter) Allow(remoteAddr string) bool {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}

	return i.getLimiter(ip).Allow()
}

// cleanUpVisitors periodically removes limiters whose token bucket is full,
// meaning the address has been idle long enough to be forgotten.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		count := 0
		for ip, limiter := range i.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(i.limits, ip)
				count++
			}
		}
		remaining := len(i.limits)
		i.mu.Unlock()
		logx.Debug("Rate limiter cleanup finished.", "removed", count, "remaining", remaining)
	}
}
