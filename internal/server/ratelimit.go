package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 3 * time.Minute

// rateLimiter allows perMinute requests per client IP.
type rateLimiter struct {
	perMinute int
	mu        sync.Mutex
	clients   map[string]*client
	lastPrune time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*client),
		now:       time.Now,
	}
}

func (l *rateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdle {
				delete(l.clients, key)
			}
		}
		l.lastPrune = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *rateLimiter) message() string {
	return fmt.Sprintf("Rate limit exceeded: %d per 1 minute", l.perMinute)
}

// clientIP is the host of the connection peer. The first X-Forwarded-For hop
// is used instead only when trustProxy is set, since any client can send it.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
