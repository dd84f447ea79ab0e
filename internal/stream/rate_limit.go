package stream

import (
	"sync"
)

const (
	defaultMaxPerIP = 10
	defaultMaxTotal = 1000
)

// streamLimiter bounds concurrent streams per client address and in
// total. SSE and WebSocket streams draw from the same limiter.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	open     int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	if maxPerIP <= 0 {
		maxPerIP = defaultMaxPerIP
	}
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotal
	}
	return &streamLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire takes a slot for ip. On success it returns a release func that
// gives the slot back; calling it more than once has no further effect.
func (l *streamLimiter) acquire(ip string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open >= l.maxTotal || l.perIP[ip] >= l.maxPerIP {
		return nil, false
	}
	l.perIP[ip]++
	l.open++

	var once sync.Once
	return func() { once.Do(func() { l.put(ip) }) }, true
}

func (l *streamLimiter) put(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.open--
	if n := l.perIP[ip] - 1; n > 0 {
		l.perIP[ip] = n
	} else {
		delete(l.perIP, ip)
	}
}

// count returns the open streams held by ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// total returns the open streams across all clients.
func (l *streamLimiter) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}
