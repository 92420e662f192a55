package api

import (
	"sync"
	"time"
)

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter is an in-memory token bucket per client. Each client gets limit
// tokens per window, refilled continuously.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter starts a limiter. Close stops its cleanup loop.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow consumes one token of client and reports whether one was left.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[client]
	if !ok {
		l.buckets[client] = &bucket{tokens: float64(l.limit - 1), lastCheck: now}
		return true
	}

	elapsed := now.Sub(b.lastCheck)
	b.lastCheck = now
	b.tokens += elapsed.Seconds() * float64(l.limit) / l.window.Seconds()
	if b.tokens > float64(l.limit) {
		b.tokens = float64(l.limit)
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Close stops the cleanup loop.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// cleanup drops buckets idle for two windows.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		cutoff := l.now().Add(-2 * l.window)
		for client, b := range l.buckets {
			if b.lastCheck.Before(cutoff) {
				delete(l.buckets, client)
			}
		}
		l.mu.Unlock()
	}
}
