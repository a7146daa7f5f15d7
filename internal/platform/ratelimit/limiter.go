package ratelimit

import (
	"sync"
	"time"
)

// Config describes one named fixed-window policy. Distinct endpoints share
// the limiter algorithm with different (Max, Window) tuples.
type Config struct {
	Name   string
	Max    int
	Window time.Duration
}

// Result is the outcome of a single check. The request that crosses the
// threshold is itself rejected, but still counted.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is an in-memory fixed-window request counter keyed by caller
// identity. A background sweep drops expired windows to bound memory growth.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

const defaultSweepInterval = 5 * time.Minute

func NewLimiter() *Limiter {
	l := &Limiter{
		windows:    make(map[string]*window),
		now:        time.Now,
		sweepEvery: defaultSweepInterval,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Check counts one request against the key's current window and reports
// whether it is allowed under cfg.
func (l *Limiter) Check(cfg Config, key string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(cfg.Window)}
		l.windows[key] = w
	}

	w.count++

	remaining := cfg.Max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.count <= cfg.Max,
		Limit:     cfg.Max,
		Remaining: remaining,
		ResetTime: w.resetAt,
	}
}

// Close stops the background sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
	l.mu.Unlock()
}
