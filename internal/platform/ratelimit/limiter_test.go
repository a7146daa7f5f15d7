package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func newTestLimiter(now time.Time) (*Limiter, *time.Time) {
	current := now
	l := &Limiter{
		windows:    make(map[string]*window),
		now:        func() time.Time { return current },
		sweepEvery: time.Hour,
		stop:       make(chan struct{}),
	}
	return l, &current
}

func TestLimiter_RejectsBeyondMaxWithinWindow(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	cfg := Config{Name: "test", Max: 3, Window: time.Minute}

	for i := 1; i <= cfg.Max; i++ {
		res := l.Check(cfg, "ip:10.0.0.1")
		if !res.Allowed {
			t.Fatalf("request %d rejected, want allowed", i)
		}
		if res.Remaining != cfg.Max-i {
			t.Fatalf("request %d remaining: got=%d want=%d", i, res.Remaining, cfg.Max-i)
		}
	}

	res := l.Check(cfg, "ip:10.0.0.1")
	if res.Allowed {
		t.Fatal("request max+1 allowed, want rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("rejected request remaining: got=%d want=0", res.Remaining)
	}

	// Subsequent requests in the same window stay rejected.
	if res := l.Check(cfg, "ip:10.0.0.1"); res.Allowed {
		t.Fatal("request max+2 allowed, want rejected")
	}
}

func TestLimiter_WindowResetRestoresBudget(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	cfg := Config{Name: "test", Max: 1, Window: time.Minute}

	if res := l.Check(cfg, "k"); !res.Allowed {
		t.Fatal("first request rejected")
	}
	if res := l.Check(cfg, "k"); res.Allowed {
		t.Fatal("second request allowed within window")
	}

	*clock = clock.Add(cfg.Window + time.Second)

	if res := l.Check(cfg, "k"); !res.Allowed {
		t.Fatal("request after window reset rejected")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	cfg := Config{Name: "test", Max: 1, Window: time.Minute}

	if res := l.Check(cfg, "ip:10.0.0.1"); !res.Allowed {
		t.Fatal("first key rejected")
	}
	if res := l.Check(cfg, "ip:10.0.0.2"); !res.Allowed {
		t.Fatal("second key rejected, windows must be per-key")
	}
}

func TestLimiter_SweepDropsExpiredWindows(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	cfg := Config{Name: "test", Max: 5, Window: time.Minute}

	for i := 0; i < 10; i++ {
		l.Check(cfg, fmt.Sprintf("ip:10.0.0.%d", i))
	}

	*clock = clock.Add(2 * time.Minute)
	l.sweep()

	l.mu.Lock()
	remaining := len(l.windows)
	l.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expired windows left after sweep: got=%d want=0", remaining)
	}
}

func TestNamedPolicies_DistinctAndBounded(t *testing.T) {
	t.Parallel()

	policies := []Config{PolicyAPI, PolicyReadOnly, PolicyExpensive, PolicyImport}
	seen := make(map[string]bool, len(policies))
	for _, cfg := range policies {
		if cfg.Name == "" || cfg.Max < 1 || cfg.Window <= 0 {
			t.Fatalf("policy %+v is not bounded", cfg)
		}
		if seen[cfg.Name] {
			t.Fatalf("policy name %q reused", cfg.Name)
		}
		seen[cfg.Name] = true
	}
}
