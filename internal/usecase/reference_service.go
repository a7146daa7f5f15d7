package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
	"github.com/barqyst/fpl-advisor/internal/platform/resilience"
)

const defaultReferenceTTL = 10 * time.Minute

// ReferenceService serves the shared reference snapshot from a single cache
// slot with wholesale replacement on expiry. Concurrent refreshes of an
// expired slot are coalesced so the upstream quota is spent once per expiry,
// not once per caller.
type ReferenceService struct {
	provider StatsProvider
	logger   *logging.Logger
	ttl      time.Duration
	now      func() time.Time

	flight resilience.SingleFlight

	mu       sync.RWMutex
	snapshot reference.Snapshot
	cached   bool
}

type ReferenceServiceOption func(*ReferenceService)

// WithReferenceTTL overrides the snapshot freshness window.
func WithReferenceTTL(ttl time.Duration) ReferenceServiceOption {
	return func(s *ReferenceService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithReferenceClock injects the time source, for tests.
func WithReferenceClock(now func() time.Time) ReferenceServiceOption {
	return func(s *ReferenceService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewReferenceService(provider StatsProvider, logger *logging.Logger, opts ...ReferenceServiceOption) *ReferenceService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &ReferenceService{
		provider: provider,
		logger:   logger,
		ttl:      defaultReferenceTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the cached reference dataset, refreshing it when the
// freshness window has elapsed. A failed refresh propagates to every caller
// that waited on it; the previous snapshot is never served past its TTL.
func (s *ReferenceService) Snapshot(ctx context.Context) (reference.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReferenceService.Snapshot")
	defer span.End()

	if snapshot, ok := s.fresh(); ok {
		return snapshot, nil
	}

	value, err, shared := s.flight.Do("bootstrap", func() (any, error) {
		// A refresh that completed while this caller queued for the
		// leader slot is still fresh; reuse it.
		if snapshot, ok := s.fresh(); ok {
			return snapshot, nil
		}
		return s.refresh(ctx)
	})
	if err != nil {
		return reference.Snapshot{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "reference refresh coalesced")
	}
	return value.(reference.Snapshot), nil
}

// Invalidate drops the cached snapshot so the next caller refreshes.
func (s *ReferenceService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = false
	s.snapshot = reference.Snapshot{}
}

func (s *ReferenceService) fresh() (reference.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.cached {
		return reference.Snapshot{}, false
	}
	if s.now().Sub(s.snapshot.FetchedAt) >= s.ttl {
		return reference.Snapshot{}, false
	}
	return s.snapshot, true
}

func (s *ReferenceService) refresh(ctx context.Context) (reference.Snapshot, error) {
	snapshot, err := s.provider.FetchBootstrap(ctx)
	if err != nil {
		return reference.Snapshot{}, fmt.Errorf("refresh reference snapshot: %w", err)
	}
	snapshot.FetchedAt = s.now()

	s.mu.Lock()
	s.snapshot = snapshot
	s.cached = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "reference snapshot refreshed",
		"players", len(snapshot.Players), "teams", len(snapshot.Teams), "gameweeks", len(snapshot.Gameweeks))
	return snapshot, nil
}
