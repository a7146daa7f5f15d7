package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/barqyst/fpl-advisor/internal/domain/team"
)

// TeamRepository keeps imported team records in memory, one per user. Used
// in tests and when running without a database.
type TeamRepository struct {
	mu      sync.RWMutex
	records map[string]team.Record
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{records: make(map[string]team.Record)}
}

func (r *TeamRepository) Upsert(_ context.Context, userID string, record team.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = record
	return nil
}

func (r *TeamRepository) GetLatestByUser(_ context.Context, userID string) (team.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[userID]
	return record, ok, nil
}

func (r *TeamRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.records))
	for userID := range r.records {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids, nil
}
