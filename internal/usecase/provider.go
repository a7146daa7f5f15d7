package usecase

import (
	"context"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/fixture"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/domain/standings"
)

// ExternalEntry is the upstream summary for one fantasy team. Monetary
// fields are in tenths of a currency unit, as reported by the provider.
type ExternalEntry struct {
	ID            int64
	Name          string
	ManagerName   string
	OverallPoints int
	OverallRank   int
	CurrentEvent  int
	Bank          int
	Value         int
}

// ExternalPicks is one gameweek's squad selection for a fantasy team.
type ExternalPicks struct {
	PlayerIDs      []int64
	EventTransfers int
}

// ExternalStandingsPage is one page of a paginated classic-league table.
type ExternalStandingsPage struct {
	League  standings.League
	Rows    []standings.Row
	HasNext bool
	Page    int
}

// Completion is a model answer plus token accounting.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionClient produces chat completions. Implementations own retry
// policy and tag failures with the usecase sentinels at the point the
// upstream status is known: ErrUnauthorized and ErrInvalidInput are never
// retried, everything else may be.
type CompletionClient interface {
	Complete(ctx context.Context, messages []advisor.Message) (Completion, error)
}

// StatsProvider is the upstream statistics API boundary. Implementations
// enforce the shared outbound throttle; callers own retry policy.
type StatsProvider interface {
	FetchBootstrap(ctx context.Context) (reference.Snapshot, error)
	FetchEntry(ctx context.Context, teamID int64) (ExternalEntry, error)
	FetchPicks(ctx context.Context, teamID int64, gameweek int) (ExternalPicks, error)
	FetchStandingsPage(ctx context.Context, leagueID int64, page int) (ExternalStandingsPage, error)
	FetchFixturesByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error)
}
