package usecase

import (
	"context"
	"errors"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/fixture"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
)

var errStubNotConfigured = errors.New("stub call not configured")

// stubProvider implements StatsProvider with per-method hooks.
type stubProvider struct {
	fetchBootstrap func(ctx context.Context) (reference.Snapshot, error)
	fetchEntry     func(ctx context.Context, teamID int64) (ExternalEntry, error)
	fetchPicks     func(ctx context.Context, teamID int64, gameweek int) (ExternalPicks, error)
	fetchStandings func(ctx context.Context, leagueID int64, page int) (ExternalStandingsPage, error)
	fetchFixtures  func(ctx context.Context, gameweek int) ([]fixture.Fixture, error)
}

func (s *stubProvider) FetchBootstrap(ctx context.Context) (reference.Snapshot, error) {
	if s.fetchBootstrap == nil {
		return reference.Snapshot{}, errStubNotConfigured
	}
	return s.fetchBootstrap(ctx)
}

func (s *stubProvider) FetchEntry(ctx context.Context, teamID int64) (ExternalEntry, error) {
	if s.fetchEntry == nil {
		return ExternalEntry{}, errStubNotConfigured
	}
	return s.fetchEntry(ctx, teamID)
}

func (s *stubProvider) FetchPicks(ctx context.Context, teamID int64, gameweek int) (ExternalPicks, error) {
	if s.fetchPicks == nil {
		return ExternalPicks{}, errStubNotConfigured
	}
	return s.fetchPicks(ctx, teamID, gameweek)
}

func (s *stubProvider) FetchStandingsPage(ctx context.Context, leagueID int64, page int) (ExternalStandingsPage, error) {
	if s.fetchStandings == nil {
		return ExternalStandingsPage{}, errStubNotConfigured
	}
	return s.fetchStandings(ctx, leagueID, page)
}

func (s *stubProvider) FetchFixturesByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
	if s.fetchFixtures == nil {
		return nil, errStubNotConfigured
	}
	return s.fetchFixtures(ctx, gameweek)
}

// stubCompletion implements CompletionClient with a single hook.
type stubCompletion struct {
	complete func(ctx context.Context, messages []advisor.Message) (Completion, error)
}

func (s *stubCompletion) Complete(ctx context.Context, messages []advisor.Message) (Completion, error) {
	if s.complete == nil {
		return Completion{}, errStubNotConfigured
	}
	return s.complete(ctx, messages)
}
