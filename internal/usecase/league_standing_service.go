package usecase

import (
	"context"
	"fmt"

	"github.com/barqyst/fpl-advisor/internal/domain/standings"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

const defaultMaxStandingsPages = 10

// LeagueStandingService assembles classic-league tables from the provider's
// paginated standings resource.
type LeagueStandingService struct {
	provider StatsProvider
	logger   *logging.Logger
}

func NewLeagueStandingService(provider StatsProvider, logger *logging.Logger) *LeagueStandingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeagueStandingService{provider: provider, logger: logger}
}

// Collect walks the league's standings pages strictly in order, one request
// at a time, and accumulates rows in the order the provider returns them.
// The walk stops when the provider reports no further page or when maxPages
// is reached. Any page failure aborts the whole collection; a partial table
// is never returned.
func (s *LeagueStandingService) Collect(ctx context.Context, leagueID int64, maxPages int) (standings.Table, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueStandingService.Collect")
	defer span.End()

	if leagueID <= 0 {
		return standings.Table{}, fmt.Errorf("%w: league id must be greater than zero", ErrInvalidInput)
	}
	if maxPages <= 0 {
		maxPages = defaultMaxStandingsPages
	}

	var table standings.Table
	for page := 1; page <= maxPages; page++ {
		result, err := s.provider.FetchStandingsPage(ctx, leagueID, page)
		if err != nil {
			return standings.Table{}, fmt.Errorf("collect standings league_id=%d page=%d: %w", leagueID, page, err)
		}

		if page == 1 {
			table.League = result.League
		}
		table.Rows = append(table.Rows, result.Rows...)
		table.Pages = page

		if !result.HasNext {
			table.Complete = true
			break
		}
	}

	if !table.Complete {
		s.logger.InfoContext(ctx, "standings collection stopped at page cap",
			"league_id", leagueID, "pages", table.Pages, "rows", len(table.Rows))
	}

	return table, nil
}

// ImportLeague fetches the league's metadata together with its full table.
func (s *LeagueStandingService) ImportLeague(ctx context.Context, leagueID int64) (standings.League, standings.Table, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueStandingService.ImportLeague")
	defer span.End()

	table, err := s.Collect(ctx, leagueID, defaultMaxStandingsPages)
	if err != nil {
		return standings.League{}, standings.Table{}, err
	}
	return table.League, table, nil
}
