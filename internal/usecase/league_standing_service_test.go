package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/barqyst/fpl-advisor/internal/domain/standings"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

func standingsPage(leagueID int64, page, rows int, hasNext bool) ExternalStandingsPage {
	out := ExternalStandingsPage{
		League:  standings.League{ID: leagueID, Name: "Office League"},
		HasNext: hasNext,
		Page:    page,
	}
	for i := 0; i < rows; i++ {
		rank := (page-1)*rows + i + 1
		out.Rows = append(out.Rows, standings.Row{
			EntryID: int64(1000 + rank),
			Rank:    rank,
			Total:   500 - rank,
		})
	}
	return out
}

func TestLeagueStandingService_CollectWalksUntilLastPage(t *testing.T) {
	t.Parallel()

	var pagesSeen []int
	provider := &stubProvider{
		fetchStandings: func(_ context.Context, leagueID int64, page int) (ExternalStandingsPage, error) {
			pagesSeen = append(pagesSeen, page)
			return standingsPage(leagueID, page, 2, page < 3), nil
		},
	}

	svc := NewLeagueStandingService(provider, logging.NewNop())
	table, err := svc.Collect(context.Background(), 77, 10)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if len(pagesSeen) != 3 {
		t.Fatalf("unexpected pages fetched: %v", pagesSeen)
	}
	for i, page := range pagesSeen {
		if page != i+1 {
			t.Fatalf("pages fetched out of order: %v", pagesSeen)
		}
	}
	if len(table.Rows) != 6 {
		t.Fatalf("unexpected row count: %d", len(table.Rows))
	}
	for i, row := range table.Rows {
		if row.Rank != i+1 {
			t.Fatalf("rows out of page order at index %d: %+v", i, row)
		}
	}
	if !table.Complete || table.Pages != 3 {
		t.Fatalf("table bookkeeping wrong: complete=%v pages=%d", table.Complete, table.Pages)
	}
	if table.League.Name != "Office League" {
		t.Fatalf("league metadata not taken from first page: %+v", table.League)
	}
}

func TestLeagueStandingService_CollectStopsAtPageCap(t *testing.T) {
	t.Parallel()

	var fetched int
	provider := &stubProvider{
		fetchStandings: func(_ context.Context, leagueID int64, page int) (ExternalStandingsPage, error) {
			fetched++
			return standingsPage(leagueID, page, 1, true), nil
		},
	}

	svc := NewLeagueStandingService(provider, logging.NewNop())
	table, err := svc.Collect(context.Background(), 77, 0)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if fetched != 10 {
		t.Fatalf("default page cap not applied: fetched=%d", fetched)
	}
	if table.Complete {
		t.Fatal("capped walk must not be marked complete")
	}
	if len(table.Rows) != 10 {
		t.Fatalf("unexpected row count: %d", len(table.Rows))
	}
}

func TestLeagueStandingService_PageFailureAbortsWithoutPartialResult(t *testing.T) {
	t.Parallel()

	boom := errors.New("page unavailable")
	provider := &stubProvider{
		fetchStandings: func(_ context.Context, leagueID int64, page int) (ExternalStandingsPage, error) {
			if page == 2 {
				return ExternalStandingsPage{}, boom
			}
			return standingsPage(leagueID, page, 3, true), nil
		},
	}

	svc := NewLeagueStandingService(provider, logging.NewNop())
	table, err := svc.Collect(context.Background(), 77, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped page error, got: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Fatalf("partial rows leaked on failure: %d", len(table.Rows))
	}
}

func TestLeagueStandingService_RejectsInvalidLeagueID(t *testing.T) {
	t.Parallel()

	svc := NewLeagueStandingService(&stubProvider{}, logging.NewNop())
	if _, err := svc.Collect(context.Background(), 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
}

func TestLeagueStandingService_ImportLeagueReturnsMetadata(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		fetchStandings: func(_ context.Context, leagueID int64, page int) (ExternalStandingsPage, error) {
			return standingsPage(leagueID, page, 2, false), nil
		},
	}

	svc := NewLeagueStandingService(provider, logging.NewNop())
	league, table, err := svc.ImportLeague(context.Background(), 314)
	if err != nil {
		t.Fatalf("import league: %v", err)
	}
	if league.ID != 314 || league.Name != "Office League" {
		t.Fatalf("unexpected league metadata: %+v", league)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("unexpected table rows: %d", len(table.Rows))
	}
}
