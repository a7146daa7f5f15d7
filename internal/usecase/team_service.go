package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barqyst/fpl-advisor/internal/domain/team"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

const (
	minImportTeamID = 1
	maxImportTeamID = 10_000_000

	// Reserved id handed to unauthenticated visitors; it never maps to a
	// real upstream entry.
	guestTeamID = 999_999
)

// TeamService imports fantasy teams from the provider and persists them as
// internal records.
type TeamService struct {
	provider  StatsProvider
	reference *ReferenceService
	repo      team.Repository
	logger    *logging.Logger
	now       func() time.Time
}

func NewTeamService(provider StatsProvider, reference *ReferenceService, repo team.Repository, logger *logging.Logger) *TeamService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamService{
		provider:  provider,
		reference: reference,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

// ValidateTeamID checks the id bounds before any network call is spent.
func ValidateTeamID(teamID int64) error {
	if teamID < minImportTeamID || teamID > maxImportTeamID {
		return fmt.Errorf("%w: team id must be between %d and %d", ErrInvalidInput, minImportTeamID, maxImportTeamID)
	}
	if teamID == guestTeamID {
		return fmt.Errorf("%w: guest team id cannot be imported", ErrInvalidInput)
	}
	return nil
}

// Import fetches the team's summary and current squad, converts provider
// units to internal ones, and persists the record for the user. A missing
// upstream team surfaces as ErrNotFound; a failed picks fetch degrades the
// record instead of aborting the import.
func (s *TeamService) Import(ctx context.Context, userID string, teamID int64) (team.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Import")
	defer span.End()

	if err := ValidateTeamID(teamID); err != nil {
		return team.Record{}, err
	}

	entry, err := s.provider.FetchEntry(ctx, teamID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return team.Record{}, fmt.Errorf("%w: fantasy team %d does not exist", ErrNotFound, teamID)
		}
		return team.Record{}, fmt.Errorf("import team %d: %w", teamID, err)
	}

	gameweek := s.currentGameweek(ctx, entry)
	squad := s.fetchSquad(ctx, teamID, gameweek)

	record := team.Record{
		FPLTeamID:     entry.ID,
		Name:          entry.Name,
		SquadPlayers:  squad.PlayerIDs,
		BankValue:     float64(entry.Bank) / 10.0,
		TeamValue:     float64(entry.Value) / 10.0,
		TotalPoints:   entry.OverallPoints,
		OverallRank:   entry.OverallRank,
		FreeTransfers: team.DefaultFreeTransfers,
		SquadDegraded: squad.Degraded,
		SyncedAt:      s.now().UTC(),
	}

	if err := s.repo.Upsert(ctx, userID, record); err != nil {
		return team.Record{}, fmt.Errorf("persist team %d: %w", teamID, err)
	}

	s.logger.InfoContext(ctx, "team imported",
		"team_id", teamID, "gameweek", gameweek, "squad_degraded", squad.Degraded)
	return record, nil
}

// Latest returns the user's most recently imported record.
func (s *TeamService) Latest(ctx context.Context, userID string) (team.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Latest")
	defer span.End()

	record, found, err := s.repo.GetLatestByUser(ctx, userID)
	if err != nil {
		return team.Record{}, fmt.Errorf("load latest team: %w", err)
	}
	if !found {
		return team.Record{}, fmt.Errorf("%w: no imported team for user", ErrNotFound)
	}
	return record, nil
}

// currentGameweek prefers the entry's own current event and falls back to
// the reference snapshot, then to the season opener.
func (s *TeamService) currentGameweek(ctx context.Context, entry ExternalEntry) int {
	if entry.CurrentEvent > 0 {
		return entry.CurrentEvent
	}
	if snapshot, err := s.reference.Snapshot(ctx); err == nil {
		if gw, ok := snapshot.CurrentGameweek(); ok {
			return gw.ID
		}
	}
	return 1
}

// fetchSquad is best effort: the picks endpoint regularly 404s before a
// team's first deadline, and a record without a squad is still useful.
func (s *TeamService) fetchSquad(ctx context.Context, teamID int64, gameweek int) team.SquadResult {
	picks, err := s.provider.FetchPicks(ctx, teamID, gameweek)
	if err != nil {
		s.logger.WarnContext(ctx, "squad fetch degraded",
			"team_id", teamID, "gameweek", gameweek, "error", err)
		return team.SquadResult{Degraded: true, Reason: fmt.Sprintf("picks unavailable for gameweek %d", gameweek)}
	}
	return team.SquadResult{PlayerIDs: picks.PlayerIDs}
}
