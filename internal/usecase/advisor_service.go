package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/fixture"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/domain/team"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

const (
	fixtureLookaheadPeriods = 5
	fixturesPerTeamIndex    = 5
	rankedPlayersPerGroup   = 5
	easyFixtureCap          = 20
	easyFixtureThreshold    = 2

	// Players below this many minutes have too small a sample to rank.
	minRankedMinutes = 100
	// Chance-of-playing cutoff for the ranked pool; a missing value means
	// the provider has no concern on record.
	minChanceNextRound = 75

	maxConversationTitle = 60
	historyMessageCap    = 10
)

// AskInput is one advisor chat turn.
type AskInput struct {
	UserID   string
	Question string
	History  []advisor.Message
}

// AskResult is the completed advisor answer. ContextDegraded is set when the
// grounding context could not be synthesized and the fallback prompt was
// used instead.
type AskResult struct {
	Answer          string
	Model           string
	TokensUsed      int
	ContextDegraded bool
	ConversationID  string
}

// AdvisorService synthesizes the grounded fantasy context and orchestrates
// chat completions over it.
type AdvisorService struct {
	reference     *ReferenceService
	provider      StatsProvider
	completion    CompletionClient
	teams         *TeamService
	conversations advisor.ConversationRepository
	logger        *logging.Logger
	now           func() time.Time
}

func NewAdvisorService(
	reference *ReferenceService,
	provider StatsProvider,
	completion CompletionClient,
	teams *TeamService,
	conversations advisor.ConversationRepository,
	logger *logging.Logger,
) *AdvisorService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdvisorService{
		reference:     reference,
		provider:      provider,
		completion:    completion,
		teams:         teams,
		conversations: conversations,
		logger:        logger,
		now:           time.Now,
	}
}

// BuildContext assembles the grounded dataset for one advisor request. The
// result is rebuilt per call and never cached; fixture fetches that fail are
// recorded as degraded periods and omitted rather than failing the whole
// synthesis.
func (s *AdvisorService) BuildContext(ctx context.Context) (advisor.Context, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdvisorService.BuildContext")
	defer span.End()

	snapshot, err := s.reference.Snapshot(ctx)
	if err != nil {
		return advisor.Context{}, fmt.Errorf("build advisor context: %w", err)
	}

	current, next := resolvePeriods(snapshot)
	fixtures, periodFetches := s.fetchFixtureWindow(ctx, next)

	teamFixtures := buildTeamFixtureIndex(fixtures, snapshot)

	out := advisor.Context{
		CurrentGameweek:    current,
		NextGameweek:       next,
		Season:             seasonLabel(s.now()),
		TopPlayers:         rankPlayers(snapshot, teamFixtures),
		AllFixtures:        renderFixtureRows(fixtures, snapshot),
		EasyFixtures:       easyFixtures(fixtures, snapshot),
		DefensiveRecords:   defensiveRecords(snapshot),
		UnavailablePlayers: unavailablePlayers(snapshot),
		PeriodFetches:      periodFetches,
	}
	return out, nil
}

// Ask grounds the question in a freshly synthesized context and sends it to
// the completion client. Context synthesis failure downgrades to the
// fallback prompt instead of failing the chat.
func (s *AdvisorService) Ask(ctx context.Context, input AskInput) (AskResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdvisorService.Ask")
	defer span.End()

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return AskResult{}, fmt.Errorf("%w: question must not be empty", ErrInvalidInput)
	}

	var record *team.Record
	if s.teams != nil && input.UserID != "" {
		if latest, err := s.teams.Latest(ctx, input.UserID); err == nil {
			record = &latest
		}
	}

	var degraded bool
	var system string
	fplContext, err := s.BuildContext(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "context synthesis failed, using fallback prompt", "error", err)
		degraded = true
		system = fallbackPrompt(seasonLabel(s.now()))
	} else {
		system = renderPrompt(fplContext, record)
	}

	messages := make([]advisor.Message, 0, len(input.History)+2)
	messages = append(messages, advisor.Message{Role: advisor.RoleSystem, Content: system})
	history := input.History
	if len(history) > historyMessageCap {
		history = history[len(history)-historyMessageCap:]
	}
	messages = append(messages, history...)
	messages = append(messages, advisor.Message{Role: advisor.RoleUser, Content: question})

	completion, err := s.completion.Complete(ctx, messages)
	if err != nil {
		return AskResult{}, fmt.Errorf("advisor completion: %w", err)
	}

	result := AskResult{
		Answer:          completion.Content,
		Model:           completion.Model,
		TokensUsed:      completion.TotalTokens,
		ContextDegraded: degraded,
	}

	if s.conversations != nil && input.UserID != "" {
		result.ConversationID = s.persistConversation(ctx, input.UserID, question, completion)
	}

	return result, nil
}

// Conversations lists the user's recent advisor exchanges.
func (s *AdvisorService) Conversations(ctx context.Context, userID string, limit int) ([]advisor.Conversation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdvisorService.Conversations")
	defer span.End()

	if s.conversations == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	list, err := s.conversations.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

func (s *AdvisorService) persistConversation(ctx context.Context, userID, question string, completion Completion) string {
	title := truncateTitle(question, maxConversationTitle)
	id, err := s.conversations.Create(ctx, advisor.Conversation{
		UserID: userID,
		Title:  title,
		Messages: []advisor.Message{
			{Role: advisor.RoleUser, Content: question},
			{Role: advisor.RoleAssistant, Content: completion.Content},
		},
		TokensUsed: completion.TotalTokens,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		// Persistence is auxiliary; the answer already exists.
		s.logger.WarnContext(ctx, "conversation persist failed", "error", err)
		return ""
	}
	return id
}

// truncateTitle cuts on a rune boundary so a multi-byte question never
// persists as invalid UTF-8.
func truncateTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// resolvePeriods reads the current/next flags and degrades to gameweek 1 and
// current+1 when the provider has not set them.
func resolvePeriods(snapshot reference.Snapshot) (current, next int) {
	current = 1
	if gw, ok := snapshot.CurrentGameweek(); ok {
		current = gw.ID
	}
	next = current + 1
	if gw, ok := snapshot.NextGameweek(); ok {
		next = gw.ID
	}
	return current, next
}

// fetchFixtureWindow pulls fixtures for the lookahead window starting at the
// next period. The fetches are issued concurrently; the shared outbound
// throttle still spaces the actual requests. A failed period is recorded and
// skipped.
func (s *AdvisorService) fetchFixtureWindow(ctx context.Context, next int) ([]advisor.FixtureRow, []advisor.PeriodFetch) {
	type periodResult struct {
		fetch    advisor.PeriodFetch
		fixtures []fixture.Fixture
		skipped  bool
	}
	results := make([]periodResult, fixtureLookaheadPeriods)

	var wg conc.WaitGroup
	for i := 0; i < fixtureLookaheadPeriods; i++ {
		i := i
		gw := next + i
		if gw < 1 {
			results[i].skipped = true
			continue
		}
		wg.Go(func() {
			fixtures, err := s.provider.FetchFixturesByGameweek(ctx, gw)
			if err != nil {
				s.logger.WarnContext(ctx, "fixture fetch degraded", "gameweek", gw, "error", err)
				results[i] = periodResult{fetch: advisor.PeriodFetch{Gameweek: gw, Degraded: true, Reason: shortReason(err)}}
				return
			}
			results[i] = periodResult{fetch: advisor.PeriodFetch{Gameweek: gw}, fixtures: fixtures}
		})
	}
	wg.Wait()

	var rows []advisor.FixtureRow
	fetches := make([]advisor.PeriodFetch, 0, fixtureLookaheadPeriods)
	for _, result := range results {
		if result.skipped {
			continue
		}
		fetches = append(fetches, result.fetch)
		for _, f := range result.fixtures {
			rows = append(rows, advisor.FixtureRow{
				Gameweek:       f.Gameweek,
				HomeTeamID:     f.HomeTeamID,
				AwayTeamID:     f.AwayTeamID,
				HomeDifficulty: f.HomeDifficulty,
				AwayDifficulty: f.AwayDifficulty,
				KickoffAt:      f.KickoffAt,
			})
		}
	}
	return rows, fetches
}

// buildTeamFixtureIndex maps each team to its upcoming fixtures, ordered by
// gameweek and truncated to the index cap.
func buildTeamFixtureIndex(rows []advisor.FixtureRow, snapshot reference.Snapshot) map[int64][]advisor.UpcomingFixture {
	index := make(map[int64][]advisor.UpcomingFixture, len(snapshot.Teams))

	sorted := make([]advisor.FixtureRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Gameweek < sorted[j].Gameweek })

	appendSide := func(teamID, opponentID int64, difficulty int, home bool, gw int) {
		if len(index[teamID]) >= fixturesPerTeamIndex {
			return
		}
		opponent := teamLabel(snapshot, opponentID)
		index[teamID] = append(index[teamID], advisor.UpcomingFixture{
			Gameweek:   gw,
			Opponent:   opponent,
			Home:       home,
			Difficulty: difficulty,
		})
	}

	for _, row := range sorted {
		appendSide(row.HomeTeamID, row.AwayTeamID, row.HomeDifficulty, true, row.Gameweek)
		appendSide(row.AwayTeamID, row.HomeTeamID, row.AwayDifficulty, false, row.Gameweek)
	}

	return index
}

func renderFixtureRows(rows []advisor.FixtureRow, snapshot reference.Snapshot) []advisor.FixtureRow {
	out := make([]advisor.FixtureRow, 0, len(rows))
	for _, row := range rows {
		row.HomeTeam = teamLabel(snapshot, row.HomeTeamID)
		row.AwayTeam = teamLabel(snapshot, row.AwayTeamID)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gameweek < out[j].Gameweek })
	return out
}

// easyFixtures lists every fixture side with a low difficulty rating. Home
// and away perspectives are separate rows.
func easyFixtures(rows []advisor.FixtureRow, snapshot reference.Snapshot) []advisor.EasyFixture {
	var out []advisor.EasyFixture
	sorted := make([]advisor.FixtureRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Gameweek < sorted[j].Gameweek })

	for _, row := range sorted {
		if len(out) >= easyFixtureCap {
			break
		}
		if row.HomeDifficulty > 0 && row.HomeDifficulty <= easyFixtureThreshold {
			out = append(out, advisor.EasyFixture{
				Gameweek:   row.Gameweek,
				Team:       teamLabel(snapshot, row.HomeTeamID),
				TeamID:     row.HomeTeamID,
				Opponent:   teamLabel(snapshot, row.AwayTeamID),
				Difficulty: row.HomeDifficulty,
				Home:       true,
			})
		}
		if len(out) >= easyFixtureCap {
			break
		}
		if row.AwayDifficulty > 0 && row.AwayDifficulty <= easyFixtureThreshold {
			out = append(out, advisor.EasyFixture{
				Gameweek:   row.Gameweek,
				Team:       teamLabel(snapshot, row.AwayTeamID),
				TeamID:     row.AwayTeamID,
				Opponent:   teamLabel(snapshot, row.HomeTeamID),
				Difficulty: row.AwayDifficulty,
				Home:       false,
			})
		}
	}
	return out
}

// defensiveRecords aggregates goals conceded from the snapshot and recomputes
// clean-sheet counts over each team's goalkeepers and defenders.
func defensiveRecords(snapshot reference.Snapshot) []advisor.DefensiveRecord {
	cleanSheets := make(map[int64]int, len(snapshot.Teams))
	for _, player := range snapshot.Players {
		if player.Position == reference.PositionGoalkeeper || player.Position == reference.PositionDefender {
			cleanSheets[player.TeamID] += player.CleanSheets
		}
	}

	out := make([]advisor.DefensiveRecord, 0, len(snapshot.Teams))
	for _, t := range snapshot.Teams {
		out = append(out, advisor.DefensiveRecord{
			TeamID:        t.ID,
			TeamName:      t.Name,
			GoalsConceded: t.GoalsConceded,
			CleanSheets:   cleanSheets[t.ID],
			Strength:      t.Strength,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GoalsConceded < out[j].GoalsConceded })
	return out
}

// unavailablePlayers lists everyone flagged with a non-available status and
// news text, regardless of the chance-of-playing value.
func unavailablePlayers(snapshot reference.Snapshot) []advisor.UnavailablePlayer {
	var out []advisor.UnavailablePlayer
	for _, player := range snapshot.Players {
		if player.Status == reference.StatusAvailable || strings.TrimSpace(player.News) == "" {
			continue
		}
		out = append(out, advisor.UnavailablePlayer{
			PlayerName: player.WebName,
			Team:       teamLabel(snapshot, player.TeamID),
			Status:     player.AvailabilityLabel(),
			News:       player.News,
		})
	}
	return out
}

// rankPlayers filters the snapshot to the available, meaningfully-used pool
// and ranks each position group with the position-aware comparator.
func rankPlayers(snapshot reference.Snapshot, teamFixtures map[int64][]advisor.UpcomingFixture) advisor.RankedLists {
	pools := map[int][]reference.Player{}
	for _, player := range snapshot.Players {
		if !inRankedPool(player) {
			continue
		}
		pools[player.Position] = append(pools[player.Position], player)
	}

	top := func(position int) []advisor.RankedPlayer {
		pool := pools[position]
		sort.SliceStable(pool, func(i, j int) bool {
			return rankLess(position, pool[i], pool[j])
		})
		if len(pool) > rankedPlayersPerGroup {
			pool = pool[:rankedPlayersPerGroup]
		}
		out := make([]advisor.RankedPlayer, 0, len(pool))
		for _, player := range pool {
			out = append(out, enrichPlayer(player, snapshot, teamFixtures))
		}
		return out
	}

	return advisor.RankedLists{
		Goalkeepers: top(reference.PositionGoalkeeper),
		Defenders:   top(reference.PositionDefender),
		Midfielders: top(reference.PositionMidfielder),
		Forwards:    top(reference.PositionForward),
	}
}

func inRankedPool(player reference.Player) bool {
	if player.Minutes <= minRankedMinutes {
		return false
	}
	if player.ChanceNextRound != nil && *player.ChanceNextRound < minChanceNextRound {
		return false
	}
	return true
}

// rankLess orders two same-position players. Clean sheets lead for the
// defensive positions, goal involvement for the attacking ones; form,
// points per game, and total points break ties in that order.
func rankLess(position int, a, b reference.Player) bool {
	switch position {
	case reference.PositionGoalkeeper, reference.PositionDefender:
		if a.CleanSheets != b.CleanSheets {
			return a.CleanSheets > b.CleanSheets
		}
	case reference.PositionMidfielder, reference.PositionForward:
		ai, bi := a.GoalsScored+a.Assists, b.GoalsScored+b.Assists
		if ai != bi {
			return ai > bi
		}
	}
	if a.Form != b.Form {
		return a.Form > b.Form
	}
	if a.PointsPerGame != b.PointsPerGame {
		return a.PointsPerGame > b.PointsPerGame
	}
	return a.TotalPoints > b.TotalPoints
}

func enrichPlayer(player reference.Player, snapshot reference.Snapshot, teamFixtures map[int64][]advisor.UpcomingFixture) advisor.RankedPlayer {
	teamName, shortName := teamLabel(snapshot, player.TeamID), ""
	if t, ok := snapshot.TeamByID(player.TeamID); ok {
		shortName = t.ShortName
	}
	return advisor.RankedPlayer{
		PlayerID:          player.ID,
		WebName:           player.WebName,
		Position:          player.Position,
		TeamName:          teamName,
		TeamShortName:     shortName,
		NowCost:           player.NowCost,
		TotalPoints:       player.TotalPoints,
		Form:              player.Form,
		PointsPerGame:     player.PointsPerGame,
		GoalsScored:       player.GoalsScored,
		Assists:           player.Assists,
		CleanSheets:       player.CleanSheets,
		Saves:             player.Saves,
		SelectedByPercent: player.SelectedByPercent,
		Availability:      player.AvailabilityLabel(),
		News:              player.News,
		UpcomingFixtures:  teamFixtures[player.TeamID],
	}
}

func teamLabel(snapshot reference.Snapshot, teamID int64) string {
	if t, ok := snapshot.TeamByID(teamID); ok {
		return t.Name
	}
	return fmt.Sprintf("Team %d", teamID)
}

// seasonLabel derives the season from the wall clock: August onwards belongs
// to the season starting that year.
func seasonLabel(now time.Time) string {
	year := now.Year()
	if now.Month() >= time.August {
		return fmt.Sprintf("%d/%d", year, year+1)
	}
	return fmt.Sprintf("%d/%d", year-1, year)
}

func shortReason(err error) string {
	const limit = 120
	msg := err.Error()
	if len(msg) > limit {
		return msg[:limit] + "..."
	}
	return msg
}
