package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/fixture"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

type stubConversationRepo struct {
	created []advisor.Conversation
	fail    error
}

func (r *stubConversationRepo) Create(_ context.Context, conversation advisor.Conversation) (string, error) {
	if r.fail != nil {
		return "", r.fail
	}
	r.created = append(r.created, conversation)
	return "conv-1", nil
}

func (r *stubConversationRepo) ListByUser(_ context.Context, _ string, _ int) ([]advisor.Conversation, error) {
	return r.created, nil
}

func chance(v int) *int { return &v }

func synthSnapshot() reference.Snapshot {
	return reference.Snapshot{
		Teams: []reference.Team{
			{ID: 1, Name: "Arsenal", ShortName: "ARS", Strength: 5, GoalsConceded: 9},
			{ID: 2, Name: "Brentford", ShortName: "BRE", Strength: 3, GoalsConceded: 18},
		},
		Gameweeks: []reference.Gameweek{
			{ID: 8, IsCurrent: true},
			{ID: 9, IsNext: true},
		},
		Players: []reference.Player{
			{ID: 1, TeamID: 1, Position: reference.PositionDefender, WebName: "Gabriel",
				CleanSheets: 5, Form: 4.0, PointsPerGame: 4.5, TotalPoints: 60, Minutes: 900, Status: "a"},
			{ID: 2, TeamID: 2, Position: reference.PositionDefender, WebName: "Collins",
				CleanSheets: 3, Form: 6.5, PointsPerGame: 5.0, TotalPoints: 70, Minutes: 900, Status: "a"},
			{ID: 3, TeamID: 1, Position: reference.PositionForward, WebName: "Havertz",
				GoalsScored: 5, Assists: 2, Form: 6.0, TotalPoints: 55, Minutes: 800, Status: "a"},
			{ID: 4, TeamID: 2, Position: reference.PositionForward, WebName: "Wissa",
				GoalsScored: 4, Assists: 3, Form: 7.5, TotalPoints: 58, Minutes: 820, Status: "a"},
			{ID: 5, TeamID: 1, Position: reference.PositionGoalkeeper, WebName: "Raya",
				CleanSheets: 6, Saves: 30, Form: 5.0, TotalPoints: 50, Minutes: 990, Status: "a"},
			{ID: 6, TeamID: 2, Position: reference.PositionMidfielder, WebName: "Mbeumo",
				GoalsScored: 6, Assists: 4, Form: 8.0, TotalPoints: 75, Minutes: 950, Status: "a"},
			// Injured with news: belongs on the unavailability list and out
			// of the ranked pool.
			{ID: 7, TeamID: 1, Position: reference.PositionMidfielder, WebName: "Odegaard",
				GoalsScored: 3, Assists: 5, Form: 5.5, TotalPoints: 48, Minutes: 700,
				Status: "i", News: "Knee injury, expected back in 3 weeks", ChanceNextRound: chance(0)},
			// Barely used: filtered by the minutes floor.
			{ID: 8, TeamID: 2, Position: reference.PositionForward, WebName: "Benchwarmer",
				GoalsScored: 9, Assists: 9, Form: 9.9, TotalPoints: 90, Minutes: 80, Status: "a"},
			// Low chance of playing: filtered from the pool.
			{ID: 9, TeamID: 1, Position: reference.PositionForward, WebName: "Jesus",
				GoalsScored: 8, Assists: 4, Form: 7.0, TotalPoints: 66, Minutes: 900,
				Status: "a", ChanceNextRound: chance(50)},
		},
	}
}

func synthProvider(snapshot reference.Snapshot) *stubProvider {
	return &stubProvider{
		fetchBootstrap: func(context.Context) (reference.Snapshot, error) {
			return snapshot, nil
		},
		fetchFixtures: func(_ context.Context, gameweek int) ([]fixture.Fixture, error) {
			return []fixture.Fixture{{
				ID:             int64(gameweek * 100),
				Gameweek:       gameweek,
				HomeTeamID:     1,
				AwayTeamID:     2,
				HomeDifficulty: 2,
				AwayDifficulty: 4,
			}}, nil
		},
	}
}

func newAdvisorService(provider *stubProvider, completion CompletionClient, conversations advisor.ConversationRepository) *AdvisorService {
	referenceSvc := NewReferenceService(provider, logging.NewNop())
	teamRepo := newStubTeamRepo()
	teamSvc := NewTeamService(provider, referenceSvc, teamRepo, logging.NewNop())
	return NewAdvisorService(referenceSvc, provider, completion, teamSvc, conversations, logging.NewNop())
}

func TestAdvisorService_BuildContextResolvesPeriodsAndSeason(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }

	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	if ctx.CurrentGameweek != 8 || ctx.NextGameweek != 9 {
		t.Fatalf("periods wrong: current=%d next=%d", ctx.CurrentGameweek, ctx.NextGameweek)
	}
	if ctx.Season != "2026/2027" {
		t.Fatalf("season label: got=%q want=2026/2027", ctx.Season)
	}
	if len(ctx.PeriodFetches) != 5 {
		t.Fatalf("expected 5 period fetch records, got %d", len(ctx.PeriodFetches))
	}
}

func TestAdvisorService_PeriodFlagsAbsentDefaults(t *testing.T) {
	t.Parallel()

	snapshot := synthSnapshot()
	snapshot.Gameweeks = nil
	svc := newAdvisorService(synthProvider(snapshot), &stubCompletion{}, nil)

	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	if ctx.CurrentGameweek != 1 || ctx.NextGameweek != 2 {
		t.Fatalf("missing flags must default to 1/2, got %d/%d", ctx.CurrentGameweek, ctx.NextGameweek)
	}
}

func TestAdvisorService_SeasonLabelBeforeAugust(t *testing.T) {
	t.Parallel()

	if got := seasonLabel(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)); got != "2025/2026" {
		t.Fatalf("pre-August season label: got=%q want=2025/2026", got)
	}
	if got := seasonLabel(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)); got != "2026/2027" {
		t.Fatalf("August season label: got=%q want=2026/2027", got)
	}
}

func TestAdvisorService_DefenderRankingPrefersCleanSheets(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	defenders := ctx.TopPlayers.Defenders
	if len(defenders) < 2 {
		t.Fatalf("expected two ranked defenders, got %d", len(defenders))
	}
	// Gabriel has 5 clean sheets against Collins's 3; Collins's better form
	// must not outrank the clean-sheet lead.
	if defenders[0].WebName != "Gabriel" {
		t.Fatalf("clean sheets must lead defender ranking, got %q first", defenders[0].WebName)
	}
}

func TestAdvisorService_ForwardTieBreaksOnForm(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	forwards := ctx.TopPlayers.Forwards
	if len(forwards) < 2 {
		t.Fatalf("expected two ranked forwards, got %d", len(forwards))
	}
	// Havertz and Wissa both have 7 goal involvements; Wissa's higher form
	// wins the tie.
	if forwards[0].WebName != "Wissa" {
		t.Fatalf("form must break the involvement tie, got %q first", forwards[0].WebName)
	}
}

func TestAdvisorService_RankedListsCappedAtFive(t *testing.T) {
	t.Parallel()

	snapshot := synthSnapshot()
	for i := 0; i < 9; i++ {
		snapshot.Players = append(snapshot.Players, reference.Player{
			ID: int64(100 + i), TeamID: 1, Position: reference.PositionMidfielder,
			WebName: "Mid" + string(rune('A'+i)), GoalsScored: i, Minutes: 500, Status: "a",
		})
	}

	svc := newAdvisorService(synthProvider(snapshot), &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	if len(ctx.TopPlayers.Midfielders) != 5 {
		t.Fatalf("midfielder list not capped: %d", len(ctx.TopPlayers.Midfielders))
	}
}

func TestAdvisorService_PoolFiltersInjuredAndUnused(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	for _, list := range [][]advisor.RankedPlayer{
		ctx.TopPlayers.Goalkeepers, ctx.TopPlayers.Defenders,
		ctx.TopPlayers.Midfielders, ctx.TopPlayers.Forwards,
	} {
		for _, player := range list {
			switch player.WebName {
			case "Benchwarmer":
				t.Fatal("low-minutes player leaked into ranked pool")
			case "Jesus":
				t.Fatal("low-chance player leaked into ranked pool")
			case "Odegaard":
				t.Fatal("injured player leaked into ranked pool")
			}
		}
	}

	if len(ctx.UnavailablePlayers) != 1 || ctx.UnavailablePlayers[0].PlayerName != "Odegaard" {
		t.Fatalf("unavailability list wrong: %+v", ctx.UnavailablePlayers)
	}
	if ctx.UnavailablePlayers[0].Status != "Injured" {
		t.Fatalf("status label wrong: %q", ctx.UnavailablePlayers[0].Status)
	}
}

func TestAdvisorService_FixtureFailureDegradesPeriodOnly(t *testing.T) {
	t.Parallel()

	provider := synthProvider(synthSnapshot())
	inner := provider.fetchFixtures
	provider.fetchFixtures = func(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
		if gameweek == 10 {
			return nil, errors.New("gateway timeout")
		}
		return inner(ctx, gameweek)
	}

	svc := newAdvisorService(provider, &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("single period failure must not abort synthesis: %v", err)
	}

	var degraded int
	for _, fetch := range ctx.PeriodFetches {
		if fetch.Degraded {
			degraded++
			if fetch.Gameweek != 10 {
				t.Fatalf("wrong period marked degraded: %+v", fetch)
			}
		}
	}
	if degraded != 1 {
		t.Fatalf("expected exactly one degraded period, got %d", degraded)
	}
	for _, row := range ctx.AllFixtures {
		if row.Gameweek == 10 {
			t.Fatal("failed period's fixtures leaked into context")
		}
	}
}

func TestAdvisorService_EasyFixturesBothSidesAndCap(t *testing.T) {
	t.Parallel()

	provider := synthProvider(synthSnapshot())
	provider.fetchFixtures = func(_ context.Context, gameweek int) ([]fixture.Fixture, error) {
		// Both sides easy: each fixture contributes two rows.
		out := make([]fixture.Fixture, 4)
		for i := range out {
			out[i] = fixture.Fixture{
				ID: int64(gameweek*10 + i), Gameweek: gameweek,
				HomeTeamID: 1, AwayTeamID: 2,
				HomeDifficulty: 1, AwayDifficulty: 2,
			}
		}
		return out, nil
	}

	svc := newAdvisorService(provider, &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	// 5 periods x 4 fixtures x 2 sides = 40 candidates, capped at 20.
	if len(ctx.EasyFixtures) != 20 {
		t.Fatalf("easy fixtures not capped: %d", len(ctx.EasyFixtures))
	}
	var home, away bool
	for _, easy := range ctx.EasyFixtures {
		if easy.Home {
			home = true
		} else {
			away = true
		}
	}
	if !home || !away {
		t.Fatalf("both perspectives must appear: home=%v away=%v", home, away)
	}
}

func TestAdvisorService_DefensiveRecordsRecomputeCleanSheets(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	ctx, err := svc.BuildContext(context.Background())
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	var arsenal *advisor.DefensiveRecord
	for i := range ctx.DefensiveRecords {
		if ctx.DefensiveRecords[i].TeamID == 1 {
			arsenal = &ctx.DefensiveRecords[i]
		}
	}
	if arsenal == nil {
		t.Fatal("defensive record for team 1 missing")
	}
	// Raya (6) + Gabriel (5); the injured midfielder's stats do not count.
	if arsenal.CleanSheets != 11 {
		t.Fatalf("clean sheets not recomputed over GK+DEF: got=%d want=11", arsenal.CleanSheets)
	}
	if arsenal.GoalsConceded != 9 {
		t.Fatalf("goals conceded not taken from snapshot: %d", arsenal.GoalsConceded)
	}
}

func TestAdvisorService_AskGroundsPromptAndPersists(t *testing.T) {
	t.Parallel()

	var systemPrompt string
	completion := &stubCompletion{
		complete: func(_ context.Context, messages []advisor.Message) (Completion, error) {
			if len(messages) < 2 || messages[0].Role != advisor.RoleSystem {
				t.Fatalf("system message missing: %+v", messages)
			}
			systemPrompt = messages[0].Content
			return Completion{Content: "Captain Mbeumo.", Model: "glm-4.5-flash", TotalTokens: 321}, nil
		},
	}
	conversations := &stubConversationRepo{}
	svc := newAdvisorService(synthProvider(synthSnapshot()), completion, conversations)

	result, err := svc.Ask(context.Background(), AskInput{UserID: "user-1", Question: "Who should I captain?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if result.Answer != "Captain Mbeumo." || result.TokensUsed != 321 {
		t.Fatalf("completion not surfaced: %+v", result)
	}
	if result.ContextDegraded {
		t.Fatal("healthy synthesis marked degraded")
	}
	if result.ConversationID != "conv-1" || len(conversations.created) != 1 {
		t.Fatalf("conversation not persisted: %+v", result)
	}

	if !strings.Contains(systemPrompt, "Mbeumo") {
		t.Fatal("ranked player missing from prompt")
	}
	if !strings.Contains(systemPrompt, "Only recommend players from the TOP PLAYERS lists") {
		t.Fatal("recommendation restriction missing from prompt")
	}
	if !strings.Contains(systemPrompt, "say you do not have current data") {
		t.Fatal("no-fabrication instruction missing from prompt")
	}
}

func TestAdvisorService_ConversationTitleKeepsRuneBoundary(t *testing.T) {
	t.Parallel()

	completion := &stubCompletion{
		complete: func(context.Context, []advisor.Message) (Completion, error) {
			return Completion{Content: "Saka.", Model: "glm-4.5-flash", TotalTokens: 12}, nil
		},
	}
	conversations := &stubConversationRepo{}
	svc := newAdvisorService(synthProvider(synthSnapshot()), completion, conversations)

	question := strings.Repeat("a", 59) + "Ødegaard or Saka as captain this week?"
	if _, err := svc.Ask(context.Background(), AskInput{UserID: "user-1", Question: question}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(conversations.created) != 1 {
		t.Fatal("conversation not persisted")
	}

	title := conversations.created[0].Title
	if !utf8.ValidString(title) {
		t.Fatalf("title is not valid UTF-8: %q", title)
	}
	if len(title) != 59 || !strings.HasPrefix(question, title) {
		t.Fatalf("title not cut on the rune boundary: %q (%d bytes)", title, len(title))
	}
}

func TestAdvisorService_AskFallsBackWhenSynthesisFails(t *testing.T) {
	t.Parallel()

	provider := synthProvider(synthSnapshot())
	provider.fetchBootstrap = func(context.Context) (reference.Snapshot, error) {
		return reference.Snapshot{}, errors.New("provider down")
	}

	var systemPrompt string
	completion := &stubCompletion{
		complete: func(_ context.Context, messages []advisor.Message) (Completion, error) {
			systemPrompt = messages[0].Content
			return Completion{Content: "General advice only."}, nil
		},
	}

	svc := newAdvisorService(provider, completion, nil)
	result, err := svc.Ask(context.Background(), AskInput{Question: "Any tips?"})
	if err != nil {
		t.Fatalf("ask must degrade, not fail: %v", err)
	}
	if !result.ContextDegraded {
		t.Fatal("fallback not flagged")
	}
	if !strings.Contains(systemPrompt, "temporarily unavailable") {
		t.Fatalf("fallback prompt not used: %q", systemPrompt)
	}
}

func TestAdvisorService_AskRejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	svc := newAdvisorService(synthProvider(synthSnapshot()), &stubCompletion{}, nil)
	if _, err := svc.Ask(context.Background(), AskInput{Question: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
}
