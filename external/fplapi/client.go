package fplapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/barqyst/fpl-advisor/internal/domain/fixture"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/domain/standings"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
	"github.com/barqyst/fpl-advisor/internal/platform/resilience"
	"github.com/barqyst/fpl-advisor/internal/usecase"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL            = "https://fantasy.premierleague.com/api"
	defaultMinRequestInterval = time.Second
	defaultTimeout            = 15 * time.Second

	// The provider rejects default Go user agents.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxResponseBytes = 8 << 20
)

type ClientConfig struct {
	HTTPClient         *http.Client
	BaseURL            string
	Timeout            time.Duration
	MinRequestInterval time.Duration
	Logger             *logging.Logger
	CircuitBreaker     resilience.CircuitBreakerConfig
}

// Client talks to the upstream statistics API. A single rate limiter
// serializes every outbound request across all callers: requests arriving
// inside the minimum interval are delayed, never dropped. Retry policy
// belongs to callers.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = defaultMinRequestInterval
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		limiter:        rate.NewLimiter(rate.Every(interval), 1),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchBootstrap downloads the full reference dataset.
func (c *Client) FetchBootstrap(ctx context.Context) (reference.Snapshot, error) {
	var envelope bootstrapEnvelope
	if err := c.doJSON(ctx, "/bootstrap-static/", nil, &envelope); err != nil {
		return reference.Snapshot{}, fmt.Errorf("fetch bootstrap: %w", err)
	}
	return mapBootstrap(envelope, time.Now().UTC()), nil
}

// FetchEntry downloads the summary resource for one fantasy team.
func (c *Client) FetchEntry(ctx context.Context, teamID int64) (usecase.ExternalEntry, error) {
	if teamID <= 0 {
		return usecase.ExternalEntry{}, fmt.Errorf("%w: team id must be greater than zero", usecase.ErrInvalidInput)
	}

	var envelope entryEnvelope
	path := fmt.Sprintf("/entry/%d/", teamID)
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return usecase.ExternalEntry{}, fmt.Errorf("fetch entry team_id=%d: %w", teamID, err)
	}

	managerName := strings.TrimSpace(envelope.PlayerFirstName + " " + envelope.PlayerLastName)
	return usecase.ExternalEntry{
		ID:            envelope.ID,
		Name:          envelope.Name,
		ManagerName:   managerName,
		OverallPoints: envelope.SummaryOverallPoints,
		OverallRank:   envelope.SummaryOverallRank,
		CurrentEvent:  envelope.CurrentEvent,
		Bank:          envelope.LastDeadlineBank,
		Value:         envelope.LastDeadlineValue,
	}, nil
}

// FetchPicks downloads one gameweek's squad selection for a fantasy team.
func (c *Client) FetchPicks(ctx context.Context, teamID int64, gameweek int) (usecase.ExternalPicks, error) {
	if teamID <= 0 || gameweek <= 0 {
		return usecase.ExternalPicks{}, fmt.Errorf("%w: team id and gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var envelope picksEnvelope
	path := fmt.Sprintf("/entry/%d/event/%d/picks/", teamID, gameweek)
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return usecase.ExternalPicks{}, fmt.Errorf("fetch picks team_id=%d gameweek=%d: %w", teamID, gameweek, err)
	}

	ids := make([]int64, 0, len(envelope.Picks))
	for _, pick := range envelope.Picks {
		if pick.Element <= 0 {
			continue
		}
		ids = append(ids, pick.Element)
	}

	return usecase.ExternalPicks{
		PlayerIDs:      ids,
		EventTransfers: envelope.EntryHistory.EventTransfers,
	}, nil
}

// FetchStandingsPage downloads one page of a classic-league table. Callers
// walk pages sequentially; the shared throttle applies per request.
func (c *Client) FetchStandingsPage(ctx context.Context, leagueID int64, page int) (usecase.ExternalStandingsPage, error) {
	if leagueID <= 0 {
		return usecase.ExternalStandingsPage{}, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}
	if page <= 0 {
		page = 1
	}

	var envelope standingsEnvelope
	path := fmt.Sprintf("/leagues-classic/%d/standings/", leagueID)
	query := map[string]string{
		"page_new_entries": "1",
		"page_standings":   strconv.Itoa(page),
	}
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return usecase.ExternalStandingsPage{}, fmt.Errorf("fetch standings league_id=%d page=%d: %w", leagueID, page, err)
	}

	rows := make([]standings.Row, 0, len(envelope.Standings.Results))
	for _, item := range envelope.Standings.Results {
		rows = append(rows, standings.Row{
			EntryID:    item.Entry,
			EntryName:  item.EntryName,
			PlayerName: item.PlayerName,
			Rank:       item.Rank,
			LastRank:   item.LastRank,
			RankSort:   item.RankSort,
			Total:      item.Total,
			EventTotal: item.EventTotal,
		})
	}

	return usecase.ExternalStandingsPage{
		League: standings.League{
			ID:        envelope.League.ID,
			Name:      envelope.League.Name,
			ShortName: envelope.League.ShortName,
		},
		Rows:    rows,
		HasNext: envelope.Standings.HasNext,
		Page:    envelope.Standings.Page,
	}, nil
}

// FetchFixturesByGameweek downloads the fixture list for one gameweek.
func (c *Client) FetchFixturesByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
	if gameweek <= 0 {
		return nil, fmt.Errorf("%w: gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var payload []fixturePayload
	query := map[string]string{"event": strconv.Itoa(gameweek)}
	if err := c.doJSON(ctx, "/fixtures/", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch fixtures gameweek=%d: %w", gameweek, err)
	}

	out := make([]fixture.Fixture, 0, len(payload))
	for _, item := range payload {
		if item.ID <= 0 {
			continue
		}
		f := fixture.Fixture{
			ID:             item.ID,
			Gameweek:       item.Event,
			HomeTeamID:     item.TeamH,
			AwayTeamID:     item.TeamA,
			HomeDifficulty: item.TeamHDifficulty,
			AwayDifficulty: item.TeamADifficulty,
		}
		if parsed, err := time.Parse(time.RFC3339, item.KickoffTime); err == nil {
			f.KickoffAt = parsed
		}
		out = append(out, f)
	}

	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: statistics provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	// Cooperative delay until the minimum inter-request interval has
	// elapsed since the previous outbound call, process-wide.
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for outbound throttle: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		fullURL += "?" + values.Encode()
	}

	raw, err := c.executeRequest(ctx, fullURL)
	if c.circuitEnabled {
		if err != nil && isCircuitFailure(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "error", err)
		return nil, fmt.Errorf("%w: send request: %v", usecase.ErrDependencyUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", usecase.ErrDependencyUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	statusErr := statusError(fullURL, resp.StatusCode, raw)
	c.logger.WarnContext(ctx, "fpl non-2xx response", "url", fullURL, "status", resp.StatusCode)
	return nil, statusErr
}

// statusError tags the failure kind at the point the status code is known,
// so callers never have to inspect message text.
func statusError(endpoint string, status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: provider endpoint=%s status=%d", usecase.ErrNotFound, endpoint, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: provider endpoint=%s status=%d", usecase.ErrRateLimited, endpoint, status)
	default:
		return fmt.Errorf("%w: provider endpoint=%s status=%d body=%s", usecase.ErrDependencyUnavailable, endpoint, status, abbreviateBody(body))
	}
}

// isCircuitFailure reports whether the error should count against the
// breaker. A 404 is a valid upstream answer, not an outage signal.
func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return false
	case errors.Is(err, usecase.ErrInvalidInput):
		return false
	default:
		return true
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 160
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func mapBootstrap(envelope bootstrapEnvelope, fetchedAt time.Time) reference.Snapshot {
	players := make([]reference.Player, 0, len(envelope.Elements))
	for _, item := range envelope.Elements {
		players = append(players, reference.Player{
			ID:                item.ID,
			TeamID:            item.Team,
			Position:          item.ElementType,
			WebName:           strings.TrimSpace(item.WebName),
			FirstName:         strings.TrimSpace(item.FirstName),
			SecondName:        strings.TrimSpace(item.SecondName),
			NowCost:           item.NowCost,
			TotalPoints:       item.TotalPoints,
			EventPoints:       item.EventPoints,
			Minutes:           item.Minutes,
			GoalsScored:       item.GoalsScored,
			Assists:           item.Assists,
			CleanSheets:       item.CleanSheets,
			GoalsConceded:     item.GoalsConceded,
			Saves:             item.Saves,
			Bonus:             item.Bonus,
			Form:              parseFloatDefault(item.Form),
			PointsPerGame:     parseFloatDefault(item.PointsPerGame),
			SelectedByPercent: strings.TrimSpace(item.SelectedByPercent),
			Status:            strings.TrimSpace(item.Status),
			News:              strings.TrimSpace(item.News),
			ChanceThisRound:   item.ChanceOfPlayingThis,
			ChanceNextRound:   item.ChanceOfPlayingNext,
		})
	}

	teams := make([]reference.Team, 0, len(envelope.Teams))
	for _, item := range envelope.Teams {
		teams = append(teams, reference.Team{
			ID:            item.ID,
			Name:          strings.TrimSpace(item.Name),
			ShortName:     strings.TrimSpace(item.ShortName),
			Strength:      item.Strength,
			Position:      item.Position,
			Played:        item.Played,
			GoalsScored:   item.GoalsScored,
			GoalsConceded: item.GoalsConceded,
			Points:        item.Points,
		})
	}

	gameweeks := make([]reference.Gameweek, 0, len(envelope.Events))
	for _, item := range envelope.Events {
		gw := reference.Gameweek{
			ID:         item.ID,
			Name:       strings.TrimSpace(item.Name),
			IsPrevious: item.IsPrevious,
			IsCurrent:  item.IsCurrent,
			IsNext:     item.IsNext,
			Finished:   item.Finished,
		}
		if parsed, err := time.Parse(time.RFC3339, item.DeadlineTime); err == nil {
			gw.DeadlineTime = parsed
		}
		gameweeks = append(gameweeks, gw)
	}

	return reference.Snapshot{
		Players:   players,
		Teams:     teams,
		Gameweeks: gameweeks,
		FetchedAt: fetchedAt,
	}
}

func parseFloatDefault(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}
