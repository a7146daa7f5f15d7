package fplapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/barqyst/fpl-advisor/internal/platform/resilience"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler, interval time.Duration) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:            server.URL,
		MinRequestInterval: interval,
		CircuitBreaker:     resilience.CircuitBreakerConfig{Enabled: false},
	})
	return client, server
}

func TestClient_ThrottleDelaysSecondRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"elements":[],"teams":[],"events":[]}`))
	})

	const interval = 80 * time.Millisecond
	client, _ := newTestClient(t, handler, interval)

	started := time.Now()
	if _, err := client.FetchBootstrap(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := client.FetchBootstrap(context.Background()); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if elapsed := time.Since(started); elapsed < interval {
		t.Fatalf("second request not throttled: elapsed=%v want>=%v", elapsed, interval)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("unexpected call count: got=%d want=2", got)
	}
}

func TestClient_FetchBootstrapMapsSnapshot(t *testing.T) {
	t.Parallel()

	const payload = `{
		"elements": [{
			"id": 427, "team": 12, "element_type": 3, "web_name": "Salah",
			"now_cost": 131, "total_points": 211, "minutes": 3042,
			"form": "7.4", "points_per_game": "5.9", "selected_by_percent": "45.2",
			"status": "a", "news": "",
			"chance_of_playing_this_round": null,
			"chance_of_playing_next_round": 100
		}],
		"teams": [{
			"id": 12, "name": "Liverpool", "short_name": "LIV",
			"strength": 5, "position": 1, "played": 10,
			"goal_scored": 24, "goal_conceded": 8, "points": 26
		}],
		"events": [
			{"id": 10, "name": "Gameweek 10", "deadline_time": "2026-10-24T10:00:00Z", "is_current": true, "finished": false},
			{"id": 11, "name": "Gameweek 11", "deadline_time": "2026-10-31T10:00:00Z", "is_next": true, "finished": false}
		]
	}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	})
	client, _ := newTestClient(t, handler, time.Millisecond)

	snapshot, err := client.FetchBootstrap(context.Background())
	if err != nil {
		t.Fatalf("fetch bootstrap: %v", err)
	}

	if len(snapshot.Players) != 1 {
		t.Fatalf("unexpected player count: %d", len(snapshot.Players))
	}
	player := snapshot.Players[0]
	if player.Form != 7.4 || player.PointsPerGame != 5.9 {
		t.Fatalf("string stats not parsed: form=%v ppg=%v", player.Form, player.PointsPerGame)
	}
	if player.ChanceThisRound != nil {
		t.Fatalf("null chance must stay nil, got %v", *player.ChanceThisRound)
	}
	if player.ChanceNextRound == nil || *player.ChanceNextRound != 100 {
		t.Fatalf("chance next round not mapped: %v", player.ChanceNextRound)
	}

	team, ok := snapshot.TeamByID(12)
	if !ok || team.ShortName != "LIV" || team.GoalsConceded != 8 {
		t.Fatalf("team not mapped: ok=%v team=%+v", ok, team)
	}

	current, ok := snapshot.CurrentGameweek()
	if !ok || current.ID != 10 {
		t.Fatalf("current gameweek not resolved: ok=%v gw=%+v", ok, current)
	}
	if snapshot.FetchedAt.IsZero() {
		t.Fatal("snapshot fetch time not stamped")
	}
}

func TestClient_NotFoundIsTyped(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	client, _ := newTestClient(t, handler, time.Millisecond)

	_, err := client.FetchEntry(context.Background(), 12345)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("404 must not be classified as dependency failure: %v", err)
	}
}

func TestClient_TooManyRequestsIsTyped(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	client, _ := newTestClient(t, handler, time.Millisecond)

	_, err := client.FetchFixturesByGameweek(context.Background(), 3)
	if !errors.Is(err, usecase.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got: %v", err)
	}
}

func TestClient_ServerErrorIsDependencyFailure(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	client, _ := newTestClient(t, handler, time.Millisecond)

	_, err := client.FetchEntry(context.Background(), 42)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got: %v", err)
	}
}

func TestClient_NetworkErrorIsDependencyFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(ClientConfig{
		BaseURL:            server.URL,
		MinRequestInterval: time.Millisecond,
		CircuitBreaker:     resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, err := client.FetchEntry(context.Background(), 42)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got: %v", err)
	}
}

func TestClient_RejectsInvalidTeamIDBeforeNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})
	client, _ := newTestClient(t, handler, time.Millisecond)

	if _, err := client.FetchEntry(context.Background(), 0); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("invalid input reached the network: calls=%d", got)
	}
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:            server.URL,
		MinRequestInterval: time.Millisecond,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 3; i++ {
		_, _ = client.FetchEntry(context.Background(), 42)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("open breaker did not stop requests: calls=%d want=2", got)
	}
}
