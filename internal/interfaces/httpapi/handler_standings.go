package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/barqyst/fpl-advisor/internal/domain/standings"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

type standingsRowDTO struct {
	EntryID    int64  `json:"entryId"`
	EntryName  string `json:"entryName"`
	PlayerName string `json:"playerName"`
	Rank       int    `json:"rank"`
	LastRank   int    `json:"lastRank"`
	Total      int    `json:"total"`
	EventTotal int    `json:"eventTotal"`
}

type standingsTableDTO struct {
	LeagueID   int64             `json:"leagueId"`
	LeagueName string            `json:"leagueName"`
	Rows       []standingsRowDTO `json:"rows"`
	Pages      int               `json:"pages"`
	Complete   bool              `json:"complete"`
}

func (h *Handler) ListLeagueStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagueStandings")
	defer span.End()

	leagueID, err := parseLeagueID(r.PathValue("leagueID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	maxPages := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("max_pages")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: max_pages must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		maxPages = parsed
	}

	table, err := h.standingsService.Collect(ctx, leagueID, maxPages)
	if err != nil {
		h.logger.WarnContext(ctx, "collect standings failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, standingsTableToDTO(table))
}

func parseLeagueID(raw string) (int64, error) {
	leagueID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || leagueID < 1 {
		return 0, fmt.Errorf("%w: leagueID must be a positive integer", usecase.ErrInvalidInput)
	}
	return leagueID, nil
}

func standingsTableToDTO(table standings.Table) standingsTableDTO {
	rows := make([]standingsRowDTO, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, standingsRowDTO{
			EntryID:    row.EntryID,
			EntryName:  row.EntryName,
			PlayerName: row.PlayerName,
			Rank:       row.Rank,
			LastRank:   row.LastRank,
			Total:      row.Total,
			EventTotal: row.EventTotal,
		})
	}

	return standingsTableDTO{
		LeagueID:   table.League.ID,
		LeagueName: table.League.Name,
		Rows:       rows,
		Pages:      table.Pages,
		Complete:   table.Complete,
	}
}
