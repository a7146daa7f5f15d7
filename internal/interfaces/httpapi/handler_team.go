package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/barqyst/fpl-advisor/internal/domain/team"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

type importTeamRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	TeamID int64  `json:"team_id" validate:"required"`
}

type teamRecordDTO struct {
	FPLTeamID     int64     `json:"fplTeamId"`
	Name          string    `json:"name"`
	SquadPlayers  []int64   `json:"squadPlayers"`
	BankValue     float64   `json:"bankValue"`
	TeamValue     float64   `json:"teamValue"`
	TotalPoints   int       `json:"totalPoints"`
	OverallRank   int       `json:"overallRank"`
	FreeTransfers int       `json:"freeTransfers"`
	SquadDegraded bool      `json:"squadDegraded"`
	SyncedAt      time.Time `json:"syncedAt"`
}

func (h *Handler) ImportTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ImportTeam")
	defer span.End()

	var req importTeamRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.teamService.Import(ctx, req.UserID, req.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "team import failed", "user_id", req.UserID, "team_id", req.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamRecordToDTO(record))
}

func (h *Handler) GetLatestTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLatestTeam")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	if userID == "" {
		writeError(ctx, w, fmt.Errorf("%w: userID path parameter is required", usecase.ErrInvalidInput))
		return
	}

	record, err := h.teamService.Latest(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamRecordToDTO(record))
}

func teamRecordToDTO(record team.Record) teamRecordDTO {
	squad := record.SquadPlayers
	if squad == nil {
		squad = []int64{}
	}

	return teamRecordDTO{
		FPLTeamID:     record.FPLTeamID,
		Name:          record.Name,
		SquadPlayers:  squad,
		BankValue:     record.BankValue,
		TeamValue:     record.TeamValue,
		TotalPoints:   record.TotalPoints,
		OverallRank:   record.OverallRank,
		FreeTransfers: record.FreeTransfers,
		SquadDegraded: record.SquadDegraded,
		SyncedAt:      record.SyncedAt,
	}
}
