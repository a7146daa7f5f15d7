package httpapi

import (
	"fmt"
	"net/http"

	"github.com/barqyst/fpl-advisor/internal/usecase"
)

type internalResyncRequest struct {
	Workers int  `json:"workers" validate:"min=0,max=16"`
	DryRun  bool `json:"dry_run"`
}

type resyncTaskDTO struct {
	UserID     string `json:"userId"`
	FPLTeamID  int64  `json:"fplTeamId"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

type resyncResultDTO struct {
	Tasks        []resyncTaskDTO `json:"tasks"`
	SuccessCount int             `json:"successCount"`
	FailedCount  int             `json:"failedCount"`
	SkippedCount int             `json:"skippedCount"`
	DurationMs   int64           `json:"durationMs"`
}

func (h *Handler) RunResyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunResyncJob")
	defer span.End()

	if h.resyncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: resync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req := internalResyncRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.resyncService.Run(ctx, usecase.ResyncInput{
		Workers: req.Workers,
		DryRun:  req.DryRun,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "resync job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	tasks := make([]resyncTaskDTO, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		tasks = append(tasks, resyncTaskDTO{
			UserID:     task.UserID,
			FPLTeamID:  task.FPLTeamID,
			Status:     task.Status,
			Message:    task.Message,
			DurationMs: task.DurationMs,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, resyncResultDTO{
		Tasks:        tasks,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
		SkippedCount: result.SkippedCount,
		DurationMs:   result.DurationMs,
	})
}
