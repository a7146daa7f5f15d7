package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/barqyst/fpl-advisor/internal/platform/logging"
	"github.com/barqyst/fpl-advisor/internal/platform/ratelimit"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

type Handler struct {
	advisorService   *usecase.AdvisorService
	teamService      *usecase.TeamService
	standingsService *usecase.LeagueStandingService
	resyncService    *usecase.ResyncService
	limiter          *ratelimit.Limiter
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	advisorService *usecase.AdvisorService,
	teamService *usecase.TeamService,
	standingsService *usecase.LeagueStandingService,
	resyncService *usecase.ResyncService,
	limiter *ratelimit.Limiter,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		advisorService:   advisorService,
		teamService:      teamService,
		standingsService: standingsService,
		resyncService:    resyncService,
		limiter:          limiter,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func decodeJSONBody(r *http.Request, out any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
