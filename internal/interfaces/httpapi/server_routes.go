package httpapi

import (
	"net/http"

	"github.com/barqyst/fpl-advisor/internal/platform/ratelimit"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("POST /v1/advisor/chat",
		RateLimitByClientIP(handler.limiter, ratelimit.PolicyAPI, http.HandlerFunc(handler.Chat)))
	mux.Handle("GET /v1/advisor/conversations",
		RateLimitByClientIP(handler.limiter, ratelimit.PolicyReadOnly, http.HandlerFunc(handler.ListConversations)))
	mux.Handle("POST /v1/teams/import",
		RateLimitByClientIP(handler.limiter, ratelimit.PolicyImport, http.HandlerFunc(handler.ImportTeam)))
	mux.Handle("GET /v1/teams/{userID}",
		RateLimitByClientIP(handler.limiter, ratelimit.PolicyReadOnly, http.HandlerFunc(handler.GetLatestTeam)))
	mux.Handle("GET /v1/leagues/{leagueID}/standings",
		RateLimitByClientIP(handler.limiter, ratelimit.PolicyReadOnly, http.HandlerFunc(handler.ListLeagueStandings)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/resync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResyncJob)))
}
