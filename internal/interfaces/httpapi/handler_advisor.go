package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/platform/ratelimit"
	"github.com/barqyst/fpl-advisor/internal/usecase"
)

type chatMessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

type advisorChatRequest struct {
	UserID   string           `json:"user_id" validate:"required,max=64"`
	Question string           `json:"question" validate:"required,max=2000"`
	History  []chatMessageDTO `json:"history" validate:"max=20,dive"`
}

type advisorChatResponse struct {
	Answer          string `json:"answer"`
	Model           string `json:"model"`
	TokensUsed      int    `json:"tokensUsed"`
	ContextDegraded bool   `json:"contextDegraded"`
	ConversationID  string `json:"conversationId,omitempty"`
}

type conversationDTO struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Messages   []chatMessageDTO `json:"messages"`
	TokensUsed int              `json:"tokensUsed"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Chat answers a question grounded in the synthesized fantasy context. The
// expensive completion tier is limited per user id rather than per IP so a
// shared NAT cannot exhaust another caller's allowance.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Chat")
	defer span.End()

	var req advisorChatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result := h.limiter.Check(ratelimit.PolicyExpensive, ratelimit.PolicyExpensive.Name+":user:"+req.UserID)
	setRateLimitHeaders(w, result)
	if !result.Allowed {
		writeError(ctx, w, fmt.Errorf("%w: chat limit reached, try again later", usecase.ErrRateLimited))
		return
	}

	history := make([]advisor.Message, 0, len(req.History))
	for _, message := range req.History {
		history = append(history, advisor.Message{Role: message.Role, Content: message.Content})
	}

	answer, err := h.advisorService.Ask(ctx, usecase.AskInput{
		UserID:   req.UserID,
		Question: req.Question,
		History:  history,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "advisor chat failed", "user_id", req.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, advisorChatResponse{
		Answer:          answer.Answer,
		Model:           answer.Model,
		TokensUsed:      answer.TokensUsed,
		ContextDegraded: answer.ContextDegraded,
		ConversationID:  answer.ConversationID,
	})
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListConversations")
	defer span.End()

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(ctx, w, fmt.Errorf("%w: user_id query parameter is required", usecase.ErrInvalidInput))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	conversations, err := h.advisorService.Conversations(ctx, userID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list conversations failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]conversationDTO, 0, len(conversations))
	for _, conversation := range conversations {
		messages := make([]chatMessageDTO, 0, len(conversation.Messages))
		for _, message := range conversation.Messages {
			messages = append(messages, chatMessageDTO{Role: message.Role, Content: message.Content})
		}
		out = append(out, conversationDTO{
			ID:         conversation.ID,
			Title:      conversation.Title,
			Messages:   messages,
			TokensUsed: conversation.TokensUsed,
			CreatedAt:  conversation.CreatedAt,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}
