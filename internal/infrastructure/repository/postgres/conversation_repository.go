package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/platform/id"
	qb "github.com/barqyst/fpl-advisor/internal/platform/querybuilder"
)

// ConversationRepository persists advisor exchanges.
type ConversationRepository struct {
	db  *sqlx.DB
	ids id.Generator
}

func NewConversationRepository(db *sqlx.DB, ids id.Generator) *ConversationRepository {
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &ConversationRepository{db: db, ids: ids}
}

func (r *ConversationRepository) Create(ctx context.Context, conversation advisor.Conversation) (string, error) {
	conversationID := conversation.ID
	if conversationID == "" {
		generated, err := r.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("generate conversation id: %w", err)
		}
		conversationID = generated
	}

	messages, err := sonic.Marshal(conversation.Messages)
	if err != nil {
		return "", fmt.Errorf("encode conversation messages: %w", err)
	}

	query, args, err := qb.InsertInto("conversations").
		Columns("id", "user_id", "title", "messages", "tokens_used", "created_at").
		Values(conversationID, conversation.UserID, conversation.Title, messages,
			conversation.TokensUsed, conversation.CreatedAt).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build insert conversation query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	return conversationID, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]advisor.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := qb.Select("*").From("conversations").
		Where(qb.Eq("user_id", userID)).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list conversations query: %w", err)
	}

	var rows []conversationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]advisor.Conversation, 0, len(rows))
	for _, row := range rows {
		var messages []advisor.Message
		if len(row.Messages) > 0 {
			if err := sonic.Unmarshal(row.Messages, &messages); err != nil {
				return nil, fmt.Errorf("decode conversation messages: %w", err)
			}
		}
		out = append(out, advisor.Conversation{
			ID:         row.ID,
			UserID:     row.UserID,
			Title:      row.Title,
			Messages:   messages,
			TokensUsed: row.TokensUsed,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}
