package advisor

import (
	"context"
	"time"
)

// Conversation is one persisted advisor exchange.
type Conversation struct {
	ID         string
	UserID     string
	Title      string
	Messages   []Message
	TokensUsed int
	CreatedAt  time.Time
}

// ConversationRepository is the storage collaborator boundary for advisor
// conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conversation Conversation) (string, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Conversation, error)
}
