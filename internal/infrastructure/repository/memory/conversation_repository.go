package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/platform/id"
)

// ConversationRepository keeps advisor conversations in memory, newest
// first per user.
type ConversationRepository struct {
	mu     sync.RWMutex
	ids    id.Generator
	byUser map[string][]advisor.Conversation
}

func NewConversationRepository(ids id.Generator) *ConversationRepository {
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &ConversationRepository{
		ids:    ids,
		byUser: make(map[string][]advisor.Conversation),
	}
}

func (r *ConversationRepository) Create(_ context.Context, conversation advisor.Conversation) (string, error) {
	if conversation.ID == "" {
		generated, err := r.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("generate conversation id: %w", err)
		}
		conversation.ID = generated
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[conversation.UserID] = append([]advisor.Conversation{conversation}, r.byUser[conversation.UserID]...)
	return conversation.ID, nil
}

func (r *ConversationRepository) ListByUser(_ context.Context, userID string, limit int) ([]advisor.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	conversations := r.byUser[userID]
	if len(conversations) > limit {
		conversations = conversations[:limit]
	}
	out := make([]advisor.Conversation, len(conversations))
	copy(out, conversations)
	return out, nil
}
