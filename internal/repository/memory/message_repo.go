package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/devaura/internal/domain"
)

type MessageRepo struct {
	mu       sync.RWMutex
	now      Clock
	messages map[string][]domain.Message // conversationID -> messages in insertion order
}

func NewMessageRepo(clock Clock) *MessageRepo {
	if clock == nil {
		clock = systemClock
	}
	return &MessageRepo{
		now:      clock,
		messages: make(map[string][]domain.Message),
	}
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.CreatedAt = r.now()
	msg.Read = false

	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]domain.Message(nil), r.messages[conversationID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
