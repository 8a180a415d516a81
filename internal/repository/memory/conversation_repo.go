package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
)

// Clock supplies store-assigned timestamps.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type ConversationRepo struct {
	mu            sync.RWMutex
	now           Clock
	order         []string // insertion order stands in for store order
	conversations map[string]*domain.Conversation
}

func NewConversationRepo(clock Clock) *ConversationRepo {
	if clock == nil {
		clock = systemClock
	}
	return &ConversationRepo{
		now:           clock,
		conversations: make(map[string]*domain.Conversation),
	}
}

func (r *ConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	conv.ID = uuid.NewString()
	conv.CreatedAt = now
	conv.LastMessageTime = &now

	r.conversations[conv.ID] = cloneConversation(conv)
	r.order = append(r.order, conv.ID)
	return nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	return cloneConversation(conv), nil
}

func (r *ConversationRepo) ListByParticipant(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Conversation
	for _, id := range r.order {
		conv := r.conversations[id]
		if conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	return out, nil
}

func (r *ConversationRepo) UpdateLastMessage(_ context.Context, conversationID, text, senderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return repository.ErrNotFound
	}

	now := r.now()
	sender := senderID
	conv.LastMessage = text
	conv.LastMessageTime = &now
	conv.LastMessageBy = &sender
	return nil
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.ParticipantDetails = make(map[string]domain.ParticipantDetails, len(c.ParticipantDetails))
	for k, v := range c.ParticipantDetails {
		out.ParticipantDetails[k] = v
	}
	if c.LastMessageTime != nil {
		t := *c.LastMessageTime
		out.LastMessageTime = &t
	}
	if c.LastMessageBy != nil {
		by := *c.LastMessageBy
		out.LastMessageBy = &by
	}
	return &out
}
