package repository

import (
	"context"
	"errors"

	"github.com/vedran77/devaura/internal/domain"
)

// Read methods return (nil, nil) when the record does not exist. Writes that
// target a missing record return ErrNotFound.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type ConversationRepository interface {
	// Create assigns ID, CreatedAt and LastMessageTime on insert.
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// ListByParticipant returns every conversation containing userID, in store order.
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	// UpdateLastMessage sets the summary fields; the store assigns lastMessageTime.
	UpdateLastMessage(ctx context.Context, conversationID, text, senderID string) error
}

type MessageRepository interface {
	// Create assigns ID and CreatedAt and stores Read as false.
	Create(ctx context.Context, msg *domain.Message) error
	// ListByConversation returns messages ordered by createdAt ascending.
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.PublicProfile) error
	GetByID(ctx context.Context, id string) (*domain.PublicProfile, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*domain.PublicProfile, error)
	Update(ctx context.Context, profile *domain.PublicProfile) error
	// ListPublic returns public profiles; limit <= 0 means no limit.
	ListPublic(ctx context.Context, limit int) ([]domain.PublicProfile, error)
}
