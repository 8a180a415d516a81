// Package events publishes messaging domain events for downstream consumers
// such as push notification workers.
package events

import (
	"context"
	"time"

	"github.com/vedran77/devaura/internal/domain"
)

const (
	TypeConversationCreated = "conversation.created"
	TypeMessageSent         = "message.sent"
)

type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id"`
	ActorID        string          `json:"actor_id"`
	Participants   []string        `json:"participants,omitempty"`
	Message        *domain.Message `json:"message,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
