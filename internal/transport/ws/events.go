package ws

import (
	"encoding/json"
	"time"

	"github.com/vedran77/devaura/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeConversationsSubscribe   = "conversations.subscribe"
	EventTypeConversationsUnsubscribe = "conversations.unsubscribe"
	EventTypeMessagesSubscribe        = "messages.subscribe"
	EventTypeMessagesUnsubscribe      = "messages.unsubscribe"
	EventTypeMessageSend              = "message.send"
	EventTypePing                     = "ping"
)

// Event types - Server → Client
const (
	EventTypeConversationsSnapshot = "conversations.snapshot"
	EventTypeMessagesSnapshot      = "messages.snapshot"
	EventTypeMessageSent           = "message.sent"
	EventTypePong                  = "pong"
	EventTypeError                 = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

type MessageSendPayload struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Nonce          string `json:"nonce,omitempty"`
}

// --- Server → Client payloads ---

// ConversationsSnapshotPayload is the complete feed. Error is set when the
// feed failed; no further snapshots follow until the client subscribes again.
type ConversationsSnapshotPayload struct {
	Items []domain.Conversation `json:"items"`
	Error *ErrorPayload         `json:"error,omitempty"`
}

type MessagesSnapshotPayload struct {
	ConversationID string           `json:"conversation_id"`
	Items          []domain.Message `json:"items"`
	Error          *ErrorPayload    `json:"error,omitempty"`
}

type MessageSentPayload struct {
	Message *domain.Message `json:"message"`
	Nonce   string          `json:"nonce,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
