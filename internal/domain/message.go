package domain

import "time"

// Message belongs to exactly one conversation and is never modified after
// insert. Read is always stored as false; nothing updates it.
type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversation_id" bson:"conversationId"`
	SenderID       string    `json:"sender_id" bson:"senderId"`
	Text           string    `json:"text" bson:"text"`
	CreatedAt      time.Time `json:"created_at" bson:"createdAt"`
	Read           bool      `json:"read" bson:"read"`
}
