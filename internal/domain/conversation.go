package domain

import (
	"errors"
	"sort"
	"time"
)

// DefaultDisplayName is stored for a participant whose snapshot carries no name.
const DefaultDisplayName = "User"

var ErrInvalidParticipants = errors.New("a conversation needs two distinct, non-empty participant ids")

// ParticipantDetails is the display snapshot copied onto a conversation when it
// is created. It is not refreshed when the underlying profile changes.
type ParticipantDetails struct {
	DisplayName  string `json:"display_name" bson:"displayName"`
	ProfileImage string `json:"profile_image" bson:"profileImage"`
	Username     string `json:"username" bson:"username"`
}

// Normalize fills the display name fallback. Missing avatar and username stay empty.
func (d ParticipantDetails) Normalize() ParticipantDetails {
	if d.DisplayName == "" {
		d.DisplayName = DefaultDisplayName
	}
	return d
}

type Conversation struct {
	ID                 string                        `json:"id" bson:"_id"`
	Participants       []string                      `json:"participants" bson:"participants"`
	ParticipantDetails map[string]ParticipantDetails `json:"participant_details" bson:"participantDetails"`
	LastMessage        string                        `json:"last_message" bson:"lastMessage"`
	LastMessageTime    *time.Time                    `json:"last_message_time" bson:"lastMessageTime"`
	LastMessageBy      *string                       `json:"last_message_by" bson:"lastMessageBy"`
	CreatedAt          time.Time                     `json:"created_at" bson:"createdAt"`
}

// NewConversation builds an unsaved two-party conversation. The store assigns
// ID, CreatedAt and LastMessageTime on insert.
func NewConversation(currentUserID, otherUserID string, currentDetails, otherDetails ParticipantDetails) (*Conversation, error) {
	if currentUserID == "" || otherUserID == "" || currentUserID == otherUserID {
		return nil, ErrInvalidParticipants
	}

	return &Conversation{
		Participants: []string{currentUserID, otherUserID},
		ParticipantDetails: map[string]ParticipantDetails{
			currentUserID: currentDetails.Normalize(),
			otherUserID:   otherDetails.Normalize(),
		},
		LastMessage: "",
	}, nil
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" if
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// SortByRecency orders conversations by LastMessageTime, newest first. A nil
// time sorts as the earliest possible instant. Ties keep their input order.
func SortByRecency(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return lastActivity(convs[i]).After(lastActivity(convs[j]))
	})
}

func lastActivity(c Conversation) time.Time {
	if c.LastMessageTime == nil {
		return time.Time{}
	}
	return *c.LastMessageTime
}
