package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation_RejectsInvalidParticipants(t *testing.T) {
	tests := []struct {
		name    string
		current string
		other   string
	}{
		{"same id twice", "u1", "u1"},
		{"empty current", "", "u2"},
		{"empty other", "u1", ""},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := NewConversation(tt.current, tt.other, ParticipantDetails{}, ParticipantDetails{})
			assert.ErrorIs(t, err, ErrInvalidParticipants)
			assert.Nil(t, conv)
		})
	}
}

func TestNewConversation_DenormalizesDetails(t *testing.T) {
	conv, err := NewConversation("u1", "u2",
		ParticipantDetails{DisplayName: "Ana", ProfileImage: "https://img/ana.png", Username: "ana-x1y2z3"},
		ParticipantDetails{},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"u1", "u2"}, conv.Participants)
	assert.Equal(t, "Ana", conv.ParticipantDetails["u1"].DisplayName)
	assert.Equal(t, "ana-x1y2z3", conv.ParticipantDetails["u1"].Username)
	assert.Equal(t, DefaultDisplayName, conv.ParticipantDetails["u2"].DisplayName)
	assert.Equal(t, "", conv.ParticipantDetails["u2"].ProfileImage)
	assert.Equal(t, "", conv.ParticipantDetails["u2"].Username)
	assert.Equal(t, "", conv.LastMessage)
	assert.Nil(t, conv.LastMessageBy)
}

func TestConversation_OtherParticipant(t *testing.T) {
	conv := &Conversation{Participants: []string{"u1", "u2"}}

	assert.Equal(t, "u2", conv.OtherParticipant("u1"))
	assert.Equal(t, "u1", conv.OtherParticipant("u2"))
	assert.Equal(t, "", conv.OtherParticipant("u3"))
	assert.True(t, conv.HasParticipant("u1"))
	assert.False(t, conv.HasParticipant("u3"))
}

func TestSortByRecency(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := base.Add(d)
		return &ts
	}

	convs := []Conversation{
		{ID: "old", LastMessageTime: at(0)},
		{ID: "missing-a"},
		{ID: "newest", LastMessageTime: at(2 * time.Hour)},
		{ID: "missing-b"},
		{ID: "middle", LastMessageTime: at(time.Hour)},
	}

	SortByRecency(convs)

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	// Missing timestamps sort last and keep their relative order.
	assert.Equal(t, []string{"newest", "middle", "old", "missing-a", "missing-b"}, ids)
}
