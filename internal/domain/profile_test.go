package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileUpdate_ApplyOnlySetFields(t *testing.T) {
	p := NewPublicProfile("u1", "Ana", "ana-abc123")
	p.Bio = "old bio"

	bio := "new bio"
	skills := []string{"go", "sql"}
	ProfileUpdate{Bio: &bio, Skills: &skills}.Apply(p)

	assert.Equal(t, "new bio", p.Bio)
	assert.Equal(t, []string{"go", "sql"}, p.Skills)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, "ana-abc123", p.Username)
	assert.True(t, p.IsPublic)
}

func TestPublicProfile_Details(t *testing.T) {
	p := NewPublicProfile("u1", "Ana", "ana-abc123")
	p.ProfileImage = "https://cdn.test/a.png"

	assert.Equal(t, ParticipantDetails{
		DisplayName:  "Ana",
		ProfileImage: "https://cdn.test/a.png",
		Username:     "ana-abc123",
	}, p.Details())
}
