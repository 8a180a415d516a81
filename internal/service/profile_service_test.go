package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository/memory"
	"go.uber.org/zap"
)

func newProfileService() *ProfileService {
	return NewProfileService(memory.NewProfileRepo(tickingClock()), zap.NewNop())
}

func TestGenerateUsername(t *testing.T) {
	tests := []struct {
		displayName string
		prefix      string
	}{
		{"Ana Kovač", "ana-"},
		{"  JOHN   Smith", "john-"},
		{"O'Neil", "oneil-"},
		{"", "user-"},
		{"!!!", "user-"},
	}

	for _, tt := range tests {
		t.Run(tt.displayName, func(t *testing.T) {
			got, err := GenerateUsername(tt.displayName)
			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile("^"+regexp.QuoteMeta(tt.prefix)+"[0-9a-z]{6}$"), got)
		})
	}
}

func TestCreateProfile(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	p, err := svc.CreateProfile(ctx, "u1", "Ana Kovač")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.IsPublic)
	assert.NotNil(t, p.Skills)

	free, err := svc.CheckUsernameAvailability(ctx, p.Username)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = svc.CheckUsernameAvailability(ctx, "someone-else")
	require.NoError(t, err)
	assert.True(t, free)
}

func TestGetPublicProfile_Visibility(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, "u1", "Ana")
	require.NoError(t, err)
	private := false
	_, err = svc.UpdatePublicProfile(ctx, "u1", domain.ProfileUpdate{IsPublic: &private})
	require.NoError(t, err)

	_, err = svc.GetPublicProfile(ctx, "u2", "u1")
	assert.ErrorIs(t, err, ErrProfilePrivate)

	own, err := svc.GetPublicProfile(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.False(t, own.IsPublic)

	_, err = svc.GetPublicProfile(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpdatePublicProfile_UsernameCollision(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	a, err := svc.CreateProfile(ctx, "u1", "Ana")
	require.NoError(t, err)
	_, err = svc.CreateProfile(ctx, "u2", "Ben")
	require.NoError(t, err)

	taken := a.Username
	_, err = svc.UpdatePublicProfile(ctx, "u2", domain.ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	mixed := "  Ben-Dev "
	bio := "hello"
	updated, err := svc.UpdatePublicProfile(ctx, "u2", domain.ProfileUpdate{Username: &mixed, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "ben-dev", updated.Username)
	assert.Equal(t, "hello", updated.Bio)

	d, err := svc.ParticipantDetails(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "ben-dev", d.Username)
	assert.Equal(t, "Ben", d.DisplayName)
}

func TestSearchUsers(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	for id, name := range map[string]string{"u1": "Ana Kovač", "u2": "Ivana Horvat", "u3": "Marko"} {
		_, err := svc.CreateProfile(ctx, id, name)
		require.NoError(t, err)
	}

	got, err := svc.SearchUsers(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.SearchUsers(ctx, " ANA ")
	require.NoError(t, err)
	ids := []string{}
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
}

func TestFeaturedUsers_Limit(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		_, err := svc.CreateProfile(ctx, id, "User "+id)
		require.NoError(t, err)
	}

	got, err := svc.FeaturedUsers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.FeaturedUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
