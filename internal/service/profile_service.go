package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"regexp"
	"strings"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfilePrivate  = errors.New("this profile is private")
	ErrUsernameTaken   = errors.New("username already taken")
)

const (
	usernameAttempts    = 10
	usernameSuffixLen   = 6
	minSearchTermLength = 2
	defaultFeaturedSize = 20
	base36Alphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// ProfileService is the user directory: public profiles, username
// allocation, search, and the display snapshots copied onto conversations.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	log         *zap.Logger
}

func NewProfileService(profileRepo repository.ProfileRepository, log *zap.Logger) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, log: log}
}

// CreateProfile creates userID's public profile with a generated username.
func (s *ProfileService) CreateProfile(ctx context.Context, userID, displayName string) (*domain.PublicProfile, error) {
	username, err := s.allocateUsername(ctx, displayName)
	if err != nil {
		return nil, err
	}

	profile := domain.NewPublicProfile(userID, displayName, username)
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return profile, nil
}

// CheckUsernameAvailability reports whether no profile uses username,
// ignoring case.
func (s *ProfileService) CheckUsernameAvailability(ctx context.Context, username string) (bool, error) {
	p, err := s.profileRepo.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return false, err
	}
	return p == nil, nil
}

// GetOwnProfile returns userID's profile regardless of visibility.
func (s *ProfileService) GetOwnProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// GetPublicProfile returns userID's profile as seen by viewerID. Private
// profiles are only visible to their owner.
func (s *ProfileService) GetPublicProfile(ctx context.Context, viewerID, userID string) (*domain.PublicProfile, error) {
	p, err := s.GetOwnProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && viewerID != userID {
		return nil, ErrProfilePrivate
	}
	return p, nil
}

// UpdatePublicProfile applies a partial update. A username change must not
// collide with another profile.
func (s *ProfileService) UpdatePublicProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.PublicProfile, error) {
	p, err := s.GetOwnProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		lower := strings.ToLower(strings.TrimSpace(*update.Username))
		update.Username = &lower
		if lower != p.Username {
			owner, err := s.profileRepo.GetByUsername(ctx, lower)
			if err != nil {
				return nil, err
			}
			if owner != nil && owner.ID != userID {
				return nil, ErrUsernameTaken
			}
		}
	}

	update.Apply(p)
	if err := s.profileRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return p, nil
}

// ParticipantDetails returns the display snapshot for userID.
func (s *ProfileService) ParticipantDetails(ctx context.Context, userID string) (domain.ParticipantDetails, error) {
	p, err := s.GetOwnProfile(ctx, userID)
	if err != nil {
		return domain.ParticipantDetails{}, err
	}
	return p.Details(), nil
}

// SearchUsers matches term against display names and usernames of public
// profiles, ignoring case. Terms shorter than two characters match nothing.
func (s *ProfileService) SearchUsers(ctx context.Context, term string) ([]domain.PublicProfile, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if len([]rune(term)) < minSearchTermLength {
		return []domain.PublicProfile{}, nil
	}

	profiles, err := s.profileRepo.ListPublic(ctx, 0)
	if err != nil {
		return nil, err
	}

	matches := []domain.PublicProfile{}
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.DisplayName), term) ||
			strings.Contains(strings.ToLower(p.Username), term) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// FeaturedUsers returns up to limit public profiles in random order.
func (s *ProfileService) FeaturedUsers(ctx context.Context, limit int) ([]domain.PublicProfile, error) {
	if limit <= 0 {
		limit = defaultFeaturedSize
	}

	profiles, err := s.profileRepo.ListPublic(ctx, limit)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []domain.PublicProfile{}
	}

	mrand.Shuffle(len(profiles), func(i, j int) {
		profiles[i], profiles[j] = profiles[j], profiles[i]
	})
	return profiles, nil
}

// allocateUsername tries up to usernameAttempts candidates and returns the
// first free one. If all are taken the last candidate is returned and the
// unique index decides.
func (s *ProfileService) allocateUsername(ctx context.Context, displayName string) (string, error) {
	var candidate string
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		var err error
		candidate, err = GenerateUsername(displayName)
		if err != nil {
			return "", err
		}
		free, err := s.CheckUsernameAvailability(ctx, candidate)
		if err != nil {
			s.log.Warn("username availability check failed", zap.String("username", candidate), zap.Error(err))
			continue
		}
		if free {
			return candidate, nil
		}
	}
	return candidate, nil
}

// GenerateUsername derives "<first word>-<6 random base36 chars>" from a
// display name, keeping only lowercase letters and digits of the first word.
func GenerateUsername(displayName string) (string, error) {
	first := ""
	if fields := strings.Fields(strings.ToLower(displayName)); len(fields) > 0 {
		first = fields[0]
	}
	base := nonAlnum.ReplaceAllString(first, "")
	if base == "" {
		base = "user"
	}

	suffix := make([]byte, usernameSuffixLen)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	return base + "-" + string(suffix), nil
}
