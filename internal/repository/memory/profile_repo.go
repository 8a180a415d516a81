package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
)

type ProfileRepo struct {
	mu       sync.RWMutex
	now      Clock
	order    []string
	profiles map[string]*domain.PublicProfile
}

func NewProfileRepo(clock Clock) *ProfileRepo {
	if clock == nil {
		clock = systemClock
	}
	return &ProfileRepo{
		now:      clock,
		profiles: make(map[string]*domain.PublicProfile),
	}
}

func (r *ProfileRepo) Create(_ context.Context, profile *domain.PublicProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.ID]; ok {
		return repository.ErrDuplicate
	}
	if r.usernameTaken(profile.Username, profile.ID) {
		return repository.ErrDuplicate
	}

	profile.UpdatedAt = r.now()
	r.profiles[profile.ID] = cloneProfile(profile)
	r.order = append(r.order, profile.ID)
	return nil
}

func (r *ProfileRepo) GetByID(_ context.Context, id string) (*domain.PublicProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p), nil
}

func (r *ProfileRepo) GetByUsername(_ context.Context, username string) (*domain.PublicProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		p := r.profiles[id]
		if strings.EqualFold(p.Username, username) {
			return cloneProfile(p), nil
		}
	}
	return nil, nil
}

func (r *ProfileRepo) Update(_ context.Context, profile *domain.PublicProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.usernameTaken(profile.Username, profile.ID) {
		return repository.ErrDuplicate
	}

	profile.UpdatedAt = r.now()
	r.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (r *ProfileRepo) ListPublic(_ context.Context, limit int) ([]domain.PublicProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PublicProfile
	for _, id := range r.order {
		p := r.profiles[id]
		if !p.IsPublic {
			continue
		}
		out = append(out, *cloneProfile(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *ProfileRepo) usernameTaken(username, ownerID string) bool {
	for id, p := range r.profiles {
		if id != ownerID && strings.EqualFold(p.Username, username) {
			return true
		}
	}
	return false
}

func cloneProfile(p *domain.PublicProfile) *domain.PublicProfile {
	out := *p
	out.Skills = slices.Clone(p.Skills)
	out.Achievements = slices.Clone(p.Achievements)
	out.Experience = slices.Clone(p.Experience)
	out.Certifications = slices.Clone(p.Certifications)
	out.Projects = slices.Clone(p.Projects)
	for i := range out.Projects {
		out.Projects[i].Technologies = slices.Clone(p.Projects[i].Technologies)
		out.Projects[i].Files = slices.Clone(p.Projects[i].Files)
	}
	return &out
}
