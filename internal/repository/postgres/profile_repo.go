package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
)

// ProfileRepo keeps the full profile document in a jsonb column and lifts the
// fields it filters on into their own columns.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, profile *domain.PublicProfile) error {
	profile.Username = strings.ToLower(profile.Username)
	query := `
		INSERT INTO public_profiles (id, username, is_public, profile, updated_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, profile.ID, profile.Username, profile.IsPublic, profile).
		Scan(&profile.UpdatedAt)
	return mapWriteError(err)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.PublicProfile, error) {
	return r.scanProfile(ctx, `SELECT profile, updated_at FROM public_profiles WHERE id = $1`, id)
}

func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (*domain.PublicProfile, error) {
	return r.scanProfile(ctx, `SELECT profile, updated_at FROM public_profiles WHERE username = $1`, strings.ToLower(username))
}

func (r *ProfileRepo) Update(ctx context.Context, profile *domain.PublicProfile) error {
	profile.Username = strings.ToLower(profile.Username)
	query := `
		UPDATE public_profiles
		SET username = $1, is_public = $2, profile = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, profile.Username, profile.IsPublic, profile, profile.ID).
		Scan(&profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return mapWriteError(err)
}

func (r *ProfileRepo) ListPublic(ctx context.Context, limit int) ([]domain.PublicProfile, error) {
	query := `SELECT profile, updated_at FROM public_profiles WHERE is_public`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.PublicProfile
	for rows.Next() {
		var p domain.PublicProfile
		if err := rows.Scan(&p, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) scanProfile(ctx context.Context, query string, arg any) (*domain.PublicProfile, error) {
	var p domain.PublicProfile
	err := r.pool.QueryRow(ctx, query, arg).Scan(&p, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
