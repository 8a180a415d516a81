package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepo stores usernames lowercased so the unique index is
// case-insensitive.
type ProfileRepo struct {
	coll *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) *ProfileRepo {
	return &ProfileRepo{coll: db.Collection(ProfilesCollection)}
}

func (r *ProfileRepo) Create(ctx context.Context, profile *domain.PublicProfile) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	profile.Username = strings.ToLower(profile.Username)
	profile.UpdatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, profile)
	return mapWriteError(err)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.PublicProfile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (*domain.PublicProfile, error) {
	return r.findOne(ctx, bson.M{"username": strings.ToLower(username)})
}

func (r *ProfileRepo) Update(ctx context.Context, profile *domain.PublicProfile) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	profile.Username = strings.ToLower(profile.Username)
	profile.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile)
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) ListPublic(ctx context.Context, limit int) ([]domain.PublicProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"isPublic": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []domain.PublicProfile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *ProfileRepo) findOne(ctx context.Context, filter bson.M) (*domain.PublicProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var p domain.PublicProfile
	if err := r.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
