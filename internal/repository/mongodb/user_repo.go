package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(UsersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	user.Email = strings.ToLower(user.Email)
	_, err := r.coll.InsertOne(ctx, user)
	return mapWriteError(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var u domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
