// Package mongodb stores conversations, messages, users and public profiles in
// MongoDB collections.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/devaura/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ConversationsCollection = "conversations"
	MessagesCollection      = "messages"
	UsersCollection         = "users"
	ProfilesCollection      = "publicProfiles"

	readTimeout  = 5 * time.Second
	writeTimeout = 3 * time.Second
)

// EnsureIndexes creates the indexes the repositories rely on. Conversations
// only get a multikey index on participants; recency ordering is done by the
// caller so no compound index is needed.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		ConversationsCollection: {
			{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetName("participants_idx")},
		},
		MessagesCollection: {
			{
				Keys:    bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("conversation_created_idx"),
			},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_uniq").SetUnique(true)},
		},
		ProfilesCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("username_uniq").SetUnique(true)},
			{Keys: bson.D{{Key: "isPublic", Value: 1}}, Options: options.Index().SetName("public_idx")},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
