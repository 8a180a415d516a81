package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{coll: db.Collection(ConversationsCollection)}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	conv.ID = uuid.NewString()
	conv.CreatedAt = now
	conv.LastMessageTime = &now

	_, err := r.coll.InsertOne(ctx, conv)
	return mapWriteError(err)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var conv domain.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListByParticipant issues a plain array-membership filter with no sort.
func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, conversationID, text, senderID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	update := bson.M{
		"$set":         bson.M{"lastMessage": text, "lastMessageBy": senderID},
		"$currentDate": bson.M{"lastMessageTime": true},
	}
	res, err := r.coll.UpdateByID(ctx, conversationID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
