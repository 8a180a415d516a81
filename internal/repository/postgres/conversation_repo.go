package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/repository"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `id, participants, participant_details, last_message,
	last_message_time, last_message_by, created_at`

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (participants, participant_details, last_message, last_message_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, last_message_time`
	return r.pool.QueryRow(ctx, query,
		conv.Participants, conv.ParticipantDetails, conv.LastMessage, conv.LastMessageBy,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.LastMessageTime)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

// ListByParticipant has no ORDER BY; recency ordering happens in the caller.
func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE participants @> ARRAY[$1]::text[]`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, conversationID, text, senderID string) error {
	query := `
		UPDATE conversations
		SET last_message = $1, last_message_by = $2, last_message_time = now()
		WHERE id = $3`
	tag, err := r.pool.Exec(ctx, query, text, senderID, conversationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.Participants, &conv.ParticipantDetails, &conv.LastMessage,
		&conv.LastMessageTime, &conv.LastMessageBy, &conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
