package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vedran77/devaura/internal/changefeed"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/events"
	"github.com/vedran77/devaura/internal/repository"
	"go.uber.org/zap"
)

// ErrSummaryStale means the message was stored but the conversation's
// last-message fields were not updated.
var ErrSummaryStale = errors.New("message stored but conversation summary not updated")

type MessageService struct {
	convRepo       repository.ConversationRepository
	msgRepo        repository.MessageRepository
	broker         changefeed.Broker
	events         events.Publisher
	publishTimeout time.Duration
	log            *zap.Logger
}

func NewMessageService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	broker changefeed.Broker,
	publisher events.Publisher,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		convRepo:       convRepo,
		msgRepo:        msgRepo,
		broker:         broker,
		events:         publisher,
		publishTimeout: defaultPublishTimeout,
		log:            log,
	}
}

// SendMessage appends a message to the conversation and then updates the
// conversation's lastMessage, lastMessageTime and lastMessageBy.
//
// The two writes are not atomic. If the second fails the returned message is
// non-nil and the error wraps ErrSummaryStale. Text is stored as given; callers
// validate it. Nothing is retried.
func (s *MessageService) SendMessage(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error) {
	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	s.signal(ctx, changefeed.MessagesTopic(conversationID))

	if err := s.convRepo.UpdateLastMessage(ctx, conversationID, text, senderID); err != nil {
		s.log.Error("conversation summary left stale",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return msg, fmt.Errorf("%w: %w", ErrSummaryStale, err)
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	switch {
	case err != nil:
		s.log.Warn("loading conversation for feed signal", zap.String("conversation_id", conversationID), zap.Error(err))
	case conv != nil:
		for _, p := range conv.Participants {
			s.signal(ctx, changefeed.ConversationsTopic(p))
		}
	}

	evt := events.Event{
		Type:           events.TypeMessageSent,
		ConversationID: conversationID,
		ActorID:        senderID,
		Message:        msg,
		OccurredAt:     msg.CreatedAt,
	}
	if conv != nil {
		evt.Participants = conv.Participants
	}
	publishEvent(ctx, s.events, s.publishTimeout, s.log, evt)

	return msg, nil
}

// ListMessages returns the conversation's messages, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	msgs, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// WatchMessages delivers the conversation's messages, oldest first, now and
// after every change until the returned CancelFunc is called or ctx ends.
// An empty conversationID yields one empty snapshot and touches nothing.
func (s *MessageService) WatchMessages(
	ctx context.Context,
	conversationID string,
	fn func(domain.Snapshot[domain.Message]),
) CancelFunc {
	if conversationID == "" {
		return emptyWatch(fn)
	}

	return watch(ctx, s.log, s.broker, changefeed.MessagesTopic(conversationID),
		func(ctx context.Context) ([]domain.Message, error) {
			return s.msgRepo.ListByConversation(ctx, conversationID)
		},
		fn,
	)
}

func (s *MessageService) signal(ctx context.Context, topic string) {
	if err := s.broker.Publish(ctx, topic); err != nil {
		s.log.Warn("changefeed publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
