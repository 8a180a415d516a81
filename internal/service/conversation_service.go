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

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
)

// defaultPublishTimeout bounds how long a write waits on the event bus after
// its data is stored.
const defaultPublishTimeout = 3 * time.Second

type ConversationService struct {
	convRepo       repository.ConversationRepository
	broker         changefeed.Broker
	events         events.Publisher
	publishTimeout time.Duration
	log            *zap.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	broker changefeed.Broker,
	publisher events.Publisher,
	log *zap.Logger,
) *ConversationService {
	return &ConversationService{
		convRepo:       convRepo,
		broker:         broker,
		events:         publisher,
		publishTimeout: defaultPublishTimeout,
		log:            log,
	}
}

// GetOrCreateConversation returns the conversation between the two users,
// creating it if none exists. created reports whether a new record was written.
//
// The lookup lists every conversation of currentUserID and scans for
// otherUserID, so argument order does not matter. An existing record is
// returned unchanged; its participant details are not refreshed. Lookup and
// insert are not atomic: two simultaneous first calls for the same pair can
// each create a record.
func (s *ConversationService) GetOrCreateConversation(
	ctx context.Context,
	currentUserID, otherUserID string,
	currentDetails, otherDetails domain.ParticipantDetails,
) (conv *domain.Conversation, created bool, err error) {
	fresh, err := domain.NewConversation(currentUserID, otherUserID, currentDetails, otherDetails)
	if err != nil {
		return nil, false, err
	}

	convs, err := s.convRepo.ListByParticipant(ctx, currentUserID)
	if err != nil {
		return nil, false, fmt.Errorf("listing conversations: %w", err)
	}

	// Later matches win, mirroring a full scan that keeps the last hit.
	var existing *domain.Conversation
	for i := range convs {
		if convs[i].HasParticipant(otherUserID) {
			existing = &convs[i]
		}
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := s.convRepo.Create(ctx, fresh); err != nil {
		return nil, false, fmt.Errorf("creating conversation: %w", err)
	}
	s.log.Info("conversation created",
		zap.String("conversation_id", fresh.ID),
		zap.Strings("participants", fresh.Participants),
	)

	for _, p := range fresh.Participants {
		s.signal(ctx, changefeed.ConversationsTopic(p))
	}
	s.emit(ctx, events.Event{
		Type:           events.TypeConversationCreated,
		ConversationID: fresh.ID,
		ActorID:        currentUserID,
		Participants:   fresh.Participants,
		OccurredAt:     fresh.CreatedAt,
	})

	return fresh, true, nil
}

// GetConversation returns the conversation with the given id.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// GetConversationFor is GetConversation restricted to participants.
func (s *ConversationService) GetConversationFor(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// ListConversations returns userID's conversations, most recent first.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	domain.SortByRecency(convs)
	return convs, nil
}

// WatchConversations delivers userID's conversations, most recent first, now
// and after every change until the returned CancelFunc is called or ctx ends.
// An empty userID yields one empty snapshot and touches nothing.
func (s *ConversationService) WatchConversations(
	ctx context.Context,
	userID string,
	fn func(domain.Snapshot[domain.Conversation]),
) CancelFunc {
	if userID == "" {
		return emptyWatch(fn)
	}

	return watch(ctx, s.log, s.broker, changefeed.ConversationsTopic(userID),
		func(ctx context.Context) ([]domain.Conversation, error) {
			convs, err := s.convRepo.ListByParticipant(ctx, userID)
			if err != nil {
				return nil, err
			}
			domain.SortByRecency(convs)
			return convs, nil
		},
		fn,
	)
}

func (s *ConversationService) signal(ctx context.Context, topic string) {
	if err := s.broker.Publish(ctx, topic); err != nil {
		s.log.Warn("changefeed publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *ConversationService) emit(ctx context.Context, evt events.Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	publishEvent(ctx, s.events, s.publishTimeout, s.log, evt)
}

// publishEvent hands evt to the bus, giving up after timeout. Failures are
// logged only; the write that produced evt has already succeeded.
func publishEvent(ctx context.Context, p events.Publisher, timeout time.Duration, log *zap.Logger, evt events.Event) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Publish(ctx, evt); err != nil {
		log.Warn("event publish failed", zap.String("type", evt.Type), zap.Error(err))
	}
}
