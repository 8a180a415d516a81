package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/devaura/internal/changefeed"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/events"
	"github.com/vedran77/devaura/internal/repository"
	"github.com/vedran77/devaura/internal/repository/memory"
	"go.uber.org/zap"
)

var errBackend = errors.New("backend unavailable")

// tickingClock returns strictly increasing timestamps, one second apart.
func tickingClock() memory.Clock {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	convRepo  *countingConvRepo
	msgRepo   *countingMsgRepo
	broker    *countingBroker
	published *recordingPublisher
	convs     *ConversationService
	msgs      *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := tickingClock()

	f := &fixture{
		convRepo:  &countingConvRepo{ConversationRepository: memory.NewConversationRepo(clock)},
		msgRepo:   &countingMsgRepo{MessageRepository: memory.NewMessageRepo(clock)},
		broker:    &countingBroker{MemoryBroker: changefeed.NewMemoryBroker()},
		published: &recordingPublisher{},
	}
	f.convs = NewConversationService(f.convRepo, f.broker, f.published, zap.NewNop())
	f.msgs = NewMessageService(f.convRepo, f.msgRepo, f.broker, f.published, zap.NewNop())
	return f
}

func details(name string) domain.ParticipantDetails {
	return domain.ParticipantDetails{DisplayName: name, Username: name + "-abc123"}
}

// countingConvRepo counts calls and can be told to fail.
type countingConvRepo struct {
	repository.ConversationRepository
	calls      atomic.Int64
	failList   atomic.Bool
	failUpdate atomic.Bool
}

func (r *countingConvRepo) Create(ctx context.Context, c *domain.Conversation) error {
	r.calls.Add(1)
	return r.ConversationRepository.Create(ctx, c)
}

func (r *countingConvRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	r.calls.Add(1)
	return r.ConversationRepository.GetByID(ctx, id)
}

func (r *countingConvRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	r.calls.Add(1)
	if r.failList.Load() {
		return nil, errBackend
	}
	return r.ConversationRepository.ListByParticipant(ctx, userID)
}

func (r *countingConvRepo) UpdateLastMessage(ctx context.Context, id, text, senderID string) error {
	r.calls.Add(1)
	if r.failUpdate.Load() {
		return errBackend
	}
	return r.ConversationRepository.UpdateLastMessage(ctx, id, text, senderID)
}

type countingMsgRepo struct {
	repository.MessageRepository
	calls    atomic.Int64
	failList atomic.Bool
}

func (r *countingMsgRepo) Create(ctx context.Context, m *domain.Message) error {
	r.calls.Add(1)
	return r.MessageRepository.Create(ctx, m)
}

func (r *countingMsgRepo) ListByConversation(ctx context.Context, id string) ([]domain.Message, error) {
	r.calls.Add(1)
	if r.failList.Load() {
		return nil, errBackend
	}
	return r.MessageRepository.ListByConversation(ctx, id)
}

type countingBroker struct {
	*changefeed.MemoryBroker
	subscribes atomic.Int64
}

func (b *countingBroker) Subscribe(ctx context.Context, topic string) (changefeed.Subscription, error) {
	b.subscribes.Add(1)
	return b.MemoryBroker.Subscribe(ctx, topic)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// collector buffers snapshots delivered by a watch.
type collector[T any] struct {
	ch chan domain.Snapshot[T]
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{ch: make(chan domain.Snapshot[T], 64)}
}

func (c *collector[T]) fn(s domain.Snapshot[T]) { c.ch <- s }

func (c *collector[T]) next(t *testing.T) domain.Snapshot[T] {
	t.Helper()
	select {
	case s := <-c.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return domain.Snapshot[T]{}
	}
}

// until reads snapshots until one satisfies ok.
func (c *collector[T]) until(t *testing.T, ok func(domain.Snapshot[T]) bool) domain.Snapshot[T] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-c.ch:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return domain.Snapshot[T]{}
		}
	}
}

func (c *collector[T]) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case s := <-c.ch:
		t.Fatalf("unexpected snapshot with %d items", len(s.Items))
	case <-time.After(wait):
	}
}

func mustCreate(t *testing.T, f *fixture, a, b string) *domain.Conversation {
	t.Helper()
	conv, _, err := f.convs.GetOrCreateConversation(context.Background(), a, b, details(a), details(b))
	require.NoError(t, err)
	return conv
}
