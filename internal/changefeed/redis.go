package changefeed

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker relays signals over Redis pub/sub so every server instance sees
// writes made by the others.
type RedisBroker struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisBroker(client *redis.Client, prefix string, log *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix, log: log}
}

func (b *RedisBroker) channel(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + ":" + topic
}

func (b *RedisBroker) Publish(ctx context.Context, topic string) error {
	return b.client.Publish(ctx, b.channel(topic), "1").Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel(topic))
	// Wait for the confirmation so no publish between here and the first
	// read of the store is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	s := &redisSub{
		ps:   ps,
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run(b.log.With(zap.String("topic", topic)))
	return s, nil
}

type redisSub struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

func (s *redisSub) run(log *zap.Logger) {
	defer close(s.ch)

	for {
		msg, err := s.ps.ReceiveMessage(context.Background())
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Warn("changefeed subscription lost", zap.Error(err))
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}
		if msg == nil {
			continue
		}
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

func (s *redisSub) C() <-chan struct{} { return s.ch }

func (s *redisSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
