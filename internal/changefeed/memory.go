package changefeed

import (
	"context"
	"sync"
)

// MemoryBroker fans signals out to subscribers in the same process.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs[topic] {
		s.notify()
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (Subscription, error) {
	s := &memorySub{
		broker: b,
		topic:  topic,
		ch:     make(chan struct{}, 1),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySub]struct{})
	}
	b.subs[topic][s] = struct{}{}
	return s, nil
}

// Subscribers reports the number of live subscriptions on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

type memorySub struct {
	broker *MemoryBroker
	topic  string
	ch     chan struct{}
	once   sync.Once
}

// notify is called with the broker lock held, which also orders it against close.
func (s *memorySub) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
		// a signal is already pending; the reader will see the latest state
	}
}

func (s *memorySub) C() <-chan struct{} { return s.ch }

func (s *memorySub) Err() error { return nil }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs[s.topic], s)
		if len(b.subs[s.topic]) == 0 {
			delete(b.subs, s.topic)
		}
		close(s.ch)
	})
	return nil
}
