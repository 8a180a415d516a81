package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vedran77/devaura/internal/changefeed"
	"github.com/vedran77/devaura/internal/domain"
	"go.uber.org/zap"
)

// CancelFunc detaches a live subscription. It is safe to call more than once
// and from inside the subscription callback. Once it returns no further
// snapshot is loaded, but a delivery already handed to the callback may still
// be running; callers that swap subscriptions must discard late snapshots.
type CancelFunc func()

func noopCancel() {}

// emptyWatch answers a watch on an empty key: one empty snapshot delivered
// synchronously, no store or broker traffic.
func emptyWatch[T any](fn func(domain.Snapshot[T])) CancelFunc {
	fn(domain.Snapshot[T]{Items: []T{}})
	return noopCancel
}

// watch subscribes to topic, delivers the initial result of load and then a
// fresh full result after every change signal. All deliveries happen on one
// goroutine, in order. A failed subscribe or load delivers an empty snapshot
// carrying the error and ends the watch; nothing is retried.
func watch[T any](
	ctx context.Context,
	log *zap.Logger,
	broker changefeed.Broker,
	topic string,
	load func(context.Context) ([]T, error),
	fn func(domain.Snapshot[T]),
) CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	var stopped atomic.Bool

	deliver := func(s domain.Snapshot[T]) {
		if stopped.Load() {
			return
		}
		fn(s)
	}

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		log.Warn("watch failed", zap.String("topic", topic), zap.Error(err))
		deliver(domain.Snapshot[T]{Items: []T{}, Err: err})
	}

	refresh := func() bool {
		items, err := load(ctx)
		if err != nil {
			fail(err)
			return false
		}
		if items == nil {
			items = []T{}
		}
		deliver(domain.Snapshot[T]{Items: items})
		return true
	}

	go func() {
		// Subscribe before the first read so a write landing in between
		// still produces a signal.
		sub, err := broker.Subscribe(ctx, topic)
		if err != nil {
			fail(err)
			return
		}
		defer sub.Close()

		log.Debug("watch started", zap.String("topic", topic))
		defer log.Debug("watch stopped", zap.String("topic", topic))

		if !refresh() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C():
				if !ok {
					if err := sub.Err(); err != nil {
						fail(err)
					}
					return
				}
				if !refresh() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
		})
	}
}
