// Package changefeed carries "something changed under this key" signals from
// writers to live subscriptions. Signals carry no payload; subscribers re-read
// the store, so a burst of writes may collapse into a single signal.
package changefeed

import "context"

type Broker interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

type Subscription interface {
	// C receives one value per observed change. It is closed when the
	// subscription ends, either through Close or because the broker failed.
	C() <-chan struct{}
	// Err reports why C was closed, or nil after a plain Close.
	Err() error
	Close() error
}

func ConversationsTopic(userID string) string {
	return "conversations:" + userID
}

func MessagesTopic(conversationID string) string {
	return "messages:" + conversationID
}
