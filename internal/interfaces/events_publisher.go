package interfaces

import "context"

// EventPublisher emits pipeline lifecycle events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
