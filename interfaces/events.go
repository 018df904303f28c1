package interfaces

import (
	"context"
)

// EventPublisher pushes domain events out to the message broker.
type EventPublisher interface {
	PublishEmailReceived(ctx context.Context, emailID string, message interface{}) error
	Close() error
}
