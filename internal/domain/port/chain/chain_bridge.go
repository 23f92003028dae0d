package chain

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
)

// Delivery is one chain event handed to the reconciler.
// Ack must be called once the event has been applied, deferred or discarded;
// an unacknowledged delivery is redelivered after a bridge restart.
type Delivery struct {
	Event entity.ChainEvent
	Ack   func(ctx context.Context) error
}

// EventBridge produces an at-least-once, unordered stream of chain events
type EventBridge interface {
	// Deliveries returns the stream. It is closed when the bridge stops.
	Deliveries() <-chan Delivery

	// Run pumps events into the stream until ctx is done
	Run(ctx context.Context) error

	// Close stops the bridge and releases its connections
	Close() error
}
