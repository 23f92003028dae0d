package persistence

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
)

// DeferredStore parks chain events whose participants are not linked to an account yet
type DeferredStore interface {
	// Park stores the event under the unresolved address. Parking the same event twice is a no-op.
	Park(ctx context.Context, address string, event entity.ChainEvent) error

	// Parked returns the events waiting on an address
	Parked(ctx context.Context, address string) ([]entity.ChainEvent, error)

	// Release removes one parked event
	Release(ctx context.Context, address, externalRef string) error

	// Close releases the underlying storage
	Close() error
}
