package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	chainport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/chain"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
)

// ChannelBridge is an in-process EventBridge fed by relayers through Publish
type ChannelBridge struct {
	deliveries chan chainport.Delivery
	done       chan struct{}
	logger     coreport.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ chainport.EventBridge = (*ChannelBridge)(nil)

// NewChannelBridge creates a bridge buffering up to buffer undelivered events
func NewChannelBridge(buffer int, logger coreport.Logger) *ChannelBridge {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelBridge{
		deliveries: make(chan chainport.Delivery, buffer),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Publish hands one event to the reconciler, blocking while the buffer is full
func (b *ChannelBridge) Publish(ctx context.Context, event entity.ChainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("%w: chain bridge closed", errs.ErrExternalUnavailable)
	}

	select {
	case b.deliveries <- chainport.Delivery{Event: event}:
		b.logger.Debug("Chain event published", map[string]any{
			"kind":         event.Kind,
			"external_ref": event.ExternalRef,
		})
		return nil
	case <-b.done:
		return fmt.Errorf("%w: chain bridge closed", errs.ErrExternalUnavailable)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliveries returns the stream
func (b *ChannelBridge) Deliveries() <-chan chainport.Delivery {
	return b.deliveries
}

// Run blocks until ctx is done and then closes the bridge
func (b *ChannelBridge) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-b.done:
	}
	return b.Close()
}

// Close rejects further publishes and closes the stream once in-flight publishes return
func (b *ChannelBridge) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		b.closed = true
		close(b.deliveries)
		b.mu.Unlock()
	})
	return nil
}
