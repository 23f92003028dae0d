package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/logger"
)

func TestChannelBridgePublish(t *testing.T) {
	bridge := NewChannelBridge(1, logger.NewNoopLogger())
	event := entity.ChainEvent{Kind: entity.ChainUserRegistered, ExternalRef: "0xreg"}

	require.NoError(t, bridge.Publish(context.Background(), event))

	delivery := <-bridge.Deliveries()
	assert.Equal(t, "0xreg", delivery.Event.ExternalRef)
	assert.Nil(t, delivery.Ack)
}

func TestChannelBridgePublishBlocksUntilContextEnds(t *testing.T) {
	bridge := NewChannelBridge(0, logger.NewNoopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bridge.Publish(ctx, entity.ChainEvent{ExternalRef: "0x1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelBridgeClose(t *testing.T) {
	bridge := NewChannelBridge(0, logger.NewNoopLogger())

	blocked := make(chan error, 1)
	go func() {
		blocked <- bridge.Publish(context.Background(), entity.ChainEvent{ExternalRef: "0x1"})
	}()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- bridge.Run(ctx) }()
	cancel()

	require.NoError(t, <-runDone)
	err := <-blocked
	if err != nil {
		assert.True(t, errs.IsRetryable(err))
	}

	err = bridge.Publish(context.Background(), entity.ChainEvent{ExternalRef: "0x2"})
	assert.True(t, errs.IsRetryable(err))

	for range bridge.Deliveries() {
	}
	assert.NoError(t, bridge.Close())
}
