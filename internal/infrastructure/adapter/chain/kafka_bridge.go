package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	chainport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/chain"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 10 * time.Second
)

// messageReader is the subset of *kafka.Reader the bridge uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig groups the consumer settings for the chain event topic
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Buffer  int
}

// KafkaBridge consumes chain events from a Kafka topic.
// A message offset is committed only when the reconciler acknowledges its delivery,
// so anything in flight at a crash is redelivered.
type KafkaBridge struct {
	reader         messageReader
	deliveries     chan chainport.Delivery
	logger         coreport.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	closeOnce      sync.Once
}

var _ chainport.EventBridge = (*KafkaBridge)(nil)

// NewKafkaBridge creates a consumer-group reader for the configured topic
func NewKafkaBridge(config KafkaConfig, logger coreport.Logger) *KafkaBridge {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		GroupID:     config.GroupID,
		GroupTopics: []string{config.Topic},
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaBridge(reader, config.Buffer, logger)
}

func newKafkaBridge(reader messageReader, buffer int, logger coreport.Logger) *KafkaBridge {
	if buffer < 0 {
		buffer = 0
	}
	return &KafkaBridge{
		reader:         reader,
		deliveries:     make(chan chainport.Delivery, buffer),
		logger:         logger,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Deliveries returns the stream of decoded events
func (b *KafkaBridge) Deliveries() <-chan chainport.Delivery {
	return b.deliveries
}

// Run fetches messages until ctx is done, then closes the stream
func (b *KafkaBridge) Run(ctx context.Context) error {
	defer close(b.deliveries)
	b.logger.Info("Chain event consumer started", nil)

	backoff := b.initialBackoff
	for {
		msg, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				b.logger.Info("Chain event consumer stopped", map[string]any{"reason": "context"})
				return nil
			}
			if errors.Is(err, io.EOF) {
				b.logger.Info("Chain event consumer stopped", map[string]any{"reason": "reader closed"})
				return nil
			}

			b.logger.Error("Failed to fetch chain event", map[string]any{
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
			select {
			case <-time.After(backoff):
				if backoff < b.maxBackoff {
					backoff *= 2
					if backoff > b.maxBackoff {
						backoff = b.maxBackoff
					}
				}
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = b.initialBackoff

		var event entity.ChainEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// an undecodable message can never succeed; commit it so the partition keeps moving
			b.logger.Error("Discarding undecodable chain event", map[string]any{
				"error":     err.Error(),
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
			if err := b.reader.CommitMessages(ctx, msg); err != nil {
				b.logger.Warn("Failed to commit discarded chain event", map[string]any{"error": err.Error()})
			}
			continue
		}

		delivery := chainport.Delivery{
			Event: event,
			Ack: func(ackCtx context.Context) error {
				return b.reader.CommitMessages(ackCtx, msg)
			},
		}
		select {
		case b.deliveries <- delivery:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the reader
func (b *KafkaBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.reader.Close()
	})
	return err
}
