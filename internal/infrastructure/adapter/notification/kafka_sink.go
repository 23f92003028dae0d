package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	notificationport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/notification"
)

const (
	defaultSinkBuffer = 256
	writeTimeout      = 5 * time.Second
)

// KafkaConfig selects the topic user notifications are published to
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Buffer  int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes notifications as JSON keyed by user id.
// Notify only enqueues; a background loop performs the writes.
type KafkaSink struct {
	writer   messageWriter
	logger   coreport.Logger
	queue    chan kafka.Message
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

var _ notificationport.NotificationSink = (*KafkaSink)(nil)

// NewKafkaSink creates a hash-balanced writer so one user's notifications stay ordered
func NewKafkaSink(config KafkaConfig, logger coreport.Logger) (*KafkaSink, error) {
	if strings.TrimSpace(config.Topic) == "" {
		return nil, errors.New("notification topic must not be empty")
	}
	if len(config.Brokers) == 0 {
		return nil, errors.New("at least one notification broker is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	logger.Info("Notification publisher configured", map[string]any{
		"topic":   config.Topic,
		"brokers": strings.Join(config.Brokers, ","),
	})
	return newKafkaSink(writer, config.Buffer, logger), nil
}

func newKafkaSink(writer messageWriter, buffer int, logger coreport.Logger) *KafkaSink {
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	sink := &KafkaSink{
		writer: writer,
		logger: logger,
		queue:  make(chan kafka.Message, buffer),
		done:   make(chan struct{}),
	}
	go sink.run()
	return sink
}

// Notify enqueues the message. A full queue drops it with a warning.
func (s *KafkaSink) Notify(_ context.Context, userID uint64, message string, severity entity.Severity) {
	payload, err := json.Marshal(entity.Notification{UserID: userID, Message: message, Severity: severity})
	if err != nil {
		s.logger.Error("Failed to encode notification", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}
	msg := kafka.Message{Key: []byte(strconv.FormatUint(userID, 10)), Value: payload}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("Notification dropped after shutdown", map[string]any{"user_id": userID})
		return
	}
	select {
	case s.queue <- msg:
	default:
		s.logger.Warn("Notification queue full, dropping message", map[string]any{
			"user_id":  userID,
			"severity": string(severity),
		})
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			s.logger.Warn("Failed to publish notification", map[string]any{
				"key":   string(msg.Key),
				"error": err.Error(),
			})
		}
	}
}

// Close stops accepting notifications, drains the queue, and closes the writer.
// It gives up waiting for the drain when ctx ends.
func (s *KafkaSink) Close(ctx context.Context) error {
	var closeErr error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		select {
		case <-s.done:
		case <-ctx.Done():
			s.logger.Warn("Notification drain interrupted", map[string]any{"pending": len(s.queue)})
		}
		closeErr = s.writer.Close()
	})
	return closeErr
}
