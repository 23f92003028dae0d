package notification

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	notificationport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/notification"
)

// LogSink writes notifications to the application log
type LogSink struct {
	logger coreport.Logger
}

var _ notificationport.NotificationSink = (*LogSink)(nil)

func NewLogSink(logger coreport.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, userID uint64, message string, severity entity.Severity) {
	fields := map[string]any{
		"user_id":  userID,
		"message":  message,
		"severity": string(severity),
	}
	switch severity {
	case entity.SeverityError:
		s.logger.Error("User notification", fields)
	case entity.SeverityWarning:
		s.logger.Warn("User notification", fields)
	default:
		s.logger.Info("User notification", fields)
	}
}

// Close has nothing to release
func (s *LogSink) Close(context.Context) error {
	return nil
}
