package notification

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
)

// NotificationSink delivers user-facing status messages.
// Delivery is fire-and-forget: implementations log their own failures and never return them.
type NotificationSink interface {
	Notify(ctx context.Context, userID uint64, message string, severity entity.Severity)
}
