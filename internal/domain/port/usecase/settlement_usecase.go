package usecase

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
)

// SubmitIntentRequest represents an incoming settlement intent
type SubmitIntentRequest struct {
	Kind               string
	SubjectUserID      uint64
	Amount             string
	Domain             string
	CounterpartyUserID *uint64
}

// SubmitIntentResult is returned once an intent is accepted
type SubmitIntentResult struct {
	IntentID string
	Status   entity.TransactionStatus
}

// QueueStatus reports the intent queue occupancy
type QueueStatus struct {
	QueueLength int
	Capacity    int
	Processing  bool
}

// SettlementUseCase defines methods for submitting and querying settlements
type SettlementUseCase interface {
	// SubmitIntent validates an intent, records it as pending and hands it to the worker.
	// Validation failures are returned synchronously and nothing is enqueued.
	SubmitIntent(ctx context.Context, req SubmitIntentRequest) (*SubmitIntentResult, error)

	// GetTransaction retrieves one record
	GetTransaction(ctx context.Context, id string) (*entity.TransactionRecord, error)

	// ListUserTransactions returns sent and received records for a user, newest first
	ListUserTransactions(ctx context.Context, userID uint64, limit int) ([]entity.UserTransaction, error)

	// ListTransactions returns every record, newest first
	ListTransactions(ctx context.Context, limit int) ([]*entity.TransactionRecord, error)

	// QueueStatus reports queue length and capacity
	QueueStatus() QueueStatus
}
