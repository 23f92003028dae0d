package dto

import (
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
)

// IntentRequest represents the API request for submitting a settlement intent.
// Amount is a decimal string so that no precision is lost in transit.
type IntentRequest struct {
	Kind               string  `json:"kind" binding:"required,oneof=deposit withdraw transfer"`
	Amount             string  `json:"amount" binding:"required"`
	Domain             string  `json:"domain" binding:"required,oneof=internal external"`
	CounterpartyUserID *uint64 `json:"counterpartyUserId,omitempty"`
}

// IntentResponse is returned when an intent is accepted
type IntentResponse struct {
	IntentID string `json:"intentId"`
	Status   string `json:"status"`
}

// TransactionResponse represents one transaction record
type TransactionResponse struct {
	ID                 string    `json:"id"`
	SubjectUserID      uint64    `json:"subjectUserId"`
	Kind               string    `json:"kind"`
	Amount             string    `json:"amount"`
	Status             string    `json:"status"`
	LedgerDomain       string    `json:"ledgerDomain"`
	CounterpartyUserID *uint64   `json:"counterpartyUserId,omitempty"`
	ExternalRef        *string   `json:"externalRef,omitempty"`
	ExternalHeight     *uint64   `json:"externalHeight,omitempty"`
	ConfirmationRef    *string   `json:"confirmationRef,omitempty"`
	FailureReason      string    `json:"failureReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// UserTransactionResponse tags a record with the requesting user's side of it
type UserTransactionResponse struct {
	TransactionResponse
	IsReceived bool `json:"isReceived"`
}

// QueueStatusResponse reports intent queue occupancy
type QueueStatusResponse struct {
	QueueLength int  `json:"queueLength"`
	Capacity    int  `json:"capacity"`
	Processing  bool `json:"processing"`
}

func NewTransactionResponse(record *entity.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		ID:                 record.ID,
		SubjectUserID:      record.SubjectUserID,
		Kind:               string(record.Kind),
		Amount:             entity.FormatAmount(record.Amount),
		Status:             string(record.Status),
		LedgerDomain:       string(record.LedgerDomain),
		CounterpartyUserID: record.CounterpartyUserID,
		ExternalRef:        record.ExternalRef,
		ExternalHeight:     record.ExternalHeight,
		ConfirmationRef:    record.ConfirmationRef,
		FailureReason:      record.FailureReason,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

func NewUserTransactionResponses(items []entity.UserTransaction) []UserTransactionResponse {
	out := make([]UserTransactionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, UserTransactionResponse{
			TransactionResponse: NewTransactionResponse(item.Record),
			IsReceived:          item.IsReceived,
		})
	}
	return out
}

func NewTransactionResponses(records []*entity.TransactionRecord) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(records))
	for _, record := range records {
		out = append(out, NewTransactionResponse(record))
	}
	return out
}

func NewQueueStatusResponse(status usecase.QueueStatus) QueueStatusResponse {
	return QueueStatusResponse{
		QueueLength: status.QueueLength,
		Capacity:    status.Capacity,
		Processing:  status.Processing,
	}
}
