package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// TransactionStatus defines possible status values for a transaction record
type TransactionStatus string

// TransactionStatus constants
const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
)

// IsTerminal returns true if no further transition is allowed from the status
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from→to moves the record forward.
// The normal path is pending→processing→completed or pending→processing→failed.
// pending→failed is the one shortcut: it closes an intent the worker never started,
// either because the queue refused it or because the store could not mark it processing.
func CanTransition(from, to TransactionStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// TransactionRecord is one settlement intent or one reconciled external fact
type TransactionRecord struct {
	ID                 string
	SubjectUserID      uint64
	Kind               Kind
	Amount             decimal.Decimal
	Status             TransactionStatus
	LedgerDomain       LedgerDomain
	CounterpartyUserID *uint64
	ExternalRef        *string // proof-of-settlement id on the external ledger, globally unique
	ExternalHeight     *uint64
	ConfirmationRef    *string // externalRef of the fact that confirmed an external-domain intent
	FailureReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewPendingRecord creates the record for a freshly accepted intent
func NewPendingRecord(intent *Intent) *TransactionRecord {
	record := &TransactionRecord{
		ID:            intent.ID(),
		SubjectUserID: intent.SubjectUserID(),
		Kind:          intent.Kind(),
		Amount:        intent.Amount(),
		Status:        StatusPending,
		LedgerDomain:  intent.Domain(),
		CreatedAt:     intent.SubmittedAt(),
		UpdatedAt:     intent.SubmittedAt(),
	}
	if counterparty, ok := intent.CounterpartyUserID(); ok {
		record.CounterpartyUserID = &counterparty
	}
	return record
}

// NewReconciledRecord creates an external-domain record that is already completed
func NewReconciledRecord(
	id string,
	kind Kind,
	subjectUserID uint64,
	counterpartyUserID *uint64,
	amount decimal.Decimal,
	externalRef string,
	externalHeight uint64,
	observedAt time.Time,
) (*TransactionRecord, error) {
	if externalRef == "" {
		return nil, errs.NewValidationError("externalRef", "must not be empty", nil)
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, errs.NewValidationError("amount", "must be positive", err)
	}
	if kind == KindTransfer && counterpartyUserID == nil {
		return nil, errs.NewValidationError("counterpartyUserId", "required for transfers", errs.ErrInvalidUserID)
	}

	ref := externalRef
	height := externalHeight
	return &TransactionRecord{
		ID:                 id,
		SubjectUserID:      subjectUserID,
		Kind:               kind,
		Amount:             amount,
		Status:             StatusCompleted,
		LedgerDomain:       DomainExternal,
		CounterpartyUserID: counterpartyUserID,
		ExternalRef:        &ref,
		ExternalHeight:     &height,
		CreatedAt:          observedAt,
		UpdatedAt:          observedAt,
	}, nil
}

// Transition moves the record to status, failing on any regression
func (r *TransactionRecord) Transition(to TransactionStatus, reason string, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrIllegalTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = at
	if to == StatusFailed {
		r.FailureReason = reason
	}
	return nil
}

// Involves returns true if the user is the subject or the counterparty
func (r *TransactionRecord) Involves(userID uint64) bool {
	return r.SubjectUserID == userID || r.IsReceivedBy(userID)
}

// IsReceivedBy returns true if the user is the receiving side of a transfer
func (r *TransactionRecord) IsReceivedBy(userID uint64) bool {
	return r.CounterpartyUserID != nil && *r.CounterpartyUserID == userID && r.SubjectUserID != userID
}

// AwaitsConfirmation returns true for an external-domain intent still waiting for its fact
func (r *TransactionRecord) AwaitsConfirmation() bool {
	return r.LedgerDomain == DomainExternal && r.ExternalRef == nil && r.Status == StatusProcessing
}

// Matches reports whether a reconciled fact corroborates this awaiting intent
func (r *TransactionRecord) Matches(fact *TransactionRecord) bool {
	return MatchOf(r).Matches(fact)
}

// FactMatch selects reconciled facts or awaiting intents by their economic content
type FactMatch struct {
	Kind               Kind
	SubjectUserID      uint64
	CounterpartyUserID *uint64
	Amount             decimal.Decimal
	NotBefore          time.Time // zero means unbounded
}

// Matches reports whether the record moves the same value between the same users
// and was created no earlier than NotBefore
func (m FactMatch) Matches(r *TransactionRecord) bool {
	if m.Kind != r.Kind || m.SubjectUserID != r.SubjectUserID || !m.Amount.Equal(r.Amount) {
		return false
	}
	if !m.NotBefore.IsZero() && r.CreatedAt.Before(m.NotBefore) {
		return false
	}
	if m.CounterpartyUserID == nil || r.CounterpartyUserID == nil {
		return m.CounterpartyUserID == nil && r.CounterpartyUserID == nil
	}
	return *m.CounterpartyUserID == *r.CounterpartyUserID
}

// MatchOf returns the match criteria for a record
func MatchOf(r *TransactionRecord) FactMatch {
	return FactMatch{
		Kind:               r.Kind,
		SubjectUserID:      r.SubjectUserID,
		CounterpartyUserID: r.CounterpartyUserID,
		Amount:             r.Amount,
	}
}

// UserTransaction is a record as seen by one user
type UserTransaction struct {
	Record     *TransactionRecord
	IsReceived bool
}
