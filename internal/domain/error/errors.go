package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeValidation          = 4000
	CodeInsufficientFunds   = 4001
	CodeInvalidAmount       = 4002
	CodeInvalidUserID       = 4003
	CodeSelfTransfer        = 4004
	CodeAddressNotLinked    = 4005
	CodeDuplicateAccount    = 4090
	CodeAddressInUse        = 4091
	CodeIllegalTransition   = 4092
	CodeAccountNotFound     = 4040
	CodeTransactionNotFound = 4041

	// 5xxx - Server errors
	CodeInternal            = 5000
	CodeQueueSaturated      = 5030
	CodeQueueClosed         = 5031
	CodeExternalUnavailable = 5032
	CodeProcessingTimeout   = 5040
	CodeUnconfirmedTimeout  = 5041
)

// Base error types
var (
	// ErrValidation is returned when an intent is malformed or structurally invalid
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAmount is returned when the amount is not a positive decimal
	ErrInvalidAmount = errors.New("amount must be a positive decimal")

	// ErrInvalidUserID is returned when the user ID is not a positive integer
	ErrInvalidUserID = errors.New("user ID must be positive")

	// ErrInvalidKind is returned when the intent or event kind is unknown
	ErrInvalidKind = errors.New("invalid settlement kind")

	// ErrInvalidDomain is returned when the ledger domain is unknown
	ErrInvalidDomain = errors.New("invalid ledger domain")

	// ErrSelfTransfer is returned when a transfer names the subject as counterparty
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrQueueSaturated is returned when the intent queue is at capacity
	ErrQueueSaturated = errors.New("intent queue saturated")

	// ErrQueueClosed is returned when the intent queue no longer accepts intents
	ErrQueueClosed = errors.New("intent queue closed")

	// ErrInsufficientFunds is returned when the balance does not cover the amount
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrExternalUnavailable is returned when the store or the external ledger cannot be reached
	ErrExternalUnavailable = errors.New("external dependency unavailable")

	// ErrDuplicateExternalRef is returned when a record with the same external reference exists
	ErrDuplicateExternalRef = errors.New("external reference already recorded")

	// ErrUnconfirmedTimeout is returned when an external intent was not confirmed in time
	ErrUnconfirmedTimeout = errors.New("not confirmed by external ledger")

	// ErrProcessingTimeout is returned when processing an intent exceeded its budget
	ErrProcessingTimeout = errors.New("processing timed out")

	// ErrAccountNotFound is returned when the requested account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrIllegalTransition is returned when a status change would regress a record
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrAddressNotLinked is returned when an external operation needs a linked address
	ErrAddressNotLinked = errors.New("external address not linked")

	// ErrAddressInUse is returned when the address is linked to another account
	ErrAddressInUse = errors.New("external address already linked to another account")

	// ErrInvalidAddress is returned when an external address is malformed
	ErrInvalidAddress = errors.New("invalid external address")

	// ErrDuplicateAccount is returned when trying to create an account that already exists
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInternal is returned for unexpected server-side errors
	ErrInternal = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidUserID):
		return CodeInvalidUserID
	case errors.Is(err, ErrSelfTransfer):
		return CodeSelfTransfer
	case errors.Is(err, ErrAddressNotLinked):
		return CodeAddressNotLinked
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrDuplicateAccount):
		return CodeDuplicateAccount
	case errors.Is(err, ErrAddressInUse):
		return CodeAddressInUse
	case errors.Is(err, ErrIllegalTransition):
		return CodeIllegalTransition
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrQueueSaturated):
		return CodeQueueSaturated
	case errors.Is(err, ErrQueueClosed):
		return CodeQueueClosed
	case errors.Is(err, ErrExternalUnavailable):
		return CodeExternalUnavailable
	case errors.Is(err, ErrProcessingTimeout):
		return CodeProcessingTimeout
	case errors.Is(err, ErrUnconfirmedTimeout):
		return CodeUnconfirmedTimeout
	default:
		return CodeInternal
	}
}

// ValidationError describes which field of an intent was rejected and why
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the underlying cause
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *ValidationError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "validation_error",
		"field":      e.Field,
		"reason":     e.Reason,
		"error_code": ErrorCode(e),
	}
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, reason string, cause error) error {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

// InsufficientFundsError provides detailed error information for insufficient funds
type InsufficientFundsError struct {
	UserID    uint64
	Amount    string
	Available string
}

// Error implements the error interface
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d: required %s, available %s",
		e.UserID, e.Amount, e.Available)
}

// Is checks if the target error is an ErrInsufficientFunds
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientFundsError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "insufficient_funds",
		"user_id":    e.UserID,
		"amount":     e.Amount,
		"available":  e.Available,
		"error_code": CodeInsufficientFunds,
	}
}

// NewInsufficientFundsError creates a new detailed insufficient funds error
func NewInsufficientFundsError(userID uint64, amount, available string) error {
	return &InsufficientFundsError{
		UserID:    userID,
		Amount:    amount,
		Available: available,
	}
}

// SettlementError represents a failure while applying a single intent
type SettlementError struct {
	IntentID string
	Kind     string
	Reason   string
	Err      error
}

// Error implements the error interface for SettlementError
func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement of intent %s (%s) failed: %s: %v", e.IntentID, e.Kind, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *SettlementError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *SettlementError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "settlement_error",
		"intent_id":  e.IntentID,
		"kind":       e.Kind,
		"reason":     e.Reason,
		"error":      e.Err.Error(),
		"error_code": ErrorCode(e.Err),
	}
}

// NewSettlementError creates a detailed settlement error
func NewSettlementError(intentID, kind, reason string, err error) error {
	return &SettlementError{IntentID: intentID, Kind: kind, Reason: reason, Err: err}
}

// FailureReason returns the short human-readable reason recorded on failed records
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return ErrInsufficientFunds.Error()
	case errors.Is(err, ErrProcessingTimeout):
		return ErrProcessingTimeout.Error()
	case errors.Is(err, ErrUnconfirmedTimeout):
		return ErrUnconfirmedTimeout.Error()
	case errors.Is(err, ErrAccountNotFound):
		return ErrAccountNotFound.Error()
	case errors.Is(err, ErrExternalUnavailable):
		return ErrExternalUnavailable.Error()
	case errors.Is(err, ErrQueueSaturated):
		return ErrQueueSaturated.Error()
	case errors.Is(err, ErrQueueClosed):
		return ErrQueueClosed.Error()
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

// IsRetryable reports whether an operation failing with err may succeed on retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalUnavailable)
}

// IsValidationError checks if the error rejects an intent at submission
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInsufficientFundsError checks if the error is related to insufficient funds
func IsInsufficientFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsDuplicateExternalRefError checks if the error signals an already recorded fact
func IsDuplicateExternalRefError(err error) bool {
	return errors.Is(err, ErrDuplicateExternalRef)
}
