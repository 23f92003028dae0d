package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
)

// AccountStore defines methods to interact with account ledgers
type AccountStore interface {
	// CreateAccount saves a new account with its initial balance
	//
	// Possible errors:
	// - ErrDuplicateAccount: If an account with the same user ID exists
	// - ErrExternalUnavailable: If the store cannot be reached
	CreateAccount(ctx context.Context, account *entity.AccountLedger) error

	// GetAccount retrieves an account by user ID
	//
	// Possible errors:
	// - ErrAccountNotFound: If the account doesn't exist
	// - ErrExternalUnavailable: If the store cannot be reached
	GetAccount(ctx context.Context, userID uint64) (*entity.AccountLedger, error)

	// FindAccountByAddress resolves a normalised external address to its account
	//
	// Possible errors:
	// - ErrAccountNotFound: If no account is linked to the address
	// - ErrExternalUnavailable: If the store cannot be reached
	FindAccountByAddress(ctx context.Context, address string) (*entity.AccountLedger, error)

	// ListAccounts returns accounts ordered by user ID. A limit of zero means no limit.
	ListAccounts(ctx context.Context, limit int) ([]*entity.AccountLedger, error)

	// LinkExternalAddress links a normalised address to an account
	//
	// Possible errors:
	// - ErrAccountNotFound: If the account doesn't exist
	// - ErrAddressInUse: If another account already holds the address
	LinkExternalAddress(ctx context.Context, userID uint64, address string, at time.Time) error

	// SetExternalRegistered marks the account registered on the external ledger.
	// Returns false when it was already registered.
	SetExternalRegistered(ctx context.Context, userID uint64, at time.Time) (bool, error)
}

// TransactionStore defines methods to interact with transaction records
type TransactionStore interface {
	// CreateTransaction saves a new record
	CreateTransaction(ctx context.Context, record *entity.TransactionRecord) error

	// InsertIfAbsentByExternalRef atomically inserts a reconciled record unless one with the
	// same external reference exists. Returns false for a duplicate.
	InsertIfAbsentByExternalRef(ctx context.Context, record *entity.TransactionRecord) (bool, error)

	// UpdateTransactionStatus moves a record from one status to the next.
	// The update only applies while the record is still in from.
	//
	// Possible errors:
	// - ErrTransactionNotFound: If the record doesn't exist
	// - ErrIllegalTransition: If the record is no longer in from, or from→to regresses
	UpdateTransactionStatus(ctx context.Context, id string, from, to entity.TransactionStatus, reason string, at time.Time) error

	// GetTransaction retrieves a record by ID
	//
	// Possible errors:
	// - ErrTransactionNotFound: If the record doesn't exist
	GetTransaction(ctx context.Context, id string) (*entity.TransactionRecord, error)

	// ListUserTransactions returns records where the user is subject or counterparty,
	// newest first, truncated to limit
	ListUserTransactions(ctx context.Context, userID uint64, limit int) ([]entity.UserTransaction, error)

	// ListTransactions returns all records, newest first, truncated to limit
	ListTransactions(ctx context.Context, limit int) ([]*entity.TransactionRecord, error)
}

// ConfirmationStore pairs external-domain intents with reconciled facts
type ConfirmationStore interface {
	// FindUnclaimedFact returns the oldest reconciled fact matching the criteria that
	// has not confirmed any intent yet
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no such fact exists
	FindUnclaimedFact(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error)

	// FindAwaitingConfirmation returns the oldest processing external intent matching the criteria
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no intent is waiting for such a fact
	FindAwaitingConfirmation(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error)

	// ConfirmExternalIntent completes an awaiting intent with the fact's external reference
	//
	// Possible errors:
	// - ErrIllegalTransition: If the intent is not processing any more
	// - ErrDuplicateExternalRef: If the fact already confirmed another intent
	ConfirmExternalIntent(ctx context.Context, intentID, factRef string, at time.Time) error

	// ListAwaitingConfirmation returns processing external intents created before the cutoff, oldest first
	ListAwaitingConfirmation(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.TransactionRecord, error)
}

// LedgerStore is durable keyed storage for accounts and transaction records
type LedgerStore interface {
	AccountStore
	TransactionStore
	ConfirmationStore

	// ApplySettlement atomically debits and credits the settlement's accounts and completes
	// its record. Nothing is written when any step fails.
	//
	// Possible errors:
	// - ErrAccountNotFound: If a touched account doesn't exist
	// - ErrInsufficientFunds: If the debited balance does not cover the amount
	// - ErrIllegalTransition: If the record is not processing
	// - ErrExternalUnavailable: If the store cannot be reached
	ApplySettlement(ctx context.Context, settlement entity.Settlement) error
}
