package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
)

// AccountDetails combines the internal balance with a live external balance read
type AccountDetails struct {
	UserID             uint64
	ExternalAddress    string
	InternalBalance    decimal.Decimal
	ExternalBalance    decimal.Decimal
	Total              decimal.Decimal
	ExternalRegistered bool
	ExternalAvailable  bool
}

// AccountUseCase defines methods for account-related business operations
type AccountUseCase interface {
	// CreateAccount creates an account with zero balance
	CreateAccount(ctx context.Context, userID uint64) (*entity.AccountLedger, error)

	// CreateDefaultAccounts creates predefined accounts with IDs 1, 2, 3
	CreateDefaultAccounts(ctx context.Context) error

	// LinkExternalAddress links an external address and replays events parked on it
	LinkExternalAddress(ctx context.Context, userID uint64, address string) (*entity.AccountLedger, error)

	// GetAccountDetails returns balances for one account
	GetAccountDetails(ctx context.Context, userID uint64) (*AccountDetails, error)

	// ListAccounts returns accounts ordered by user ID
	ListAccounts(ctx context.Context, limit int) ([]*entity.AccountLedger, error)

	// GetExternalLedgerInfo reports the state of the external ledger node
	GetExternalLedgerInfo(ctx context.Context) (*ledger.Info, error)
}
