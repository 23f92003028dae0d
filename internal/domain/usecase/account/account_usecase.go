package account

import (
	"context"
	"errors"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
)

// Default account IDs seeded at start-up
var defaultAccountIDs = []uint64{1, 2, 3}

// DeferredReplayer re-applies chain events that were parked while an address was unlinked
type DeferredReplayer interface {
	ReplayDeferred(ctx context.Context, address string) (int, error)
}

// AccountUseCase implements account management
type AccountUseCase struct {
	store        persistence.AccountStore
	external     ledger.ExternalLedger
	replayer     DeferredReplayer
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

var _ usecase.AccountUseCase = (*AccountUseCase)(nil)

// NewAccountUseCase creates an account use case. external and replayer may be nil.
func NewAccountUseCase(
	store persistence.AccountStore,
	external ledger.ExternalLedger,
	replayer DeferredReplayer,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		store:        store,
		external:     external,
		replayer:     replayer,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// AccountExists checks if an account exists for the user
func (u *AccountUseCase) AccountExists(ctx context.Context, userID uint64) (bool, error) {
	if userID == 0 {
		return false, errs.ErrInvalidUserID
	}

	_, err := u.store.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
