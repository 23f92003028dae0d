package account

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
)

// DefaultAccountsLimit caps account listings when no limit is given
const DefaultAccountsLimit = 100

// ListAccounts returns accounts ordered by user ID
func (u *AccountUseCase) ListAccounts(ctx context.Context, limit int) ([]*entity.AccountLedger, error) {
	if limit <= 0 {
		limit = DefaultAccountsLimit
	}
	return u.store.ListAccounts(ctx, limit)
}

// GetExternalLedgerInfo reports the network and sync state of the external ledger
func (u *AccountUseCase) GetExternalLedgerInfo(ctx context.Context) (*ledger.Info, error) {
	if u.external == nil {
		return nil, fmt.Errorf("%w: external ledger reader not configured", errs.ErrExternalUnavailable)
	}
	return u.external.Info(ctx)
}
