package account

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
)

// GetAccountDetails returns the internal balance together with a live external balance.
// A failed external read is reported through ExternalAvailable instead of an error.
func (u *AccountUseCase) GetAccountDetails(ctx context.Context, userID uint64) (*usecase.AccountDetails, error) {
	account, err := u.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := &usecase.AccountDetails{
		UserID:             account.UserID,
		InternalBalance:    account.InternalBalance(),
		Total:              account.InternalBalance(),
		ExternalRegistered: account.ExternalRegistered,
	}

	if !account.HasExternalAddress() {
		return details, nil
	}
	details.ExternalAddress = *account.ExternalAddress

	if u.external == nil {
		return details, nil
	}

	balance, err := u.external.Balance(ctx, details.ExternalAddress)
	if err != nil {
		u.logger.Warn("External balance unavailable", map[string]any{
			"user_id": userID,
			"address": details.ExternalAddress,
			"error":   err.Error(),
		})
		return details, nil
	}

	details.ExternalBalance = balance
	details.ExternalAvailable = true
	details.Total = details.InternalBalance.Add(balance)
	return details, nil
}
