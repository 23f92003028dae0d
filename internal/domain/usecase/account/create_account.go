package account

import (
	"context"
	"errors"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// CreateAccount creates an account with zero internal balance
func (u *AccountUseCase) CreateAccount(ctx context.Context, userID uint64) (*entity.AccountLedger, error) {
	account, err := entity.NewAccountLedger(userID, u.timeProvider.Now())
	if err != nil {
		return nil, err
	}

	if err := u.store.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, errs.ErrDuplicateAccount) {
			u.logger.Error("Failed to create account", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return nil, err
	}

	u.logger.Info("Account created", map[string]any{
		"user_id": userID,
	})
	return account, nil
}

// CreateDefaultAccounts creates accounts 1, 2 and 3 unless they already exist
func (u *AccountUseCase) CreateDefaultAccounts(ctx context.Context) error {
	for _, userID := range defaultAccountIDs {
		exists, err := u.AccountExists(ctx, userID)
		if err != nil {
			return err
		}
		if exists {
			u.logger.Debug("Default account already exists", map[string]any{
				"user_id": userID,
			})
			continue
		}

		if _, err := u.CreateAccount(ctx, userID); err != nil && !errors.Is(err, errs.ErrDuplicateAccount) {
			return err
		}
	}

	u.logger.Info("Default accounts created or verified", map[string]any{
		"count": len(defaultAccountIDs),
	})
	return nil
}
