package account

import (
	"context"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// LinkExternalAddress links a normalised external address to the account and replays
// chain events that arrived before the link existed
func (u *AccountUseCase) LinkExternalAddress(ctx context.Context, userID uint64, address string) (*entity.AccountLedger, error) {
	normalized, err := entity.NormalizeAddress(address)
	if err != nil {
		return nil, errs.NewValidationError("address", "must be a 20-byte hex address", err)
	}

	account, err := u.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := u.timeProvider.Now()
	if err := u.store.LinkExternalAddress(ctx, userID, normalized, now); err != nil {
		u.logger.Warn("Failed to link external address", map[string]any{
			"user_id": userID,
			"address": normalized,
			"error":   err.Error(),
		})
		return nil, err
	}
	if err := account.LinkAddress(normalized, now); err != nil {
		return nil, err
	}

	u.logger.Info("External address linked", map[string]any{
		"user_id": userID,
		"address": normalized,
	})

	u.syncRegistration(ctx, account)
	u.replay(ctx, account.UserID, normalized)
	return account, nil
}

// syncRegistration marks the account registered when the external ledger already knows the address
func (u *AccountUseCase) syncRegistration(ctx context.Context, account *entity.AccountLedger) {
	if u.external == nil || account.ExternalRegistered {
		return
	}

	registered, err := u.external.IsRegistered(ctx, *account.ExternalAddress)
	if err != nil {
		u.logger.Warn("Could not read registration from external ledger", map[string]any{
			"user_id": account.UserID,
			"error":   err.Error(),
		})
		return
	}
	if !registered {
		return
	}

	if _, err := u.store.SetExternalRegistered(ctx, account.UserID, u.timeProvider.Now()); err != nil {
		u.logger.Warn("Failed to record registration", map[string]any{
			"user_id": account.UserID,
			"error":   err.Error(),
		})
		return
	}
	account.ExternalRegistered = true
}

// replay never fails the link; events left parked are picked up by the next replay
func (u *AccountUseCase) replay(ctx context.Context, userID uint64, address string) {
	if u.replayer == nil {
		return
	}

	released, err := u.replayer.ReplayDeferred(ctx, address)
	if err != nil {
		u.logger.Warn("Replay of parked chain events incomplete", map[string]any{
			"user_id":  userID,
			"address":  address,
			"released": released,
			"error":    err.Error(),
		})
		return
	}
	if released > 0 {
		u.logger.Info("Parked chain events replayed", map[string]any{
			"user_id":  userID,
			"released": released,
		})
	}
}
