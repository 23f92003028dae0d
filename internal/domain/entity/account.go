package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// AccountLedger holds one user's internal balance and external linkage
type AccountLedger struct {
	UserID             uint64
	internalBalance    decimal.Decimal
	ExternalAddress    *string
	ExternalRegistered bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewAccountLedger creates an account with zero internal balance
func NewAccountLedger(userID uint64, createdAt time.Time) (*AccountLedger, error) {
	if userID == 0 {
		return nil, errs.ErrInvalidUserID
	}
	return &AccountLedger{
		UserID:          userID,
		internalBalance: decimal.Zero,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// RestoreAccountLedger rebuilds an account loaded from storage
func RestoreAccountLedger(
	userID uint64,
	balance decimal.Decimal,
	address *string,
	registered bool,
	createdAt, updatedAt time.Time,
) *AccountLedger {
	return &AccountLedger{
		UserID:             userID,
		internalBalance:    balance,
		ExternalAddress:    address,
		ExternalRegistered: registered,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}
}

// InternalBalance returns the current internal balance
func (a *AccountLedger) InternalBalance() decimal.Decimal {
	return a.internalBalance
}

// CanCover returns true if the internal balance covers amount
func (a *AccountLedger) CanCover(amount decimal.Decimal) bool {
	return a.internalBalance.GreaterThanOrEqual(amount)
}

// Credit increases the internal balance
func (a *AccountLedger) Credit(amount decimal.Decimal, at time.Time) {
	a.internalBalance = a.internalBalance.Add(amount)
	a.UpdatedAt = at
}

// Debit decreases the internal balance, refusing to go below zero
func (a *AccountLedger) Debit(amount decimal.Decimal, at time.Time) error {
	if !a.CanCover(amount) {
		return errs.NewInsufficientFundsError(a.UserID, FormatAmount(amount), FormatAmount(a.internalBalance))
	}
	a.internalBalance = a.internalBalance.Sub(amount)
	a.UpdatedAt = at
	return nil
}

// HasExternalAddress returns true if the account is linked to the external ledger
func (a *AccountLedger) HasExternalAddress() bool {
	return a.ExternalAddress != nil && *a.ExternalAddress != ""
}

// LinkAddress sets the external address after normalising it
func (a *AccountLedger) LinkAddress(address string, at time.Time) error {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	a.ExternalAddress = &normalized
	a.UpdatedAt = at
	return nil
}

// NormalizeAddress lower-cases an external address and checks its shape
func NormalizeAddress(address string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(normalized, "0x") {
		normalized = "0x" + normalized
	}
	if !addressPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidAddress, address)
	}
	return normalized, nil
}
