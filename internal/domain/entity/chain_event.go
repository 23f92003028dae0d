package entity

import (
	"strings"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// ChainEventKind enumerates the facts the external ledger reports
type ChainEventKind string

// Chain event kinds
const (
	ChainDeposit        ChainEventKind = "deposit"
	ChainWithdraw       ChainEventKind = "withdraw"
	ChainTransfer       ChainEventKind = "transfer"
	ChainUserRegistered ChainEventKind = "userRegistered"
)

// ChainEvent is a normalized settlement fact observed on the external ledger.
// For transfers Participants is [sender, recipient]; every other kind has one participant.
type ChainEvent struct {
	Kind           ChainEventKind  `json:"kind"`
	Participants   []string        `json:"participants"`
	Amount         decimal.Decimal `json:"amount"`
	ExternalRef    string          `json:"externalRef"`
	ExternalHeight uint64          `json:"externalHeight"`
}

// Normalized validates the event and returns a copy with normalised addresses
func (e ChainEvent) Normalized() (ChainEvent, error) {
	want := 1
	switch e.Kind {
	case ChainDeposit, ChainWithdraw, ChainUserRegistered:
	case ChainTransfer:
		want = 2
	default:
		return ChainEvent{}, errs.NewValidationError("kind", string(e.Kind), errs.ErrInvalidKind)
	}

	if strings.TrimSpace(e.ExternalRef) == "" {
		return ChainEvent{}, errs.NewValidationError("externalRef", "must not be empty", nil)
	}
	if len(e.Participants) != want {
		return ChainEvent{}, errs.NewValidationError("participants", "wrong participant count for kind", nil)
	}
	if e.Kind != ChainUserRegistered {
		if err := ValidateAmount(e.Amount); err != nil {
			return ChainEvent{}, errs.NewValidationError("amount", "must be positive", err)
		}
	}

	out := e
	out.ExternalRef = strings.TrimSpace(e.ExternalRef)
	out.Participants = make([]string, len(e.Participants))
	for i, p := range e.Participants {
		addr, err := NormalizeAddress(p)
		if err != nil {
			return ChainEvent{}, errs.NewValidationError("participants", "malformed address", err)
		}
		out.Participants[i] = addr
	}
	if out.Kind == ChainTransfer && out.Participants[0] == out.Participants[1] {
		return ChainEvent{}, errs.NewValidationError("participants", "sender equals recipient", errs.ErrSelfTransfer)
	}
	return out, nil
}

// SettlementKind maps a movement event to the record kind it creates
func (e ChainEvent) SettlementKind() (Kind, bool) {
	switch e.Kind {
	case ChainDeposit:
		return KindDeposit, true
	case ChainWithdraw:
		return KindWithdraw, true
	case ChainTransfer:
		return KindTransfer, true
	}
	return "", false
}
