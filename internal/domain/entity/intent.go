package entity

import (
	"time"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// Kind is the closed set of settlement operations
type Kind string

// Settlement kinds
const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindTransfer Kind = "transfer"
)

// LedgerDomain identifies which ledger a settlement runs against
type LedgerDomain string

// Ledger domains
const (
	DomainInternal LedgerDomain = "internal"
	DomainExternal LedgerDomain = "external"
)

// IsValidKind reports whether kind is one of the settlement kinds
func IsValidKind(kind string) bool {
	switch Kind(kind) {
	case KindDeposit, KindWithdraw, KindTransfer:
		return true
	}
	return false
}

// IsValidDomain reports whether domain is one of the ledger domains
func IsValidDomain(domain string) bool {
	return domain == string(DomainInternal) || domain == string(DomainExternal)
}

// Intent is an accepted, immutable request to move value.
// Fields are only reachable through accessors so a queued intent cannot change.
type Intent struct {
	id                 string
	kind               Kind
	subjectUserID      uint64
	counterpartyUserID uint64
	amount             decimal.Decimal
	domain             LedgerDomain
	submittedAt        time.Time
}

// NewDepositIntent builds a deposit of amount into the subject's account
func NewDepositIntent(id string, subjectUserID uint64, amount decimal.Decimal, domain LedgerDomain, submittedAt time.Time) (*Intent, error) {
	return NewIntent(id, KindDeposit, subjectUserID, amount, domain, nil, submittedAt)
}

// NewWithdrawIntent builds a withdrawal of amount from the subject's account
func NewWithdrawIntent(id string, subjectUserID uint64, amount decimal.Decimal, domain LedgerDomain, submittedAt time.Time) (*Intent, error) {
	return NewIntent(id, KindWithdraw, subjectUserID, amount, domain, nil, submittedAt)
}

// NewTransferIntent builds a transfer of amount from subject to counterparty
func NewTransferIntent(id string, subjectUserID, counterpartyUserID uint64, amount decimal.Decimal, domain LedgerDomain, submittedAt time.Time) (*Intent, error) {
	return NewIntent(id, KindTransfer, subjectUserID, amount, domain, &counterpartyUserID, submittedAt)
}

// NewIntent validates the fields required by kind and rejects fields that belong to another kind
func NewIntent(
	id string,
	kind Kind,
	subjectUserID uint64,
	amount decimal.Decimal,
	domain LedgerDomain,
	counterpartyUserID *uint64,
	submittedAt time.Time,
) (*Intent, error) {
	if id == "" {
		return nil, errs.NewValidationError("id", "must not be empty", nil)
	}
	if !IsValidKind(string(kind)) {
		return nil, errs.NewValidationError("kind", string(kind), errs.ErrInvalidKind)
	}
	if !IsValidDomain(string(domain)) {
		return nil, errs.NewValidationError("domain", string(domain), errs.ErrInvalidDomain)
	}
	if subjectUserID == 0 {
		return nil, errs.NewValidationError("subjectUserId", "must be positive", errs.ErrInvalidUserID)
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, errs.NewValidationError("amount", "must be positive", err)
	}

	intent := &Intent{
		id:            id,
		kind:          kind,
		subjectUserID: subjectUserID,
		amount:        amount,
		domain:        domain,
		submittedAt:   submittedAt,
	}

	switch kind {
	case KindTransfer:
		if counterpartyUserID == nil || *counterpartyUserID == 0 {
			return nil, errs.NewValidationError("counterpartyUserId", "required for transfers", errs.ErrInvalidUserID)
		}
		if *counterpartyUserID == subjectUserID {
			return nil, errs.NewValidationError("counterpartyUserId", "equals subject", errs.ErrSelfTransfer)
		}
		intent.counterpartyUserID = *counterpartyUserID
	default:
		if counterpartyUserID != nil {
			return nil, errs.NewValidationError("counterpartyUserId", "only allowed for transfers", nil)
		}
	}

	return intent, nil
}

// ID returns the intent identifier, shared with its transaction record
func (i *Intent) ID() string { return i.id }

// Kind returns the settlement kind
func (i *Intent) Kind() Kind { return i.kind }

// SubjectUserID returns the user whose account the intent acts on
func (i *Intent) SubjectUserID() uint64 { return i.subjectUserID }

// CounterpartyUserID returns the transfer recipient, if any
func (i *Intent) CounterpartyUserID() (uint64, bool) {
	return i.counterpartyUserID, i.kind == KindTransfer
}

// Amount returns the amount to move
func (i *Intent) Amount() decimal.Decimal { return i.amount }

// Domain returns the ledger the intent settles against
func (i *Intent) Domain() LedgerDomain { return i.domain }

// SubmittedAt returns when the intent was accepted
func (i *Intent) SubmittedAt() time.Time { return i.submittedAt }

// IsDebit returns true if the intent decreases the subject's balance
func (i *Intent) IsDebit() bool {
	return i.kind == KindWithdraw || i.kind == KindTransfer
}

// Participants returns every user affected by the intent
func (i *Intent) Participants() []uint64 {
	if i.kind == KindTransfer {
		return []uint64{i.subjectUserID, i.counterpartyUserID}
	}
	return []uint64{i.subjectUserID}
}

// Settlement describes the balance movement of an internal-domain intent
func (i *Intent) Settlement(completedAt time.Time) Settlement {
	s := Settlement{RecordID: i.id, Amount: i.amount, CompletedAt: completedAt}
	switch i.kind {
	case KindDeposit:
		s.CreditUserID = i.subjectUserID
	case KindWithdraw:
		s.DebitUserID = i.subjectUserID
	case KindTransfer:
		s.DebitUserID = i.subjectUserID
		s.CreditUserID = i.counterpartyUserID
	}
	return s
}

// Settlement is one all-or-nothing ledger mutation: an optional debit, an optional credit,
// and the completion of the record that caused it.
type Settlement struct {
	RecordID     string
	DebitUserID  uint64 // zero when nothing is debited
	CreditUserID uint64 // zero when nothing is credited
	Amount       decimal.Decimal
	CompletedAt  time.Time
}

// AccountIDs returns the distinct accounts touched, in ascending order for deterministic locking
func (s Settlement) AccountIDs() []uint64 {
	ids := make([]uint64, 0, 2)
	if s.DebitUserID != 0 {
		ids = append(ids, s.DebitUserID)
	}
	if s.CreditUserID != 0 && s.CreditUserID != s.DebitUserID {
		ids = append(ids, s.CreditUserID)
	}
	if len(ids) == 2 && ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids
}
