package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
)

var _ persistence.LedgerStore = (*MemoryLedgerStore)(nil)

type memoryAccount struct {
	balance    decimal.Decimal
	address    *string
	registered bool
	createdAt  time.Time
	updatedAt  time.Time
}

type memoryRecord struct {
	seq    uint64
	record entity.TransactionRecord
}

// MemoryLedgerStore is a LedgerStore kept in process memory.
// A single mutex makes every operation atomic, including insert-if-absent.
type MemoryLedgerStore struct {
	mu            sync.RWMutex
	seq           uint64
	accounts      map[uint64]*memoryAccount
	addresses     map[string]uint64
	records       map[string]*memoryRecord
	externalRefs  map[string]string // external_ref -> record id
	confirmations map[string]string // confirmation_ref -> intent id
}

// NewMemoryLedgerStore creates an empty store
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:      make(map[uint64]*memoryAccount),
		addresses:     make(map[string]uint64),
		records:       make(map[string]*memoryRecord),
		externalRefs:  make(map[string]string),
		confirmations: make(map[string]string),
	}
}

func (a *memoryAccount) toEntity(userID uint64) *entity.AccountLedger {
	var address *string
	if a.address != nil {
		v := *a.address
		address = &v
	}
	return entity.RestoreAccountLedger(userID, a.balance, address, a.registered, a.createdAt, a.updatedAt)
}

func cloneRecord(r *entity.TransactionRecord) *entity.TransactionRecord {
	c := *r
	if r.CounterpartyUserID != nil {
		v := *r.CounterpartyUserID
		c.CounterpartyUserID = &v
	}
	if r.ExternalRef != nil {
		v := *r.ExternalRef
		c.ExternalRef = &v
	}
	if r.ExternalHeight != nil {
		v := *r.ExternalHeight
		c.ExternalHeight = &v
	}
	if r.ConfirmationRef != nil {
		v := *r.ConfirmationRef
		c.ConfirmationRef = &v
	}
	return &c
}

// CreateAccount saves a new account
func (s *MemoryLedgerStore) CreateAccount(ctx context.Context, account *entity.AccountLedger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.UserID]; exists {
		return errs.ErrDuplicateAccount
	}
	row := &memoryAccount{
		balance:    account.InternalBalance(),
		registered: account.ExternalRegistered,
		createdAt:  account.CreatedAt,
		updatedAt:  account.UpdatedAt,
	}
	if account.HasExternalAddress() {
		if _, taken := s.addresses[*account.ExternalAddress]; taken {
			return errs.ErrAddressInUse
		}
		addr := *account.ExternalAddress
		row.address = &addr
		s.addresses[addr] = account.UserID
	}
	s.accounts[account.UserID] = row
	return nil
}

// GetAccount retrieves an account by user ID
func (s *MemoryLedgerStore) GetAccount(ctx context.Context, userID uint64) (*entity.AccountLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.accounts[userID]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	return row.toEntity(userID), nil
}

// ListAccounts returns accounts ordered by user ID
func (s *MemoryLedgerStore) ListAccounts(ctx context.Context, limit int) ([]*entity.AccountLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	accounts := make([]*entity.AccountLedger, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, s.accounts[id].toEntity(id))
	}
	return accounts, nil
}

// FindAccountByAddress resolves an external address to its account
func (s *MemoryLedgerStore) FindAccountByAddress(ctx context.Context, address string) (*entity.AccountLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.addresses[address]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	return s.accounts[userID].toEntity(userID), nil
}

// LinkExternalAddress links an address to an account, replacing any previous link
func (s *MemoryLedgerStore) LinkExternalAddress(ctx context.Context, userID uint64, address string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[userID]
	if !ok {
		return errs.ErrAccountNotFound
	}
	if owner, taken := s.addresses[address]; taken && owner != userID {
		return errs.ErrAddressInUse
	}
	if row.address != nil {
		delete(s.addresses, *row.address)
	}
	addr := address
	row.address = &addr
	row.updatedAt = at
	s.addresses[addr] = userID
	return nil
}

// SetExternalRegistered marks the account registered
func (s *MemoryLedgerStore) SetExternalRegistered(ctx context.Context, userID uint64, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[userID]
	if !ok {
		return false, errs.ErrAccountNotFound
	}
	if row.registered {
		return false, nil
	}
	row.registered = true
	row.updatedAt = at
	return true, nil
}

// CreateTransaction saves a new record
func (s *MemoryLedgerStore) CreateTransaction(ctx context.Context, record *entity.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(record)
}

// InsertIfAbsentByExternalRef inserts the record unless its external reference is known
func (s *MemoryLedgerStore) InsertIfAbsentByExternalRef(ctx context.Context, record *entity.TransactionRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if record.ExternalRef == nil {
		return false, errs.NewValidationError("externalRef", "must not be empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.externalRefs[*record.ExternalRef]; exists {
		return false, nil
	}
	if err := s.insertLocked(record); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryLedgerStore) insertLocked(record *entity.TransactionRecord) error {
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("%w: transaction %s already exists", errs.ErrInternal, record.ID)
	}
	if record.ExternalRef != nil {
		if _, exists := s.externalRefs[*record.ExternalRef]; exists {
			return errs.ErrDuplicateExternalRef
		}
		s.externalRefs[*record.ExternalRef] = record.ID
	}
	s.seq++
	s.records[record.ID] = &memoryRecord{seq: s.seq, record: *cloneRecord(record)}
	return nil
}

// UpdateTransactionStatus moves a record forward while it is still in from
func (s *MemoryLedgerStore) UpdateTransactionStatus(
	ctx context.Context,
	id string,
	from, to entity.TransactionStatus,
	reason string,
	at time.Time,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.records[id]
	if !ok {
		return errs.ErrTransactionNotFound
	}
	if row.record.Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", errs.ErrIllegalTransition, id, row.record.Status, from)
	}
	return row.record.Transition(to, reason, at)
}

// ApplySettlement applies the debit, the credit and the completion together or not at all
func (s *MemoryLedgerStore) ApplySettlement(ctx context.Context, settlement entity.Settlement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.records[settlement.RecordID]
	if !ok {
		return errs.ErrTransactionNotFound
	}
	if row.record.Status != entity.StatusProcessing {
		return fmt.Errorf("%w: %s is %s", errs.ErrIllegalTransition, settlement.RecordID, row.record.Status)
	}

	for _, id := range settlement.AccountIDs() {
		if _, ok := s.accounts[id]; !ok {
			return errs.ErrAccountNotFound
		}
	}
	if settlement.DebitUserID != 0 {
		debit := s.accounts[settlement.DebitUserID]
		if debit.balance.LessThan(settlement.Amount) {
			return errs.NewInsufficientFundsError(settlement.DebitUserID,
				entity.FormatAmount(settlement.Amount), entity.FormatAmount(debit.balance))
		}
	}

	if settlement.DebitUserID != 0 {
		debit := s.accounts[settlement.DebitUserID]
		debit.balance = debit.balance.Sub(settlement.Amount)
		debit.updatedAt = settlement.CompletedAt
	}
	if settlement.CreditUserID != 0 {
		credit := s.accounts[settlement.CreditUserID]
		credit.balance = credit.balance.Add(settlement.Amount)
		credit.updatedAt = settlement.CompletedAt
	}
	row.record.Status = entity.StatusCompleted
	row.record.UpdatedAt = settlement.CompletedAt
	return nil
}

// GetTransaction retrieves a record by ID
func (s *MemoryLedgerStore) GetTransaction(ctx context.Context, id string) (*entity.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.records[id]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return cloneRecord(&row.record), nil
}

// ListUserTransactions returns sent and received records, newest first
func (s *MemoryLedgerStore) ListUserTransactions(ctx context.Context, userID uint64, limit int) ([]entity.UserTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.selectLocked(func(r *entity.TransactionRecord) bool { return r.Involves(userID) }, true, limit)
	result := make([]entity.UserTransaction, 0, len(rows))
	for _, r := range rows {
		result = append(result, entity.UserTransaction{Record: r, IsReceived: r.IsReceivedBy(userID)})
	}
	return result, nil
}

// ListTransactions returns every record, newest first
func (s *MemoryLedgerStore) ListTransactions(ctx context.Context, limit int) ([]*entity.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectLocked(func(*entity.TransactionRecord) bool { return true }, true, limit), nil
}

// FindUnclaimedFact returns the oldest matching fact that confirmed nothing yet
func (s *MemoryLedgerStore) FindUnclaimedFact(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.selectLocked(func(r *entity.TransactionRecord) bool {
		if r.ExternalRef == nil || r.Status != entity.StatusCompleted {
			return false
		}
		if _, claimed := s.confirmations[*r.ExternalRef]; claimed {
			return false
		}
		return match.Matches(r)
	}, false, 1)
	if len(rows) == 0 {
		return nil, errs.ErrTransactionNotFound
	}
	return rows[0], nil
}

// FindAwaitingConfirmation returns the oldest matching external intent still processing
func (s *MemoryLedgerStore) FindAwaitingConfirmation(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.selectLocked(func(r *entity.TransactionRecord) bool {
		return r.AwaitsConfirmation() && match.Matches(r)
	}, false, 1)
	if len(rows) == 0 {
		return nil, errs.ErrTransactionNotFound
	}
	return rows[0], nil
}

// ConfirmExternalIntent completes an awaiting intent with the fact that corroborates it
func (s *MemoryLedgerStore) ConfirmExternalIntent(ctx context.Context, intentID, factRef string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.records[intentID]
	if !ok {
		return errs.ErrTransactionNotFound
	}
	if !row.record.AwaitsConfirmation() {
		return fmt.Errorf("%w: %s is %s", errs.ErrIllegalTransition, intentID, row.record.Status)
	}
	if _, claimed := s.confirmations[factRef]; claimed {
		return errs.ErrDuplicateExternalRef
	}

	ref := factRef
	row.record.ConfirmationRef = &ref
	row.record.Status = entity.StatusCompleted
	row.record.UpdatedAt = at
	s.confirmations[factRef] = intentID
	return nil
}

// ListAwaitingConfirmation returns external intents still processing, oldest first
func (s *MemoryLedgerStore) ListAwaitingConfirmation(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectLocked(func(r *entity.TransactionRecord) bool {
		return r.AwaitsConfirmation() && r.CreatedAt.Before(createdBefore)
	}, false, limit), nil
}

// selectLocked filters records and orders them by createdAt, breaking ties by insertion order
func (s *MemoryLedgerStore) selectLocked(keep func(*entity.TransactionRecord) bool, newestFirst bool, limit int) []*entity.TransactionRecord {
	rows := make([]*memoryRecord, 0)
	for _, row := range s.records {
		if keep(&row.record) {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
			if newestFirst {
				return a.record.CreatedAt.After(b.record.CreatedAt)
			}
			return a.record.CreatedAt.Before(b.record.CreatedAt)
		}
		if newestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	result := make([]*entity.TransactionRecord, len(rows))
	for i, row := range rows {
		result[i] = cloneRecord(&row.record)
	}
	return result
}
