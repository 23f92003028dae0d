package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/model"
)

var _ persistence.LedgerStore = (*GormLedgerStore)(nil)

const newestFirst = "created_at DESC, id DESC"
const oldestFirst = "created_at ASC, id ASC"

// GormLedgerStore implements LedgerStore on postgres or sqlite through GORM
type GormLedgerStore struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewGormLedgerStore creates a new GormLedgerStore instance
func NewGormLedgerStore(db *gorm.DB, logger coreport.Logger) *GormLedgerStore {
	return &GormLedgerStore{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func accountToEntity(m *model.Account) *entity.AccountLedger {
	return entity.RestoreAccountLedger(m.UserID, m.InternalBalance, m.ExternalAddress, m.ExternalRegistered, m.CreatedAt, m.UpdatedAt)
}

func recordToModel(r *entity.TransactionRecord) *model.TransactionRecord {
	return &model.TransactionRecord{
		ID:                 r.ID,
		SubjectUserID:      r.SubjectUserID,
		Kind:               string(r.Kind),
		Amount:             r.Amount,
		Status:             string(r.Status),
		LedgerDomain:       string(r.LedgerDomain),
		CounterpartyUserID: r.CounterpartyUserID,
		ExternalRef:        r.ExternalRef,
		ExternalHeight:     r.ExternalHeight,
		ConfirmationRef:    r.ConfirmationRef,
		FailureReason:      r.FailureReason,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func recordToEntity(m *model.TransactionRecord) *entity.TransactionRecord {
	return &entity.TransactionRecord{
		ID:                 m.ID,
		SubjectUserID:      m.SubjectUserID,
		Kind:               entity.Kind(m.Kind),
		Amount:             m.Amount,
		Status:             entity.TransactionStatus(m.Status),
		LedgerDomain:       entity.LedgerDomain(m.LedgerDomain),
		CounterpartyUserID: m.CounterpartyUserID,
		ExternalRef:        m.ExternalRef,
		ExternalHeight:     m.ExternalHeight,
		ConfirmationRef:    m.ConfirmationRef,
		FailureReason:      m.FailureReason,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func recordsToEntities(rows []model.TransactionRecord) []*entity.TransactionRecord {
	result := make([]*entity.TransactionRecord, len(rows))
	for i := range rows {
		result[i] = recordToEntity(&rows[i])
	}
	return result
}

// handleDatabaseError maps driver failures onto domain errors.
// Anything not recognised means the store is unreachable for now and is reported as retryable.
func (s *GormLedgerStore) handleDatabaseError(operation string, err error, fields map[string]any) error {
	if s.errorClassifier.IsContextError(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	logFields := map[string]any{"error": err.Error(), "operation": operation}
	for k, v := range fields {
		logFields[k] = v
	}
	s.logger.Error(fmt.Sprintf("Database error when %s", operation), logFields)

	return fmt.Errorf("%w: %s: %s", errs.ErrExternalUnavailable, operation, err.Error())
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks.
// sqlite serialises writers on its single connection instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// CreateAccount saves a new account
func (s *GormLedgerStore) CreateAccount(ctx context.Context, account *entity.AccountLedger) error {
	row := model.Account{
		UserID:             account.UserID,
		InternalBalance:    account.InternalBalance(),
		ExternalAddress:    account.ExternalAddress,
		ExternalRegistered: account.ExternalRegistered,
		CreatedAt:          account.CreatedAt.UTC(),
		UpdatedAt:          account.UpdatedAt.UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if s.errorClassifier.IsDuplicateKeyError(err) {
			if strings.Contains(s.errorClassifier.ViolatedConstraint(err), "external_address") {
				return errs.ErrAddressInUse
			}
			return errs.ErrDuplicateAccount
		}
		return s.handleDatabaseError("creating account", err, map[string]any{"user_id": account.UserID})
	}

	s.logger.Debug("Account stored", map[string]any{
		"user_id": account.UserID,
		"balance": entity.FormatAmount(account.InternalBalance()),
	})
	return nil
}

// GetAccount retrieves an account by user ID
func (s *GormLedgerStore) GetAccount(ctx context.Context, userID uint64) (*entity.AccountLedger, error) {
	var row model.Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, s.handleDatabaseError("getting account", err, map[string]any{"user_id": userID})
	}
	return accountToEntity(&row), nil
}

// ListAccounts returns accounts ordered by user ID
func (s *GormLedgerStore) ListAccounts(ctx context.Context, limit int) ([]*entity.AccountLedger, error) {
	var rows []model.Account
	query := s.db.WithContext(ctx).Order("user_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, s.handleDatabaseError("listing accounts", err, nil)
	}

	accounts := make([]*entity.AccountLedger, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, accountToEntity(&rows[i]))
	}
	return accounts, nil
}

// FindAccountByAddress resolves an external address to its account
func (s *GormLedgerStore) FindAccountByAddress(ctx context.Context, address string) (*entity.AccountLedger, error) {
	var row model.Account
	if err := s.db.WithContext(ctx).Where("external_address = ?", address).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, s.handleDatabaseError("resolving address", err, map[string]any{"address": address})
	}
	return accountToEntity(&row), nil
}

// LinkExternalAddress links an address to an account, replacing any previous link
func (s *GormLedgerStore) LinkExternalAddress(ctx context.Context, userID uint64, address string, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.Account
		err := tx.Where("external_address = ?", address).Take(&owner).Error
		switch {
		case err == nil && owner.UserID != userID:
			return errs.ErrAddressInUse
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		result := tx.Model(&model.Account{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"external_address": address,
				"updated_at":       at.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.ErrAccountNotFound
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrAddressInUse), errors.Is(err, errs.ErrAccountNotFound):
		return err
	case s.errorClassifier.IsDuplicateKeyError(err):
		return errs.ErrAddressInUse
	}
	return s.handleDatabaseError("linking address", err, map[string]any{"user_id": userID, "address": address})
}

// SetExternalRegistered marks the account registered. Only the first call reports a change.
func (s *GormLedgerStore) SetExternalRegistered(ctx context.Context, userID uint64, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Account{}).
		Where("user_id = ? AND external_registered = ?", userID, false).
		Updates(map[string]any{
			"external_registered": true,
			"updated_at":          at.UTC(),
		})
	if result.Error != nil {
		return false, s.handleDatabaseError("marking registration", result.Error, map[string]any{"user_id": userID})
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	if _, err := s.GetAccount(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// CreateTransaction saves a new record
func (s *GormLedgerStore) CreateTransaction(ctx context.Context, record *entity.TransactionRecord) error {
	if err := s.db.WithContext(ctx).Create(recordToModel(record)).Error; err != nil {
		if s.errorClassifier.IsDuplicateKeyError(err) {
			if strings.Contains(s.errorClassifier.ViolatedConstraint(err), "external_ref") {
				return errs.ErrDuplicateExternalRef
			}
			return fmt.Errorf("%w: transaction %s already exists", errs.ErrInternal, record.ID)
		}
		return s.handleDatabaseError("creating transaction", err, map[string]any{"transaction_id": record.ID})
	}
	return nil
}

// InsertIfAbsentByExternalRef relies on the unique external_ref index so that concurrent
// deliveries of one event store exactly one record
func (s *GormLedgerStore) InsertIfAbsentByExternalRef(ctx context.Context, record *entity.TransactionRecord) (bool, error) {
	if record.ExternalRef == nil || *record.ExternalRef == "" {
		return false, errs.NewValidationError("externalRef", "must not be empty", nil)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_ref"}},
			DoNothing: true,
		}).
		Create(recordToModel(record))
	if result.Error != nil {
		if s.errorClassifier.IsDuplicateKeyError(result.Error) {
			return false, nil
		}
		return false, s.handleDatabaseError("inserting reconciled record", result.Error, map[string]any{
			"external_ref": *record.ExternalRef,
		})
	}
	return result.RowsAffected == 1, nil
}

// UpdateTransactionStatus moves a record forward while it is still in from
func (s *GormLedgerStore) UpdateTransactionStatus(
	ctx context.Context,
	id string,
	from, to entity.TransactionStatus,
	reason string,
	at time.Time,
) error {
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrIllegalTransition, from, to)
	}

	updates := map[string]any{
		"status":     string(to),
		"updated_at": at.UTC(),
	}
	if to == entity.StatusFailed {
		updates["failure_reason"] = reason
	}

	result := s.db.WithContext(ctx).Model(&model.TransactionRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return s.handleDatabaseError("updating transaction status", result.Error, map[string]any{
			"transaction_id": id,
			"from":           from,
			"to":             to,
		})
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := s.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, expected %s", errs.ErrIllegalTransition, id, current.Status, from)
}

// ApplySettlement locks the touched accounts in ascending ID order, moves the balances
// and completes the record in one database transaction
func (s *GormLedgerStore) ApplySettlement(ctx context.Context, settlement entity.Settlement) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := make(map[uint64]*model.Account, 2)
		for _, userID := range settlement.AccountIDs() {
			var row model.Account
			if err := lockForUpdate(tx).Where("user_id = ?", userID).Take(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.ErrAccountNotFound
				}
				return err
			}
			accounts[userID] = &row
		}

		if settlement.DebitUserID != 0 {
			debit := accounts[settlement.DebitUserID]
			if debit.InternalBalance.LessThan(settlement.Amount) {
				return errs.NewInsufficientFundsError(settlement.DebitUserID,
					entity.FormatAmount(settlement.Amount), entity.FormatAmount(debit.InternalBalance))
			}
			debit.InternalBalance = debit.InternalBalance.Sub(settlement.Amount)
		}
		if settlement.CreditUserID != 0 {
			credit := accounts[settlement.CreditUserID]
			credit.InternalBalance = credit.InternalBalance.Add(settlement.Amount)
		}

		completedAt := settlement.CompletedAt.UTC()
		result := tx.Model(&model.TransactionRecord{}).
			Where("id = ? AND status = ?", settlement.RecordID, string(entity.StatusProcessing)).
			Updates(map[string]any{
				"status":     string(entity.StatusCompleted),
				"updated_at": completedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.TransactionRecord{}).Where("id = ?", settlement.RecordID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errs.ErrTransactionNotFound
			}
			return fmt.Errorf("%w: %s is not processing", errs.ErrIllegalTransition, settlement.RecordID)
		}

		for _, userID := range settlement.AccountIDs() {
			row := accounts[userID]
			if err := tx.Model(&model.Account{}).
				Where("user_id = ?", userID).
				Updates(map[string]any{
					"internal_balance": row.InternalBalance,
					"updated_at":       completedAt,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrAccountNotFound) ||
		errors.Is(err, errs.ErrTransactionNotFound) ||
		errors.Is(err, errs.ErrIllegalTransition) ||
		errs.IsInsufficientFundsError(err) {
		return err
	}
	return s.handleDatabaseError("applying settlement", err, map[string]any{
		"transaction_id": settlement.RecordID,
		"amount":         entity.FormatAmount(settlement.Amount),
	})
}

// GetTransaction retrieves a record by ID
func (s *GormLedgerStore) GetTransaction(ctx context.Context, id string) (*entity.TransactionRecord, error) {
	var row model.TransactionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, s.handleDatabaseError("getting transaction", err, map[string]any{"transaction_id": id})
	}
	return recordToEntity(&row), nil
}

// ListUserTransactions returns sent and received records, newest first
func (s *GormLedgerStore) ListUserTransactions(ctx context.Context, userID uint64, limit int) ([]entity.UserTransaction, error) {
	var rows []model.TransactionRecord
	query := s.db.WithContext(ctx).
		Where("subject_user_id = ? OR counterparty_user_id = ?", userID, userID).
		Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, s.handleDatabaseError("listing user transactions", err, map[string]any{"user_id": userID})
	}

	result := make([]entity.UserTransaction, 0, len(rows))
	for _, record := range recordsToEntities(rows) {
		result = append(result, entity.UserTransaction{Record: record, IsReceived: record.IsReceivedBy(userID)})
	}
	return result, nil
}

// ListTransactions returns every record, newest first
func (s *GormLedgerStore) ListTransactions(ctx context.Context, limit int) ([]*entity.TransactionRecord, error) {
	var rows []model.TransactionRecord
	query := s.db.WithContext(ctx).Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, s.handleDatabaseError("listing transactions", err, nil)
	}
	return recordsToEntities(rows), nil
}

// whereMatch narrows a query to records moving the same value between the same users
func whereMatch(query *gorm.DB, match entity.FactMatch) *gorm.DB {
	query = query.Where("kind = ? AND subject_user_id = ? AND amount = ?",
		string(match.Kind), match.SubjectUserID, canonicalAmount(match.Amount))
	if !match.NotBefore.IsZero() {
		query = query.Where("created_at >= ?", match.NotBefore.UTC())
	}
	if match.CounterpartyUserID == nil {
		return query.Where("counterparty_user_id IS NULL")
	}
	return query.Where("counterparty_user_id = ?", *match.CounterpartyUserID)
}

// canonicalAmount is the text form amounts are stored in
func canonicalAmount(amount decimal.Decimal) string {
	return amount.String()
}

// FindUnclaimedFact returns the oldest matching fact that confirmed nothing yet
func (s *GormLedgerStore) FindUnclaimedFact(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error) {
	claimed := s.db.Model(&model.TransactionRecord{}).
		Select("confirmation_ref").
		Where("confirmation_ref IS NOT NULL")

	var row model.TransactionRecord
	query := whereMatch(s.db.WithContext(ctx), match).
		Where("external_ref IS NOT NULL AND status = ?", string(entity.StatusCompleted)).
		Where("external_ref NOT IN (?)", claimed).
		Order(oldestFirst)
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, s.handleDatabaseError("finding unclaimed fact", err, map[string]any{"user_id": match.SubjectUserID})
	}
	return recordToEntity(&row), nil
}

// whereAwaiting narrows a query to external intents still waiting for their fact
func whereAwaiting(query *gorm.DB) *gorm.DB {
	return query.Where("ledger_domain = ? AND external_ref IS NULL AND status = ?",
		string(entity.DomainExternal), string(entity.StatusProcessing))
}

// FindAwaitingConfirmation returns the oldest matching external intent still processing
func (s *GormLedgerStore) FindAwaitingConfirmation(ctx context.Context, match entity.FactMatch) (*entity.TransactionRecord, error) {
	var row model.TransactionRecord
	query := whereMatch(whereAwaiting(s.db.WithContext(ctx)), match).Order(oldestFirst)
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, s.handleDatabaseError("finding awaiting intent", err, map[string]any{"user_id": match.SubjectUserID})
	}
	return recordToEntity(&row), nil
}

// ConfirmExternalIntent completes an awaiting intent with the fact that corroborates it.
// The unique confirmation_ref index stops one fact from confirming two intents.
func (s *GormLedgerStore) ConfirmExternalIntent(ctx context.Context, intentID, factRef string, at time.Time) error {
	result := whereAwaiting(s.db.WithContext(ctx).Model(&model.TransactionRecord{})).
		Where("id = ?", intentID).
		Updates(map[string]any{
			"confirmation_ref": factRef,
			"status":           string(entity.StatusCompleted),
			"updated_at":       at.UTC(),
		})
	if result.Error != nil {
		if s.errorClassifier.IsDuplicateKeyError(result.Error) {
			return errs.ErrDuplicateExternalRef
		}
		return s.handleDatabaseError("confirming intent", result.Error, map[string]any{
			"transaction_id": intentID,
			"external_ref":   factRef,
		})
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := s.GetTransaction(ctx, intentID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", errs.ErrIllegalTransition, intentID, current.Status)
}

// ListAwaitingConfirmation returns external intents still processing, oldest first
func (s *GormLedgerStore) ListAwaitingConfirmation(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.TransactionRecord, error) {
	var rows []model.TransactionRecord
	query := whereAwaiting(s.db.WithContext(ctx)).
		Where("created_at < ?", createdBefore.UTC()).
		Order(oldestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, s.handleDatabaseError("listing awaiting intents", err, nil)
	}
	return recordsToEntities(rows), nil
}
