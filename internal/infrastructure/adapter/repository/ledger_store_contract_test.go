package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/logger"
)

var fixedTime = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x00000000000000000000000000000000000000bb"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func u64(v uint64) *uint64 { return &v }

func TestMemoryLedgerStore(t *testing.T) {
	runLedgerStoreContract(t, func(t *testing.T) persistence.LedgerStore {
		return NewMemoryLedgerStore()
	})
}

func TestGormLedgerStore(t *testing.T) {
	runLedgerStoreContract(t, func(t *testing.T) persistence.LedgerStore {
		log := logger.NewNoopLogger()
		db := database.NewTestDBManager(t, log).Open(t)
		return NewGormLedgerStore(db, log)
	})
}

func seed(t *testing.T, store persistence.LedgerStore, userID uint64, balance string) {
	t.Helper()
	account := entity.RestoreAccountLedger(userID, dec(balance), nil, false, fixedTime, fixedTime)
	require.NoError(t, store.CreateAccount(context.Background(), account))
}

func balanceOf(t *testing.T, store persistence.LedgerStore, userID uint64) string {
	t.Helper()
	account, err := store.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return account.InternalBalance().String()
}

func processingRecord(t *testing.T, store persistence.LedgerStore, id string, kind entity.Kind, subject uint64, counterparty *uint64, amount string, domain entity.LedgerDomain, at time.Time) *entity.TransactionRecord {
	t.Helper()
	ctx := context.Background()
	record := &entity.TransactionRecord{
		ID:                 id,
		SubjectUserID:      subject,
		Kind:               kind,
		Amount:             dec(amount),
		Status:             entity.StatusPending,
		LedgerDomain:       domain,
		CounterpartyUserID: counterparty,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
	require.NoError(t, store.CreateTransaction(ctx, record))
	require.NoError(t, store.UpdateTransactionStatus(ctx, id, entity.StatusPending, entity.StatusProcessing, "", at))
	return record
}

func fact(t *testing.T, id, ref string, kind entity.Kind, subject uint64, counterparty *uint64, amount string, at time.Time) *entity.TransactionRecord {
	t.Helper()
	record, err := entity.NewReconciledRecord(id, kind, subject, counterparty, dec(amount), ref, 7, at)
	require.NoError(t, err)
	return record
}

func runLedgerStoreContract(t *testing.T, newStore func(t *testing.T) persistence.LedgerStore) {
	ctx := context.Background()

	t.Run("Accounts are created once and read back", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "12.5")

		account, err := store.GetAccount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), account.UserID)
		assert.Equal(t, "12.5", account.InternalBalance().String())
		assert.False(t, account.HasExternalAddress())

		err = store.CreateAccount(ctx, entity.RestoreAccountLedger(1, decimal.Zero, nil, false, fixedTime, fixedTime))
		assert.ErrorIs(t, err, errs.ErrDuplicateAccount)

		_, err = store.GetAccount(ctx, 99)
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("Accounts are listed by user ID", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 3, "3")
		seed(t, store, 1, "1")
		seed(t, store, 2, "2")

		accounts, err := store.ListAccounts(ctx, 0)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, uint64(1), accounts[0].UserID)
		assert.Equal(t, uint64(2), accounts[1].UserID)
		assert.Equal(t, uint64(3), accounts[2].UserID)
		assert.Equal(t, "3", accounts[2].InternalBalance().String())

		accounts, err = store.ListAccounts(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("Balances keep eighteen fractional digits", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "0.000000000000000001")
		assert.Equal(t, "0.000000000000000001", balanceOf(t, store, 1))
	})

	t.Run("An address links to at most one account", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "0")
		seed(t, store, 2, "0")

		require.NoError(t, store.LinkExternalAddress(ctx, 1, addrA, fixedTime))
		require.NoError(t, store.LinkExternalAddress(ctx, 1, addrA, fixedTime))

		found, err := store.FindAccountByAddress(ctx, addrA)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), found.UserID)

		err = store.LinkExternalAddress(ctx, 2, addrA, fixedTime)
		assert.ErrorIs(t, err, errs.ErrAddressInUse)

		err = store.LinkExternalAddress(ctx, 42, addrB, fixedTime)
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)

		_, err = store.FindAccountByAddress(ctx, addrB)
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("Registration is reported as a change only once", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "0")

		changed, err := store.SetExternalRegistered(ctx, 1, fixedTime)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = store.SetExternalRegistered(ctx, 1, fixedTime)
		require.NoError(t, err)
		assert.False(t, changed)

		account, err := store.GetAccount(ctx, 1)
		require.NoError(t, err)
		assert.True(t, account.ExternalRegistered)

		_, err = store.SetExternalRegistered(ctx, 9, fixedTime)
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("Status only moves forward from the expected state", func(t *testing.T) {
		store := newStore(t)
		processingRecord(t, store, "r1", entity.KindDeposit, 1, nil, "5", entity.DomainInternal, fixedTime)

		err := store.UpdateTransactionStatus(ctx, "r1", entity.StatusPending, entity.StatusProcessing, "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrIllegalTransition)

		err = store.UpdateTransactionStatus(ctx, "missing", entity.StatusPending, entity.StatusProcessing, "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

		require.NoError(t, store.UpdateTransactionStatus(ctx, "r1", entity.StatusProcessing, entity.StatusFailed, "boom", fixedTime.Add(time.Second)))
		record, err := store.GetTransaction(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFailed, record.Status)
		assert.Equal(t, "boom", record.FailureReason)

		err = store.UpdateTransactionStatus(ctx, "r1", entity.StatusFailed, entity.StatusCompleted, "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrIllegalTransition)
	})

	t.Run("Settlements move balances and complete the record together", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "100")
		seed(t, store, 2, "0")
		processingRecord(t, store, "t1", entity.KindTransfer, 1, u64(2), "40", entity.DomainInternal, fixedTime)

		err := store.ApplySettlement(ctx, entity.Settlement{
			RecordID:     "t1",
			DebitUserID:  1,
			CreditUserID: 2,
			Amount:       dec("40"),
			CompletedAt:  fixedTime.Add(time.Second),
		})
		require.NoError(t, err)

		assert.Equal(t, "60", balanceOf(t, store, 1))
		assert.Equal(t, "40", balanceOf(t, store, 2))
		record, err := store.GetTransaction(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, record.Status)

		err = store.ApplySettlement(ctx, entity.Settlement{RecordID: "t1", CreditUserID: 2, Amount: dec("1"), CompletedAt: fixedTime})
		assert.ErrorIs(t, err, errs.ErrIllegalTransition)
		assert.Equal(t, "40", balanceOf(t, store, 2))
	})

	t.Run("An uncovered debit writes nothing", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "10")
		processingRecord(t, store, "w1", entity.KindWithdraw, 1, nil, "10.000000000000000001", entity.DomainInternal, fixedTime)

		err := store.ApplySettlement(ctx, entity.Settlement{
			RecordID:    "w1",
			DebitUserID: 1,
			Amount:      dec("10.000000000000000001"),
			CompletedAt: fixedTime,
		})
		assert.True(t, errs.IsInsufficientFundsError(err))
		assert.Equal(t, "10", balanceOf(t, store, 1))

		record, err := store.GetTransaction(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusProcessing, record.Status)
	})

	t.Run("A settlement on a missing account writes nothing", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "10")
		processingRecord(t, store, "t2", entity.KindTransfer, 1, u64(7), "3", entity.DomainInternal, fixedTime)

		err := store.ApplySettlement(ctx, entity.Settlement{RecordID: "t2", DebitUserID: 1, CreditUserID: 7, Amount: dec("3"), CompletedAt: fixedTime})
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
		assert.Equal(t, "10", balanceOf(t, store, 1))
	})

	t.Run("Concurrent withdrawals never overdraw", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1, "5")
		for i := 0; i < 10; i++ {
			processingRecord(t, store, fmt.Sprintf("cw%d", i), entity.KindWithdraw, 1, nil, "1", entity.DomainInternal, fixedTime)
		}

		var wg sync.WaitGroup
		var applied atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := store.ApplySettlement(ctx, entity.Settlement{
					RecordID:    fmt.Sprintf("cw%d", i),
					DebitUserID: 1,
					Amount:      dec("1"),
					CompletedAt: fixedTime,
				})
				if err == nil {
					applied.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(5), applied.Load())
		assert.Equal(t, "0", balanceOf(t, store, 1))
	})

	t.Run("Insert-if-absent stores one record per external reference", func(t *testing.T) {
		store := newStore(t)

		inserted, err := store.InsertIfAbsentByExternalRef(ctx, fact(t, "f1", "0xref", entity.KindDeposit, 1, nil, "5", fixedTime))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.InsertIfAbsentByExternalRef(ctx, fact(t, "f2", "0xref", entity.KindDeposit, 1, nil, "5", fixedTime))
		require.NoError(t, err)
		assert.False(t, inserted)

		_, err = store.GetTransaction(ctx, "f2")
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

		err = store.CreateTransaction(ctx, fact(t, "f3", "0xref", entity.KindDeposit, 1, nil, "5", fixedTime))
		assert.ErrorIs(t, err, errs.ErrDuplicateExternalRef)
	})

	t.Run("Concurrent inserts of one reference record it once", func(t *testing.T) {
		store := newStore(t)

		records := make([]*entity.TransactionRecord, 20)
		for i := range records {
			records[i] = fact(t, fmt.Sprintf("c%d", i), "0xsame", entity.KindDeposit, 1, nil, "1", fixedTime)
		}

		var wg sync.WaitGroup
		var inserted atomic.Int32
		for _, record := range records {
			wg.Add(1)
			go func(record *entity.TransactionRecord) {
				defer wg.Done()
				ok, err := store.InsertIfAbsentByExternalRef(ctx, record)
				if err == nil && ok {
					inserted.Add(1)
				}
			}(record)
		}
		wg.Wait()

		assert.Equal(t, int32(1), inserted.Load())
		all, err := store.ListTransactions(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Listings are newest first and tag received transfers", func(t *testing.T) {
		store := newStore(t)
		processingRecord(t, store, "l1", entity.KindDeposit, 1, nil, "1", entity.DomainInternal, fixedTime)
		processingRecord(t, store, "l2", entity.KindTransfer, 2, u64(1), "2", entity.DomainInternal, fixedTime.Add(time.Second))
		processingRecord(t, store, "l3", entity.KindTransfer, 1, u64(2), "3", entity.DomainInternal, fixedTime.Add(2*time.Second))
		processingRecord(t, store, "l4", entity.KindDeposit, 3, nil, "4", entity.DomainInternal, fixedTime.Add(3*time.Second))

		items, err := store.ListUserTransactions(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "l3", items[0].Record.ID)
		assert.False(t, items[0].IsReceived)
		assert.Equal(t, "l2", items[1].Record.ID)
		assert.True(t, items[1].IsReceived)
		assert.Equal(t, "l1", items[2].Record.ID)

		items, err = store.ListUserTransactions(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "l3", items[0].Record.ID)

		all, err := store.ListTransactions(ctx, 2)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "l4", all[0].ID)
		assert.Equal(t, "l3", all[1].ID)
	})

	t.Run("A fact confirms at most one awaiting intent", func(t *testing.T) {
		store := newStore(t)
		processingRecord(t, store, "i1", entity.KindWithdraw, 1, nil, "5", entity.DomainExternal, fixedTime)
		processingRecord(t, store, "i2", entity.KindWithdraw, 1, nil, "5", entity.DomainExternal, fixedTime.Add(time.Second))
		processingRecord(t, store, "i3", entity.KindWithdraw, 1, nil, "6", entity.DomainExternal, fixedTime)

		recorded := fact(t, "f1", "0xw1", entity.KindWithdraw, 1, nil, "5.00", fixedTime.Add(2*time.Second))
		inserted, err := store.InsertIfAbsentByExternalRef(ctx, recorded)
		require.NoError(t, err)
		require.True(t, inserted)

		awaiting, err := store.FindAwaitingConfirmation(ctx, entity.MatchOf(recorded))
		require.NoError(t, err)
		assert.Equal(t, "i1", awaiting.ID)

		claimable, err := store.FindUnclaimedFact(ctx, entity.FactMatch{Kind: entity.KindWithdraw, SubjectUserID: 1, Amount: dec("5")})
		require.NoError(t, err)
		assert.Equal(t, "f1", claimable.ID)

		require.NoError(t, store.ConfirmExternalIntent(ctx, "i1", "0xw1", fixedTime.Add(3*time.Second)))
		confirmed, err := store.GetTransaction(ctx, "i1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, confirmed.Status)
		require.NotNil(t, confirmed.ConfirmationRef)
		assert.Equal(t, "0xw1", *confirmed.ConfirmationRef)

		_, err = store.FindUnclaimedFact(ctx, entity.MatchOf(recorded))
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

		err = store.ConfirmExternalIntent(ctx, "i2", "0xw1", fixedTime)
		assert.ErrorIs(t, err, errs.ErrDuplicateExternalRef)

		err = store.ConfirmExternalIntent(ctx, "i1", "0xother", fixedTime)
		assert.ErrorIs(t, err, errs.ErrIllegalTransition)

		_, err = store.FindAwaitingConfirmation(ctx, entity.FactMatch{Kind: entity.KindWithdraw, SubjectUserID: 1, Amount: dec("7")})
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})

	t.Run("Transfer matching includes the counterparty", func(t *testing.T) {
		store := newStore(t)
		processingRecord(t, store, "x1", entity.KindTransfer, 1, u64(2), "5", entity.DomainExternal, fixedTime)

		_, err := store.FindAwaitingConfirmation(ctx, entity.FactMatch{Kind: entity.KindTransfer, SubjectUserID: 1, CounterpartyUserID: u64(3), Amount: dec("5")})
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

		found, err := store.FindAwaitingConfirmation(ctx, entity.FactMatch{Kind: entity.KindTransfer, SubjectUserID: 1, CounterpartyUserID: u64(2), Amount: dec("5")})
		require.NoError(t, err)
		assert.Equal(t, "x1", found.ID)
	})

	t.Run("Facts older than the match window are not claimable", func(t *testing.T) {
		store := newStore(t)
		stale := fact(t, "f-old", "0xold", entity.KindDeposit, 1, nil, "10", fixedTime.Add(-30*24*time.Hour))
		inserted, err := store.InsertIfAbsentByExternalRef(ctx, stale)
		require.NoError(t, err)
		require.True(t, inserted)

		match := entity.FactMatch{Kind: entity.KindDeposit, SubjectUserID: 1, Amount: dec("10"), NotBefore: fixedTime.Add(-time.Hour)}
		_, err = store.FindUnclaimedFact(ctx, match)
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

		fresh := fact(t, "f-new", "0xnew", entity.KindDeposit, 1, nil, "10", fixedTime.Add(-time.Minute))
		inserted, err = store.InsertIfAbsentByExternalRef(ctx, fresh)
		require.NoError(t, err)
		require.True(t, inserted)

		found, err := store.FindUnclaimedFact(ctx, match)
		require.NoError(t, err)
		assert.Equal(t, "f-new", found.ID)

		match.NotBefore = time.Time{}
		found, err = store.FindUnclaimedFact(ctx, match)
		require.NoError(t, err)
		assert.Equal(t, "f-old", found.ID)
	})

	t.Run("Awaiting intents are listed oldest first before the cutoff", func(t *testing.T) {
		store := newStore(t)
		processingRecord(t, store, "a2", entity.KindDeposit, 1, nil, "1", entity.DomainExternal, fixedTime.Add(time.Minute))
		processingRecord(t, store, "a1", entity.KindDeposit, 1, nil, "1", entity.DomainExternal, fixedTime)
		processingRecord(t, store, "a3", entity.KindDeposit, 1, nil, "1", entity.DomainExternal, fixedTime.Add(time.Hour))
		processingRecord(t, store, "n1", entity.KindDeposit, 1, nil, "1", entity.DomainInternal, fixedTime)

		items, err := store.ListAwaitingConfirmation(ctx, fixedTime.Add(30*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a1", items[0].ID)
		assert.Equal(t, "a2", items[1].ID)

		items, err = store.ListAwaitingConfirmation(ctx, fixedTime.Add(30*time.Minute), 1)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("Reconciled records keep their external coordinates", func(t *testing.T) {
		store := newStore(t)
		recorded := fact(t, "f9", "0xabc", entity.KindTransfer, 1, u64(2), "2.5", fixedTime)
		_, err := store.InsertIfAbsentByExternalRef(ctx, recorded)
		require.NoError(t, err)

		got, err := store.GetTransaction(ctx, "f9")
		require.NoError(t, err)
		assert.Equal(t, entity.DomainExternal, got.LedgerDomain)
		require.NotNil(t, got.ExternalRef)
		assert.Equal(t, "0xabc", *got.ExternalRef)
		require.NotNil(t, got.ExternalHeight)
		assert.Equal(t, uint64(7), *got.ExternalHeight)
		require.NotNil(t, got.CounterpartyUserID)
		assert.Equal(t, uint64(2), *got.CounterpartyUserID)
		assert.True(t, got.Amount.Equal(dec("2.5")))
		assert.True(t, got.CreatedAt.Equal(fixedTime))
	})

	t.Run("Missing external reference is rejected by insert-if-absent", func(t *testing.T) {
		store := newStore(t)
		_, err := store.InsertIfAbsentByExternalRef(ctx, &entity.TransactionRecord{ID: "x"})
		assert.True(t, errors.Is(err, errs.ErrValidation))
	})
}
