package settlement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/repository"
	timeadapter "github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/time"
	notificationmocks "github.com/amirhossein-jamali/settlement-engine/mocks/port/notification"
)

const (
	userA = uint64(1)
	userB = uint64(2)
)

type harness struct {
	memory   *repository.MemoryLedgerStore
	queue    *IntentQueue
	worker   *SettlementWorker
	service  *Service
	notifier *notificationmocks.MockNotificationSink
}

func testWorkerConfig() WorkerConfig {
	cfg := DefaultWorkerConfig()
	cfg.Retry = RetryConfig{MaxRetries: 3, RetryInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return cfg
}

// newHarness wires a worker and service over an in-memory store. wrap lets a test
// decorate the store to inject faults.
func newHarness(t *testing.T, capacity int, cfg WorkerConfig, wrap func(persistence.LedgerStore) persistence.LedgerStore) *harness {
	t.Helper()

	memory := repository.NewMemoryLedgerStore()
	var store persistence.LedgerStore = memory
	if wrap != nil {
		store = wrap(memory)
	}

	notifier := notificationmocks.NewMockNotificationSink(t)
	log := logger.NewNoopLogger()
	tp := timeadapter.NewRealTimeProvider()
	queue := NewIntentQueue(capacity)
	worker := NewSettlementWorker(queue, store, notifier, log, tp, nil, cfg)
	service := NewService(store, queue, worker, nil, notifier, log, tp, nil)

	return &harness{memory: memory, queue: queue, worker: worker, service: service, notifier: notifier}
}

// allowNotifications accepts any notification; register specific expectations before calling it
func (h *harness) allowNotifications() {
	h.notifier.EXPECT().Notify(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
}

func (h *harness) seedAccount(t *testing.T, userID uint64, balance string) {
	t.Helper()
	now := time.Now().UTC()
	account := entity.RestoreAccountLedger(userID, decimal.RequireFromString(balance), nil, false, now, now)
	require.NoError(t, h.memory.CreateAccount(context.Background(), account))
}

func (h *harness) linkAddress(t *testing.T, userID uint64, address string) {
	t.Helper()
	require.NoError(t, h.memory.LinkExternalAddress(context.Background(), userID, address, time.Now().UTC()))
}

func (h *harness) balance(t *testing.T, userID uint64) string {
	t.Helper()
	account, err := h.memory.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return account.InternalBalance().String()
}

func (h *harness) record(t *testing.T, id string) *entity.TransactionRecord {
	t.Helper()
	record, err := h.memory.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return record
}

// status reads a record without failing the test, for use inside polling conditions
func (h *harness) status(id string) entity.TransactionStatus {
	record, err := h.memory.GetTransaction(context.Background(), id)
	if err != nil {
		return ""
	}
	return record.Status
}

func (h *harness) submit(t *testing.T, kind entity.Kind, subject uint64, amount string, domain entity.LedgerDomain, counterparty *uint64) string {
	t.Helper()
	result, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
		Kind:               string(kind),
		SubjectUserID:      subject,
		Amount:             amount,
		Domain:             string(domain),
		CounterpartyUserID: counterparty,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, result.Status)
	return result.IntentID
}

// drain closes the queue and runs the worker until every accepted intent is handled
func (h *harness) drain(t *testing.T) {
	t.Helper()
	h.queue.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.worker.Run(ctx)
	require.NoError(t, ctx.Err())
}

func uptr(v uint64) *uint64 { return &v }

func TestWorkerDeposit(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.notifier.EXPECT().Notify(mock.Anything, userA, "Deposit of 100 completed successfully", entity.SeveritySuccess).Return().Once()
	h.allowNotifications()
	h.seedAccount(t, userA, "0")

	id := h.submit(t, entity.KindDeposit, userA, "100", entity.DomainInternal, nil)
	assert.Equal(t, entity.StatusPending, h.record(t, id).Status)

	h.drain(t)

	record := h.record(t, id)
	assert.Equal(t, entity.StatusCompleted, record.Status)
	assert.Empty(t, record.FailureReason)
	assert.Equal(t, "100", h.balance(t, userA))
}

func TestWorkerWithdrawInsufficientAtApplyTime(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.notifier.EXPECT().Notify(mock.Anything, userA, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "failed: insufficient funds")
	}), entity.SeverityError).Return().Once()
	h.allowNotifications()
	h.seedAccount(t, userA, "100")

	// both pass the submission check against 100; only the first fits at apply time
	first := h.submit(t, entity.KindWithdraw, userA, "80", entity.DomainInternal, nil)
	second := h.submit(t, entity.KindWithdraw, userA, "80", entity.DomainInternal, nil)

	h.drain(t)

	assert.Equal(t, entity.StatusCompleted, h.record(t, first).Status)
	failed := h.record(t, second)
	assert.Equal(t, entity.StatusFailed, failed.Status)
	assert.Equal(t, "insufficient funds", failed.FailureReason)
	assert.Equal(t, "20", h.balance(t, userA))
}

func TestWorkerTransfer(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.notifier.EXPECT().Notify(mock.Anything, userB, "Received 40 from user 1", entity.SeveritySuccess).Return().Once()
	h.allowNotifications()
	h.seedAccount(t, userA, "100")
	h.seedAccount(t, userB, "0")

	id := h.submit(t, entity.KindTransfer, userA, "40", entity.DomainInternal, uptr(userB))
	h.drain(t)

	assert.Equal(t, entity.StatusCompleted, h.record(t, id).Status)
	assert.Equal(t, "60", h.balance(t, userA))
	assert.Equal(t, "40", h.balance(t, userB))
}

func TestWorkerTransferToMissingAccountAppliesNothing(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "100")
	h.seedAccount(t, userB, "0")

	id := h.submit(t, entity.KindTransfer, userA, "40", entity.DomainInternal, uptr(userB))

	// counterparty vanishes between submission and processing
	intent := <-h.queue.Intents()
	h.worker.Process(context.Background(), intentWithCounterparty(t, intent, 99))

	record := h.record(t, id)
	assert.Equal(t, entity.StatusFailed, record.Status)
	assert.Equal(t, "account not found", record.FailureReason)
	assert.Equal(t, "100", h.balance(t, userA))
	assert.Equal(t, "0", h.balance(t, userB))
}

func intentWithCounterparty(t *testing.T, intent *entity.Intent, counterparty uint64) *entity.Intent {
	t.Helper()
	rebuilt, err := entity.NewTransferIntent(intent.ID(), intent.SubjectUserID(), counterparty, intent.Amount(), intent.Domain(), intent.SubmittedAt())
	require.NoError(t, err)
	return rebuilt
}

func TestWorkerConcurrentWithdrawals(t *testing.T) {
	h := newHarness(t, 64, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "30")

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
				Kind:          string(entity.KindWithdraw),
				SubjectUserID: userA,
				Amount:        "1",
				Domain:        string(entity.DomainInternal),
			})
			if assert.NoError(t, err) {
				ids <- result.IntentID
			}
		}()
	}
	wg.Wait()
	close(ids)

	h.drain(t)

	completed, failed := 0, 0
	for id := range ids {
		record := h.record(t, id)
		switch record.Status {
		case entity.StatusCompleted:
			completed++
		case entity.StatusFailed:
			assert.Equal(t, "insufficient funds", record.FailureReason)
			failed++
		default:
			t.Fatalf("intent %s left %s", id, record.Status)
		}
	}
	assert.Equal(t, 30, completed)
	assert.Equal(t, 20, failed)
	assert.Equal(t, "0", h.balance(t, userA))
}

func TestWorkerConcurrentWithdrawalsWhileRunning(t *testing.T) {
	h := newHarness(t, 64, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "30")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.worker.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
				Kind:          string(entity.KindWithdraw),
				SubjectUserID: userA,
				Amount:        "1",
				Domain:        string(entity.DomainInternal),
			})
			// late submissions may already see an empty balance
			if err != nil {
				assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()
	h.queue.Close()
	<-h.worker.Done()

	records, err := h.memory.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	completed := 0
	for _, r := range records {
		assert.True(t, r.Status.IsTerminal())
		if r.Status == entity.StatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 30, completed)
	assert.Equal(t, "0", h.balance(t, userA))
}

// orderStore records the order in which records reach a terminal status
type orderStore struct {
	persistence.LedgerStore
	mu    sync.Mutex
	order []string
}

func (s *orderStore) ApplySettlement(ctx context.Context, settlement entity.Settlement) error {
	err := s.LedgerStore.ApplySettlement(ctx, settlement)
	if err == nil {
		s.append(settlement.RecordID)
	}
	return err
}

func (s *orderStore) UpdateTransactionStatus(ctx context.Context, id string, from, to entity.TransactionStatus, reason string, at time.Time) error {
	err := s.LedgerStore.UpdateTransactionStatus(ctx, id, from, to, reason, at)
	if err == nil && to.IsTerminal() {
		s.append(id)
	}
	return err
}

func (s *orderStore) append(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, id)
}

func TestWorkerPreservesSubmissionOrder(t *testing.T) {
	var recorder *orderStore
	h := newHarness(t, 100, testWorkerConfig(), func(s persistence.LedgerStore) persistence.LedgerStore {
		recorder = &orderStore{LedgerStore: s}
		return recorder
	})
	h.allowNotifications()
	h.seedAccount(t, userA, "10")
	h.seedAccount(t, userB, "10")

	var submitted []string
	for i := 0; i < 20; i++ {
		switch i % 3 {
		case 0:
			submitted = append(submitted, h.submit(t, entity.KindDeposit, userA, "1", entity.DomainInternal, nil))
		case 1:
			submitted = append(submitted, h.submit(t, entity.KindWithdraw, userA, "7", entity.DomainInternal, nil))
		default:
			submitted = append(submitted, h.submit(t, entity.KindTransfer, userB, "3", entity.DomainInternal, uptr(userA)))
		}
	}

	h.drain(t)

	assert.Equal(t, submitted, recorder.order)
}

// flakyStore fails ApplySettlement with a retryable error a fixed number of times
type flakyStore struct {
	persistence.LedgerStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) ApplySettlement(ctx context.Context, settlement entity.Settlement) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: connection reset by peer", errs.ErrExternalUnavailable)
	}
	return s.LedgerStore.ApplySettlement(ctx, settlement)
}

func TestWorkerRetriesUnavailableStore(t *testing.T) {
	t.Run("recovers within retry budget", func(t *testing.T) {
		var flaky *flakyStore
		h := newHarness(t, 10, testWorkerConfig(), func(s persistence.LedgerStore) persistence.LedgerStore {
			flaky = &flakyStore{LedgerStore: s, failures: 2}
			return flaky
		})
		h.allowNotifications()
		h.seedAccount(t, userA, "0")

		id := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)
		h.drain(t)

		assert.Equal(t, entity.StatusCompleted, h.record(t, id).Status)
		assert.Equal(t, 3, flaky.calls)
		assert.Equal(t, "5", h.balance(t, userA))
	})

	t.Run("fails after retry budget", func(t *testing.T) {
		h := newHarness(t, 10, testWorkerConfig(), func(s persistence.LedgerStore) persistence.LedgerStore {
			return &flakyStore{LedgerStore: s, failures: 100}
		})
		h.allowNotifications()
		h.seedAccount(t, userA, "0")

		id := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)
		h.drain(t)

		record := h.record(t, id)
		assert.Equal(t, entity.StatusFailed, record.Status)
		assert.Equal(t, "external dependency unavailable", record.FailureReason)
		assert.Equal(t, "0", h.balance(t, userA))
	})
}

// slowStore blocks ApplySettlement until its context ends
type slowStore struct {
	persistence.LedgerStore
}

func (s *slowStore) ApplySettlement(ctx context.Context, _ entity.Settlement) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkerProcessingTimeout(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.ProcessingTimeout = 20 * coreport.Millisecond
	h := newHarness(t, 10, cfg, func(s persistence.LedgerStore) persistence.LedgerStore {
		return &slowStore{LedgerStore: s}
	})
	h.allowNotifications()
	h.seedAccount(t, userA, "0")

	slow := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)
	h.drain(t)

	record := h.record(t, slow)
	assert.Equal(t, entity.StatusFailed, record.Status)
	assert.Equal(t, "processing timed out", record.FailureReason)
	assert.Equal(t, "0", h.balance(t, userA))
}

// startFailStore fails the pending→processing update with a retryable error a fixed number of times
type startFailStore struct {
	persistence.LedgerStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *startFailStore) UpdateTransactionStatus(ctx context.Context, id string, from, to entity.TransactionStatus, reason string, at time.Time) error {
	if to == entity.StatusProcessing {
		s.mu.Lock()
		s.calls++
		fail := s.calls <= s.failures
		s.mu.Unlock()
		if fail {
			return fmt.Errorf("%w: connection refused", errs.ErrExternalUnavailable)
		}
	}
	return s.LedgerStore.UpdateTransactionStatus(ctx, id, from, to, reason, at)
}

func TestWorkerRetriesStartTransition(t *testing.T) {
	t.Run("transient failure is retried", func(t *testing.T) {
		var flaky *startFailStore
		h := newHarness(t, 10, testWorkerConfig(), func(s persistence.LedgerStore) persistence.LedgerStore {
			flaky = &startFailStore{LedgerStore: s, failures: 1}
			return flaky
		})
		h.allowNotifications()
		h.seedAccount(t, userA, "0")

		id := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)
		h.drain(t)

		assert.Equal(t, entity.StatusCompleted, h.record(t, id).Status)
		assert.Equal(t, 2, flaky.calls)
		assert.Equal(t, "5", h.balance(t, userA))
	})

	t.Run("exhausted retries fail the intent", func(t *testing.T) {
		h := newHarness(t, 10, testWorkerConfig(), func(s persistence.LedgerStore) persistence.LedgerStore {
			return &startFailStore{LedgerStore: s, failures: 100}
		})
		h.notifier.EXPECT().Notify(mock.Anything, userA, "Deposit of 5 failed: external dependency unavailable", entity.SeverityError).Return().Once()
		h.allowNotifications()
		h.seedAccount(t, userA, "0")

		id := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)
		h.drain(t)

		record := h.record(t, id)
		assert.Equal(t, entity.StatusFailed, record.Status)
		assert.Equal(t, "external dependency unavailable", record.FailureReason)
		assert.Equal(t, "0", h.balance(t, userA))
	})
}

// hangingStore never answers the pending→processing update until its context ends
type hangingStore struct {
	persistence.LedgerStore
}

func (s *hangingStore) UpdateTransactionStatus(ctx context.Context, id string, from, to entity.TransactionStatus, reason string, at time.Time) error {
	if to == entity.StatusProcessing {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.LedgerStore.UpdateTransactionStatus(ctx, id, from, to, reason, at)
}

func TestWorkerBoundsStoreWrites(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.PersistTimeout = 20 * coreport.Millisecond
	h := newHarness(t, 10, cfg, func(s persistence.LedgerStore) persistence.LedgerStore {
		return &hangingStore{LedgerStore: s}
	})
	h.allowNotifications()
	h.seedAccount(t, userA, "0")

	id := h.submit(t, entity.KindDeposit, userA, "5", entity.DomainInternal, nil)

	started := time.Now()
	h.worker.Process(context.Background(), <-h.queue.Intents())
	assert.Less(t, time.Since(started), 2*time.Second)

	record := h.record(t, id)
	assert.Equal(t, entity.StatusFailed, record.Status)
	assert.NotEmpty(t, record.FailureReason)
	assert.Equal(t, "0", h.balance(t, userA))
}

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
)

func recordFact(t *testing.T, h *harness, ref string, kind entity.Kind, subject uint64, counterparty *uint64, amount string) *entity.TransactionRecord {
	t.Helper()
	fact, err := entity.NewReconciledRecord("fact-"+ref, kind, subject, counterparty, decimal.RequireFromString(amount), ref, 1, time.Now().UTC())
	require.NoError(t, err)
	inserted, err := h.memory.InsertIfAbsentByExternalRef(context.Background(), fact)
	require.NoError(t, err)
	require.True(t, inserted)
	return fact
}

func TestExternalIntentConfirmedByLaterFact(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.notifier.EXPECT().Notify(mock.Anything, userA, "Deposit of 10 confirmed by external ledger", entity.SeveritySuccess).Return().Once()
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	id := h.submit(t, entity.KindDeposit, userA, "10", entity.DomainExternal, nil)
	h.worker.Process(context.Background(), <-h.queue.Intents())

	record := h.record(t, id)
	assert.Equal(t, entity.StatusProcessing, record.Status)
	assert.True(t, record.AwaitsConfirmation())

	fact := recordFact(t, h, "0xf1", entity.KindDeposit, userA, nil, "10")
	h.worker.ConfirmFact(context.Background(), fact)

	record = h.record(t, id)
	assert.Equal(t, entity.StatusCompleted, record.Status)
	require.NotNil(t, record.ConfirmationRef)
	assert.Equal(t, "0xf1", *record.ConfirmationRef)
	assert.Equal(t, "0", h.balance(t, userA), "external intents never touch the internal balance")
}

func TestExternalIntentClaimsEarlierFact(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.seedAccount(t, userB, "0")
	h.linkAddress(t, userA, walletA)
	h.linkAddress(t, userB, walletB)

	recordFact(t, h, "0xf2", entity.KindTransfer, userA, uptr(userB), "3")

	id := h.submit(t, entity.KindTransfer, userA, "3", entity.DomainExternal, uptr(userB))
	h.worker.Process(context.Background(), <-h.queue.Intents())

	record := h.record(t, id)
	assert.Equal(t, entity.StatusCompleted, record.Status)
	assert.Equal(t, "0xf2", *record.ConfirmationRef)
}

func TestExternalIntentIgnoresStaleFact(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	stale, err := entity.NewReconciledRecord("fact-0xold", entity.KindDeposit, userA, nil,
		decimal.RequireFromString("10"), "0xold", 1, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	inserted, err := h.memory.InsertIfAbsentByExternalRef(context.Background(), stale)
	require.NoError(t, err)
	require.True(t, inserted)

	id := h.submit(t, entity.KindDeposit, userA, "10", entity.DomainExternal, nil)
	h.worker.Process(context.Background(), <-h.queue.Intents())

	record := h.record(t, id)
	assert.Equal(t, entity.StatusProcessing, record.Status)
	assert.Nil(t, record.ConfirmationRef)

	fresh := recordFact(t, h, "0xnew", entity.KindDeposit, userA, nil, "10")
	h.worker.ConfirmFact(context.Background(), fresh)

	record = h.record(t, id)
	assert.Equal(t, entity.StatusCompleted, record.Status)
	require.NotNil(t, record.ConfirmationRef)
	assert.Equal(t, "0xnew", *record.ConfirmationRef)
}

func TestFactConfirmsAtMostOneIntent(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	first := h.submit(t, entity.KindWithdraw, userA, "2", entity.DomainExternal, nil)
	second := h.submit(t, entity.KindWithdraw, userA, "2", entity.DomainExternal, nil)
	h.worker.Process(context.Background(), <-h.queue.Intents())
	h.worker.Process(context.Background(), <-h.queue.Intents())

	fact := recordFact(t, h, "0xf3", entity.KindWithdraw, userA, nil, "2")
	h.worker.ConfirmFact(context.Background(), fact)
	h.worker.ConfirmFact(context.Background(), fact)

	assert.Equal(t, entity.StatusCompleted, h.record(t, first).Status)
	assert.Equal(t, entity.StatusProcessing, h.record(t, second).Status)
}

func TestSweepExpiresUnconfirmedIntents(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.ConfirmationHorizon = coreport.Millisecond
	h := newHarness(t, 10, cfg, nil)
	h.notifier.EXPECT().Notify(mock.Anything, userA, "Withdrawal of 4 failed: not confirmed by external ledger", entity.SeverityError).Return().Once()
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	expiring := h.submit(t, entity.KindWithdraw, userA, "4", entity.DomainExternal, nil)
	claimed := h.submit(t, entity.KindDeposit, userA, "6", entity.DomainExternal, nil)
	h.worker.Process(context.Background(), <-h.queue.Intents())
	h.worker.Process(context.Background(), <-h.queue.Intents())

	// the fact for the deposit arrived while its signal was lost
	recordFact(t, h, "0xf4", entity.KindDeposit, userA, nil, "6")
	time.Sleep(5 * time.Millisecond)

	h.worker.SweepUnconfirmed(context.Background())

	expired := h.record(t, expiring)
	assert.Equal(t, entity.StatusFailed, expired.Status)
	assert.Equal(t, "not confirmed by external ledger", expired.FailureReason)
	assert.Equal(t, entity.StatusCompleted, h.record(t, claimed).Status)
}

func TestAwaitingExternalIntentDoesNotBlockQueue(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	external := h.submit(t, entity.KindDeposit, userA, "10", entity.DomainExternal, nil)
	internal := h.submit(t, entity.KindDeposit, userA, "1", entity.DomainInternal, nil)
	h.drain(t)

	assert.Equal(t, entity.StatusProcessing, h.record(t, external).Status)
	assert.Equal(t, entity.StatusCompleted, h.record(t, internal).Status)
	assert.Equal(t, "1", h.balance(t, userA))
}

func TestRunHandlesSignalledFacts(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.linkAddress(t, userA, walletA)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.worker.Run(ctx)

	id := h.submit(t, entity.KindDeposit, userA, "8", entity.DomainExternal, nil)
	require.Eventually(t, func() bool {
		return h.status(id) == entity.StatusProcessing
	}, 2*time.Second, 5*time.Millisecond)

	h.worker.FactRecorded(recordFact(t, h, "0xf5", entity.KindDeposit, userA, nil, "8"))

	require.Eventually(t, func() bool {
		return h.status(id) == entity.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-h.worker.Done()
}
