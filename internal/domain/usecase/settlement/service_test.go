package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/logger"
	timeadapter "github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/time"
	ledgermocks "github.com/amirhossein-jamali/settlement-engine/mocks/port/ledger"
)

func TestSubmitIntentValidation(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "100")
	h.seedAccount(t, userB, "0")

	tests := []struct {
		name        string
		req         usecase.SubmitIntentRequest
		expectedErr error
	}{
		{
			name:        "zero amount",
			req:         usecase.SubmitIntentRequest{Kind: "deposit", SubjectUserID: userA, Amount: "0", Domain: "internal"},
			expectedErr: errs.ErrInvalidAmount,
		},
		{
			name:        "malformed amount",
			req:         usecase.SubmitIntentRequest{Kind: "deposit", SubjectUserID: userA, Amount: "ten", Domain: "internal"},
			expectedErr: errs.ErrInvalidAmount,
		},
		{
			name:        "unknown user",
			req:         usecase.SubmitIntentRequest{Kind: "deposit", SubjectUserID: 42, Amount: "1", Domain: "internal"},
			expectedErr: errs.ErrAccountNotFound,
		},
		{
			name:        "unknown counterparty",
			req:         usecase.SubmitIntentRequest{Kind: "transfer", SubjectUserID: userA, Amount: "1", Domain: "internal", CounterpartyUserID: uptr(42)},
			expectedErr: errs.ErrAccountNotFound,
		},
		{
			name:        "self transfer",
			req:         usecase.SubmitIntentRequest{Kind: "transfer", SubjectUserID: userA, Amount: "1", Domain: "internal", CounterpartyUserID: uptr(userA)},
			expectedErr: errs.ErrSelfTransfer,
		},
		{
			name:        "known insufficient balance",
			req:         usecase.SubmitIntentRequest{Kind: "withdraw", SubjectUserID: userA, Amount: "150", Domain: "internal"},
			expectedErr: errs.ErrInsufficientFunds,
		},
		{
			name:        "unknown kind",
			req:         usecase.SubmitIntentRequest{Kind: "refund", SubjectUserID: userA, Amount: "1", Domain: "internal"},
			expectedErr: errs.ErrInvalidKind,
		},
		{
			name:        "unknown domain",
			req:         usecase.SubmitIntentRequest{Kind: "deposit", SubjectUserID: userA, Amount: "1", Domain: "offchain"},
			expectedErr: errs.ErrInvalidDomain,
		},
		{
			name:        "external without linked address",
			req:         usecase.SubmitIntentRequest{Kind: "withdraw", SubjectUserID: userA, Amount: "1", Domain: "external"},
			expectedErr: errs.ErrAddressNotLinked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.service.SubmitIntent(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.True(t, errs.IsValidationError(err))
		})
	}

	// nothing was recorded or enqueued
	records, err := h.memory.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, h.queue.Len())
	assert.Equal(t, "100", h.balance(t, userA))
}

func TestSubmitIntentNotifiesParticipants(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.notifier.EXPECT().Notify(mock.Anything, userA, "Transfer of 40 is being processed", entity.SeverityInfo).Return().Once()
	h.notifier.EXPECT().Notify(mock.Anything, userB, "Incoming transfer of 40", entity.SeverityInfo).Return().Once()
	h.seedAccount(t, userA, "100")
	h.seedAccount(t, userB, "0")

	id := h.submit(t, entity.KindTransfer, userA, "40", entity.DomainInternal, uptr(userB))

	record := h.record(t, id)
	assert.Equal(t, entity.StatusPending, record.Status)
	assert.Equal(t, 1, h.queue.Len())
}

func TestSubmitIntentQueueSaturated(t *testing.T) {
	h := newHarness(t, 1, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")

	h.submit(t, entity.KindDeposit, userA, "1", entity.DomainInternal, nil)

	_, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
		Kind: "deposit", SubjectUserID: userA, Amount: "2", Domain: "internal",
	})
	assert.ErrorIs(t, err, errs.ErrQueueSaturated)
	assert.Equal(t, errs.CodeQueueSaturated, errs.ErrorCode(err))

	records, err := h.memory.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	refused := records[0]
	assert.Equal(t, entity.StatusFailed, refused.Status)
	assert.Equal(t, "intent queue saturated", refused.FailureReason)
}

func TestSubmitIntentQueueClosed(t *testing.T) {
	h := newHarness(t, 4, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.queue.Close()

	_, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
		Kind: "deposit", SubjectUserID: userA, Amount: "2", Domain: "internal",
	})
	assert.ErrorIs(t, err, errs.ErrQueueClosed)
}

func TestSubmitExternalIntentChecksLiveBalance(t *testing.T) {
	newService := func(t *testing.T, external *ledgermocks.MockExternalLedger) *harness {
		h := newHarness(t, 10, testWorkerConfig(), nil)
		h.service = NewService(h.memory, h.queue, h.worker, external, h.notifier,
			logger.NewNoopLogger(), timeadapter.NewRealTimeProvider(), nil)
		h.allowNotifications()
		h.seedAccount(t, userA, "0")
		h.linkAddress(t, userA, walletA)
		return h
	}

	t.Run("covered", func(t *testing.T) {
		external := ledgermocks.NewMockExternalLedger(t)
		external.EXPECT().Balance(mock.Anything, walletA).Return(decimal.NewFromInt(10), nil).Once()
		h := newService(t, external)

		h.submit(t, entity.KindWithdraw, userA, "10", entity.DomainExternal, nil)
	})

	t.Run("insufficient", func(t *testing.T) {
		external := ledgermocks.NewMockExternalLedger(t)
		external.EXPECT().Balance(mock.Anything, walletA).Return(decimal.NewFromInt(3), nil).Once()
		h := newService(t, external)

		_, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
			Kind: "withdraw", SubjectUserID: userA, Amount: "10", Domain: "external",
		})
		assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	})

	t.Run("unavailable", func(t *testing.T) {
		external := ledgermocks.NewMockExternalLedger(t)
		external.EXPECT().Balance(mock.Anything, walletA).Return(decimal.Zero, errors.New("dial tcp: connection refused")).Once()
		h := newService(t, external)

		_, err := h.service.SubmitIntent(context.Background(), usecase.SubmitIntentRequest{
			Kind: "withdraw", SubjectUserID: userA, Amount: "10", Domain: "external",
		})
		assert.ErrorIs(t, err, errs.ErrExternalUnavailable)
		assert.False(t, errs.IsValidationError(err))
	})

	t.Run("deposit skips balance read", func(t *testing.T) {
		external := ledgermocks.NewMockExternalLedger(t)
		h := newService(t, external)

		h.submit(t, entity.KindDeposit, userA, "10", entity.DomainExternal, nil)
	})
}

func TestListUserTransactionsBothDirections(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "100")
	h.seedAccount(t, userB, "100")
	h.seedAccount(t, 3, "0")

	sent := h.submit(t, entity.KindTransfer, userA, "10", entity.DomainInternal, uptr(userB))
	time.Sleep(2 * time.Millisecond)
	received := h.submit(t, entity.KindTransfer, userB, "5", entity.DomainInternal, uptr(userA))
	time.Sleep(2 * time.Millisecond)
	h.submit(t, entity.KindDeposit, 3, "1", entity.DomainInternal, nil)
	time.Sleep(2 * time.Millisecond)
	own := h.submit(t, entity.KindDeposit, userA, "1", entity.DomainInternal, nil)
	h.drain(t)

	items, err := h.service.ListUserTransactions(context.Background(), userA, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, own, items[0].Record.ID)
	assert.False(t, items[0].IsReceived)
	assert.Equal(t, received, items[1].Record.ID)
	assert.True(t, items[1].IsReceived)
	assert.Equal(t, sent, items[2].Record.ID)
	assert.False(t, items[2].IsReceived)

	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].Record.CreatedAt.After(items[i].Record.CreatedAt))
	}

	limited, err := h.service.ListUserTransactions(context.Background(), userA, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = h.service.ListUserTransactions(context.Background(), 77, 0)
	assert.ErrorIs(t, err, errs.ErrAccountNotFound)
}

func TestGetTransactionNotFound(t *testing.T) {
	h := newHarness(t, 10, testWorkerConfig(), nil)

	_, err := h.service.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
}

func TestQueueStatus(t *testing.T) {
	h := newHarness(t, 8, testWorkerConfig(), nil)
	h.allowNotifications()
	h.seedAccount(t, userA, "0")
	h.submit(t, entity.KindDeposit, userA, "1", entity.DomainInternal, nil)

	status := h.service.QueueStatus()
	assert.Equal(t, 1, status.QueueLength)
	assert.Equal(t, 8, status.Capacity)
	assert.False(t, status.Processing)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0, 50))
	assert.Equal(t, 50, clampLimit(-3, 50))
	assert.Equal(t, 7, clampLimit(7, 50))
	assert.Equal(t, MaxListLimit, clampLimit(10_000, 50))
}
