package account

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
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
	coremocks "github.com/amirhossein-jamali/settlement-engine/mocks/port/core"
	ledgermocks "github.com/amirhossein-jamali/settlement-engine/mocks/port/ledger"
	persistencemocks "github.com/amirhossein-jamali/settlement-engine/mocks/port/persistence"
)

var fixedTime = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

const linkedAddress = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

type fakeReplayer struct {
	addresses []string
	released  int
	err       error
}

func (f *fakeReplayer) ReplayDeferred(_ context.Context, address string) (int, error) {
	f.addresses = append(f.addresses, address)
	return f.released, f.err
}

type mocks struct {
	store    *persistencemocks.MockAccountStore
	external *ledgermocks.MockExternalLedger
	time     *coremocks.MockTimeProvider
	logger   *coremocks.MockLogger
	replayer *fakeReplayer
}

func newMocks(t *testing.T) *mocks {
	m := &mocks{
		store:    persistencemocks.NewMockAccountStore(t),
		external: ledgermocks.NewMockExternalLedger(t),
		time:     coremocks.NewMockTimeProvider(t),
		logger:   coremocks.NewMockLogger(t),
		replayer: &fakeReplayer{},
	}
	m.time.EXPECT().Now().Return(fixedTime).Maybe()
	m.logger.EXPECT().Debug(mock.Anything, mock.Anything).Maybe()
	m.logger.EXPECT().Info(mock.Anything, mock.Anything).Maybe()
	m.logger.EXPECT().Warn(mock.Anything, mock.Anything).Maybe()
	return m
}

func (m *mocks) useCase() *AccountUseCase {
	return NewAccountUseCase(m.store, m.external, m.replayer, m.time, m.logger)
}

func storedAccount(userID uint64, balance string, address *string, registered bool) *entity.AccountLedger {
	return entity.RestoreAccountLedger(userID, decimal.RequireFromString(balance), address, registered, fixedTime, fixedTime)
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful account creation", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().CreateAccount(mock.Anything, mock.MatchedBy(func(a *entity.AccountLedger) bool {
			return a.UserID == 7 && a.InternalBalance().IsZero() && !a.HasExternalAddress()
		})).Return(nil).Once()

		account, err := m.useCase().CreateAccount(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, uint64(7), account.UserID)
		assert.Equal(t, fixedTime, account.CreatedAt)
	})

	t.Run("Invalid user ID", func(t *testing.T) {
		m := newMocks(t)

		account, err := m.useCase().CreateAccount(ctx, 0)

		assert.Nil(t, account)
		assert.ErrorIs(t, err, errs.ErrInvalidUserID)
	})

	t.Run("Duplicate account", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().CreateAccount(mock.Anything, mock.Anything).Return(errs.ErrDuplicateAccount).Once()

		_, err := m.useCase().CreateAccount(ctx, 7)

		assert.ErrorIs(t, err, errs.ErrDuplicateAccount)
	})

	t.Run("Store failure is logged", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().CreateAccount(mock.Anything, mock.Anything).Return(errs.ErrExternalUnavailable).Once()
		m.logger.EXPECT().Error("Failed to create account", mock.Anything).Once()

		_, err := m.useCase().CreateAccount(ctx, 7)

		assert.ErrorIs(t, err, errs.ErrExternalUnavailable)
	})
}

func TestCreateDefaultAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates only missing accounts", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "5", nil, false), nil).Once()
		m.store.EXPECT().GetAccount(mock.Anything, uint64(2)).Return(nil, errs.ErrAccountNotFound).Once()
		m.store.EXPECT().GetAccount(mock.Anything, uint64(3)).Return(nil, errs.ErrAccountNotFound).Once()
		m.store.EXPECT().CreateAccount(mock.Anything, mock.MatchedBy(func(a *entity.AccountLedger) bool {
			return a.UserID == 2 || a.UserID == 3
		})).Return(nil).Twice()

		require.NoError(t, m.useCase().CreateDefaultAccounts(ctx))
	})

	t.Run("Tolerates a concurrent creation", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, mock.Anything).Return(nil, errs.ErrAccountNotFound).Times(3)
		m.store.EXPECT().CreateAccount(mock.Anything, mock.Anything).Return(errs.ErrDuplicateAccount).Times(3)

		require.NoError(t, m.useCase().CreateDefaultAccounts(ctx))
	})

	t.Run("Stops on store failure", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(nil, errs.ErrExternalUnavailable).Once()

		err := m.useCase().CreateDefaultAccounts(ctx)

		assert.ErrorIs(t, err, errs.ErrExternalUnavailable)
	})
}

func TestLinkExternalAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("Normalises, records registration and replays", func(t *testing.T) {
		m := newMocks(t)
		m.replayer.released = 2
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "0", nil, false), nil).Once()
		m.store.EXPECT().LinkExternalAddress(mock.Anything, uint64(1), linkedAddress, fixedTime).Return(nil).Once()
		m.external.EXPECT().IsRegistered(mock.Anything, linkedAddress).Return(true, nil).Once()
		m.store.EXPECT().SetExternalRegistered(mock.Anything, uint64(1), fixedTime).Return(true, nil).Once()

		account, err := m.useCase().LinkExternalAddress(ctx, 1, "  ABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD ")

		require.NoError(t, err)
		require.NotNil(t, account.ExternalAddress)
		assert.Equal(t, linkedAddress, *account.ExternalAddress)
		assert.True(t, account.ExternalRegistered)
		assert.Equal(t, []string{linkedAddress}, m.replayer.addresses)
	})

	t.Run("Unregistered address is left unregistered", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "0", nil, false), nil).Once()
		m.store.EXPECT().LinkExternalAddress(mock.Anything, uint64(1), linkedAddress, fixedTime).Return(nil).Once()
		m.external.EXPECT().IsRegistered(mock.Anything, linkedAddress).Return(false, nil).Once()

		account, err := m.useCase().LinkExternalAddress(ctx, 1, linkedAddress)

		require.NoError(t, err)
		assert.False(t, account.ExternalRegistered)
	})

	t.Run("Malformed address", func(t *testing.T) {
		m := newMocks(t)

		_, err := m.useCase().LinkExternalAddress(ctx, 1, "0x1234")

		assert.ErrorIs(t, err, errs.ErrInvalidAddress)
		assert.True(t, errs.IsValidationError(err))
		assert.Empty(t, m.replayer.addresses)
	})

	t.Run("Address held by another account", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "0", nil, false), nil).Once()
		m.store.EXPECT().LinkExternalAddress(mock.Anything, uint64(1), linkedAddress, fixedTime).Return(errs.ErrAddressInUse).Once()

		_, err := m.useCase().LinkExternalAddress(ctx, 1, linkedAddress)

		assert.ErrorIs(t, err, errs.ErrAddressInUse)
		assert.Empty(t, m.replayer.addresses)
	})

	t.Run("Unknown account", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(9)).Return(nil, errs.ErrAccountNotFound).Once()

		_, err := m.useCase().LinkExternalAddress(ctx, 9, linkedAddress)

		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("Replay and registration failures do not fail the link", func(t *testing.T) {
		m := newMocks(t)
		m.replayer.err = errs.ErrExternalUnavailable
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "0", nil, false), nil).Once()
		m.store.EXPECT().LinkExternalAddress(mock.Anything, uint64(1), linkedAddress, fixedTime).Return(nil).Once()
		m.external.EXPECT().IsRegistered(mock.Anything, linkedAddress).Return(false, errors.New("rpc timeout")).Once()

		account, err := m.useCase().LinkExternalAddress(ctx, 1, linkedAddress)

		require.NoError(t, err)
		assert.Equal(t, linkedAddress, *account.ExternalAddress)
		assert.Len(t, m.replayer.addresses, 1)
	})
}

func TestGetAccountDetails(t *testing.T) {
	ctx := context.Background()
	address := linkedAddress

	t.Run("Combines internal and live external balance", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "10.5", &address, true), nil).Once()
		m.external.EXPECT().Balance(mock.Anything, address).Return(decimal.RequireFromString("4.25"), nil).Once()

		details, err := m.useCase().GetAccountDetails(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, address, details.ExternalAddress)
		assert.Equal(t, "10.5", details.InternalBalance.String())
		assert.Equal(t, "4.25", details.ExternalBalance.String())
		assert.Equal(t, "14.75", details.Total.String())
		assert.True(t, details.ExternalAvailable)
		assert.True(t, details.ExternalRegistered)
	})

	t.Run("External read failure degrades gracefully", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "10", &address, false), nil).Once()
		m.external.EXPECT().Balance(mock.Anything, address).Return(decimal.Zero, errs.ErrExternalUnavailable).Once()

		details, err := m.useCase().GetAccountDetails(ctx, 1)

		require.NoError(t, err)
		assert.False(t, details.ExternalAvailable)
		assert.True(t, details.ExternalBalance.IsZero())
		assert.Equal(t, "10", details.Total.String())
	})

	t.Run("Unlinked account skips the external read", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(1)).Return(storedAccount(1, "3", nil, false), nil).Once()

		details, err := m.useCase().GetAccountDetails(ctx, 1)

		require.NoError(t, err)
		assert.Empty(t, details.ExternalAddress)
		assert.False(t, details.ExternalAvailable)
		assert.Equal(t, "3", details.Total.String())
	})

	t.Run("Unknown account", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().GetAccount(mock.Anything, uint64(4)).Return(nil, errs.ErrAccountNotFound).Once()

		_, err := m.useCase().GetAccountDetails(ctx, 4)

		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies the default limit", func(t *testing.T) {
		m := newMocks(t)
		stored := []*entity.AccountLedger{storedAccount(1, "1", nil, false), storedAccount(2, "0", nil, false)}
		m.store.EXPECT().ListAccounts(mock.Anything, DefaultAccountsLimit).Return(stored, nil).Once()

		accounts, err := m.useCase().ListAccounts(ctx, 0)

		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("Passes an explicit limit", func(t *testing.T) {
		m := newMocks(t)
		m.store.EXPECT().ListAccounts(mock.Anything, 5).Return(nil, nil).Once()

		accounts, err := m.useCase().ListAccounts(ctx, 5)

		require.NoError(t, err)
		assert.Empty(t, accounts)
	})
}

func TestGetExternalLedgerInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("Reads the node status", func(t *testing.T) {
		m := newMocks(t)
		m.external.EXPECT().Info(mock.Anything).Return(&ledger.Info{Network: "settlement-net", LatestHeight: 9}, nil).Once()

		info, err := m.useCase().GetExternalLedgerInfo(ctx)

		require.NoError(t, err)
		assert.Equal(t, "settlement-net", info.Network)
		assert.Equal(t, int64(9), info.LatestHeight)
	})

	t.Run("Unavailable without a reader", func(t *testing.T) {
		m := newMocks(t)
		useCase := NewAccountUseCase(m.store, nil, nil, m.time, m.logger)

		_, err := useCase.GetExternalLedgerInfo(ctx)

		assert.ErrorIs(t, err, errs.ErrExternalUnavailable)
	})
}
