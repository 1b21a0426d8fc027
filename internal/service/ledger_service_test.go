package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/money"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 4, 2, 15, 4, 5, 123456789, time.UTC)

type ledgerTestDeps struct {
	svc    *LedgerServiceImpl
	store  *mocks.MockLedgerStore
	events *mocks.MockEventPublisher
	sleeps []time.Duration
}

func setupLedgerService(t *testing.T, maxAttempts int) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		store:  mocks.NewMockLedgerStore(ctrl),
		events: mocks.NewMockEventPublisher(ctrl),
	}
	d.svc = NewLedgerService(d.store, d.events, LedgerOptions{
		MaxAttempts:  maxAttempts,
		RetryBackoff: 10 * time.Millisecond,
	}, zerolog.Nop())
	d.svc.now = func() time.Time { return fixedNow }

	n := 0
	d.svc.newID = func() (string, error) {
		n++
		return fmt.Sprintf("id%010d", n), nil
	}
	d.svc.sleep = func(_ context.Context, dur time.Duration) error {
		d.sleeps = append(d.sleeps, dur)
		return nil
	}
	return d
}

func mustUnits(t *testing.T, s string) money.Units {
	t.Helper()
	u, err := money.Parse(s)
	require.NoError(t, err)
	return u
}

func storedWallet(t *testing.T, balance string, version int64) *domain.Wallet {
	return &domain.Wallet{
		ID:          "walletAAAAA1",
		Name:        "Alice",
		Balance:     mustUnits(t, balance),
		CreatedAt:   fixedNow.Add(-time.Hour),
		Version:     version,
		LastEntryAt: fixedNow.Add(-time.Minute).Truncate(time.Microsecond),
	}
}

// ==================== SetupWallet ====================

func TestLedgerService_SetupWallet_Success(t *testing.T) {
	d := setupLedgerService(t, 5)
	ctx := context.Background()

	d.store.EXPECT().Commit(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m ports.WalletMutation, entry *domain.Transaction) error {
			assert.True(t, m.IsCreate())
			assert.Equal(t, "Alice", m.Wallet.Name)
			assert.Equal(t, int64(1), m.Wallet.Version)
			assert.Equal(t, "50.0000", m.Wallet.Balance.Format())
			assert.Equal(t, domain.SetupDescription, entry.Description)
			assert.Equal(t, domain.KindCredit, entry.Kind)
			assert.Equal(t, m.Wallet.ID, entry.WalletID)
			assert.True(t, entry.Amount.Equal(entry.Balance))
			assert.Equal(t, m.Wallet.LastEntryAt, entry.Date)
			return nil
		})
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev domain.LedgerEvent) error {
			assert.Equal(t, domain.EventWalletCreated, ev.Type)
			return nil
		})

	res, err := d.svc.SetupWallet(ctx, ports.SetupWalletRequest{Name: "  Alice ", InitialAmount: "50"})
	require.NoError(t, err)
	assert.Equal(t, "id0000000001", res.Wallet.ID)
	assert.Equal(t, "id0000000002", res.TransactionID)
	assert.Equal(t, "50.0000", res.Wallet.Balance.Format())
}

func TestLedgerService_SetupWallet_DefaultsToZero(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Wallet.Balance.Sign())
}

func TestLedgerService_SetupWallet_NegativeInitialBalanceIsDebit(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.WalletMutation, entry *domain.Transaction) error {
			assert.Equal(t, domain.KindDebit, entry.Kind)
			return nil
		})
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	_, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "Carol", InitialAmount: -5.5})
	require.NoError(t, err)
}

func TestLedgerService_SetupWallet_Validation(t *testing.T) {
	d := setupLedgerService(t, 5)

	_, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "   "})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "x", InitialAmount: "1.23456"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestLedgerService_SetupWallet_RegeneratesIDsOnCollision(t *testing.T) {
	d := setupLedgerService(t, 5)

	var seen []string
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m ports.WalletMutation, _ *domain.Transaction) error {
			seen = append(seen, m.Wallet.ID)
			if len(seen) == 1 {
				return fmt.Errorf("%w: wallets_pkey", ports.ErrConflict)
			}
			return nil
		}).Times(2)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "Dan"})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
	assert.Equal(t, seen[1], res.Wallet.ID)
}

func TestLedgerService_SetupWallet_StoreFailure(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "Eve"})
	assert.True(t, apperror.HasCode(err, apperror.CodeStoreUnavailable))
}

func TestLedgerService_SetupWallet_StoreRangeErrorIsInvalidAmount(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: numeric field overflow", ports.ErrValueOutOfRange))

	_, err := d.svc.SetupWallet(context.Background(), ports.SetupWalletRequest{Name: "Eve", InitialAmount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
}

// ==================== RecordTransaction ====================

func TestLedgerService_RecordTransaction_Success(t *testing.T) {
	d := setupLedgerService(t, 5)
	ctx := context.Background()
	w := storedWallet(t, "50", 1)

	d.store.EXPECT().GetWallet(ctx, w.ID).Return(w, nil)
	d.store.EXPECT().Commit(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m ports.WalletMutation, entry *domain.Transaction) error {
			assert.Equal(t, int64(1), m.ExpectedVersion)
			assert.Equal(t, int64(2), m.Wallet.Version)
			assert.Equal(t, "60.1234", m.Wallet.Balance.Format())
			assert.Equal(t, "10.1234", entry.Amount.Format())
			assert.Equal(t, "60.1234", entry.Balance.Format())
			assert.Equal(t, "tip", entry.Description)
			assert.Equal(t, fixedNow.Truncate(time.Microsecond), entry.Date)
			assert.Equal(t, entry.Date, m.Wallet.LastEntryAt)
			return nil
		})
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := d.svc.RecordTransaction(ctx, ports.RecordTransactionRequest{
		WalletID: w.ID, Amount: "10.1234", Description: "tip",
	})
	require.NoError(t, err)
	assert.Equal(t, "60.1234", res.Balance.Format())
	assert.Equal(t, domain.KindCredit, res.Transaction.Kind)
	assert.Equal(t, "50.0000", w.Balance.Format(), "the wallet read from the store is not mutated")
}

func TestLedgerService_RecordTransaction_NegativeBalanceAllowed(t *testing.T) {
	d := setupLedgerService(t, 5)
	w := storedWallet(t, "60.1234", 2)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: w.ID, Amount: -70})
	require.NoError(t, err)
	assert.Equal(t, "-9.8766", res.Balance.Format())
	assert.Equal(t, domain.KindDebit, res.Transaction.Kind)
}

func TestLedgerService_RecordTransaction_InvalidAmountTouchesNoStore(t *testing.T) {
	d := setupLedgerService(t, 5)

	for _, amount := range []any{"abc", "1.23456", nil, true} {
		_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: "walletAAAAA1", Amount: amount})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount), "amount %#v", amount)
	}
}

func TestLedgerService_RecordTransaction_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().GetWallet(gomock.Any(), "missingAAAA1").Return(nil, nil)

	_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: "missingAAAA1", Amount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeWalletNotFound))
}

func TestLedgerService_RecordTransaction_WalletVanishesBeforeCommit(t *testing.T) {
	d := setupLedgerService(t, 5)
	w := storedWallet(t, "1", 1)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.ErrWalletNotFound)

	_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: w.ID, Amount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeWalletNotFound))
}

func TestLedgerService_RecordTransaction_RetriesOnConflict(t *testing.T) {
	d := setupLedgerService(t, 5)
	stale := storedWallet(t, "0", 1)
	fresh := storedWallet(t, "100", 2)

	gomock.InOrder(
		d.store.EXPECT().GetWallet(gomock.Any(), stale.ID).Return(stale, nil),
		d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.ErrConflict),
		d.store.EXPECT().GetWallet(gomock.Any(), stale.ID).Return(fresh, nil),
		d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m ports.WalletMutation, _ *domain.Transaction) error {
				assert.Equal(t, int64(2), m.ExpectedVersion, "retry must use the freshly read version")
				return nil
			}),
	)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: stale.ID, Amount: "-30"})
	require.NoError(t, err)
	assert.Equal(t, "70.0000", res.Balance.Format(), "no lost update")
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, d.sleeps)
}

func TestLedgerService_RecordTransaction_ExhaustsRetries(t *testing.T) {
	d := setupLedgerService(t, 3)
	w := storedWallet(t, "0", 1)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil).Times(3)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.ErrConflict).Times(3)

	_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: w.ID, Amount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentUpdate))
	assert.ErrorIs(t, err, ports.ErrConflict)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, d.sleeps)
}

func TestLedgerService_RecordTransaction_BackoffHonorsContext(t *testing.T) {
	d := setupLedgerService(t, 3)
	d.svc.sleep = sleepContext
	w := storedWallet(t, "0", 1)

	ctx, cancel := context.WithCancel(context.Background())
	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, ports.WalletMutation, *domain.Transaction) error {
			cancel()
			return ports.ErrConflict
		})

	_, err := d.svc.RecordTransaction(ctx, ports.RecordTransactionRequest{WalletID: w.ID, Amount: "1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLedgerService_RecordTransaction_StoreFailure(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().GetWallet(gomock.Any(), "walletAAAAA1").Return(nil, errors.New("timeout"))

	_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: "walletAAAAA1", Amount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeStoreUnavailable))
}

func TestLedgerService_RecordTransaction_StoreRangeErrorIsInvalidAmount(t *testing.T) {
	d := setupLedgerService(t, 5)
	w := storedWallet(t, "0", 1)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: numeric field overflow", ports.ErrValueOutOfRange))

	_, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: w.ID, Amount: "1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
	assert.False(t, apperror.HasCode(err, apperror.CodeStoreUnavailable))
}

func TestLedgerService_RecordTransaction_PublishFailureIsNotFatal(t *testing.T) {
	d := setupLedgerService(t, 5)
	w := storedWallet(t, "1", 1)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	res, err := d.svc.RecordTransaction(context.Background(), ports.RecordTransactionRequest{WalletID: w.ID, Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "2.0000", res.Balance.Format())
}

// ==================== Reads ====================

func TestLedgerService_GetWallet(t *testing.T) {
	d := setupLedgerService(t, 5)
	w := storedWallet(t, "1", 1)

	d.store.EXPECT().GetWallet(gomock.Any(), w.ID).Return(w, nil)
	d.store.EXPECT().GetWallet(gomock.Any(), "missingAAAA1").Return(nil, nil)

	got, err := d.svc.GetWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	_, err = d.svc.GetWallet(context.Background(), "missingAAAA1")
	assert.True(t, apperror.HasCode(err, apperror.CodeWalletNotFound))
}

func TestLedgerService_ListWallets(t *testing.T) {
	d := setupLedgerService(t, 5)

	d.store.EXPECT().ListWallets(gomock.Any()).Return([]domain.Wallet{*storedWallet(t, "1", 1)}, nil)
	wallets, err := d.svc.ListWallets(context.Background())
	require.NoError(t, err)
	assert.Len(t, wallets, 1)

	d.store.EXPECT().ListWallets(gomock.Any()).Return(nil, errors.New("down"))
	_, err = d.svc.ListWallets(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeStoreUnavailable))
}
