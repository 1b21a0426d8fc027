package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func units(t *testing.T, s string) money.Units {
	t.Helper()
	u, err := money.Parse(s)
	require.NoError(t, err)
	return u
}

func seed(t *testing.T, s *LedgerStore, id string) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{ID: id, Name: "w-" + id, Balance: units(t, "50"), Version: 1, LastEntryAt: t0, CreatedAt: t0}
	entry := &domain.Transaction{ID: "tx" + id[2:], WalletID: id, Amount: w.Balance, Balance: w.Balance,
		Description: domain.SetupDescription, Date: t0, Kind: domain.KindCredit}
	require.NoError(t, s.Commit(context.Background(), ports.WalletMutation{Wallet: w}, entry))
	return w
}

func TestCommit_CreateAndRead(t *testing.T) {
	s := NewLedgerStore()
	seed(t, s, "wlAAAAAAAAA1")

	got, err := s.GetWallet(context.Background(), "wlAAAAAAAAA1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "50.0000", got.Balance.Format())
	assert.Equal(t, int64(1), got.Version)

	missing, err := s.GetWallet(context.Background(), "nopeAAAAAAA1")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCommit_VersionCheck(t *testing.T) {
	s := NewLedgerStore()
	w := seed(t, s, "wlAAAAAAAAA1")

	next := *w
	next.Balance = units(t, "60")
	next.Version = 2
	next.LastEntryAt = t0.Add(time.Second)
	entry := &domain.Transaction{ID: "txBBBBBBBBB2", WalletID: w.ID, Amount: units(t, "10"), Balance: next.Balance, Date: next.LastEntryAt}

	require.NoError(t, s.Commit(context.Background(), ports.WalletMutation{Wallet: &next, ExpectedVersion: 1}, entry))

	stale := next
	stale.Version = 2
	entry2 := &domain.Transaction{ID: "txCCCCCCCCC3", WalletID: w.ID, Date: t0.Add(2 * time.Second)}
	err := s.Commit(context.Background(), ports.WalletMutation{Wallet: &stale, ExpectedVersion: 1}, entry2)
	assert.ErrorIs(t, err, ports.ErrConflict)

	txns, err := s.ListTransactions(context.Background(), w.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, txns, 2, "a rejected commit must not append an entry")
}

func TestCommit_UnknownWallet(t *testing.T) {
	s := NewLedgerStore()
	w := &domain.Wallet{ID: "ghostAAAAAA1", Name: "ghost", Version: 2}
	err := s.Commit(context.Background(), ports.WalletMutation{Wallet: w, ExpectedVersion: 1},
		&domain.Transaction{ID: "txAAAAAAAAA1", WalletID: w.ID})
	assert.ErrorIs(t, err, ports.ErrWalletNotFound)
}

func TestCommit_DuplicateIDs(t *testing.T) {
	s := NewLedgerStore()
	seed(t, s, "wlAAAAAAAAA1")

	w := &domain.Wallet{ID: "wlAAAAAAAAA1", Name: "again", Version: 1}
	err := s.Commit(context.Background(), ports.WalletMutation{Wallet: w},
		&domain.Transaction{ID: "txZZZZZZZZZ9", WalletID: w.ID})
	assert.ErrorIs(t, err, ports.ErrConflict)

	w2 := &domain.Wallet{ID: "wlBBBBBBBBB2", Name: "other", Version: 1}
	err = s.Commit(context.Background(), ports.WalletMutation{Wallet: w2},
		&domain.Transaction{ID: "txAAAAAAAAA1", WalletID: w2.ID})
	assert.ErrorIs(t, err, ports.ErrConflict, "transaction ids are unique across wallets")

	_, err = s.GetWallet(context.Background(), "wlBBBBBBBBB2")
	require.NoError(t, err)
}

func TestListTransactions_NewestFirstWithOffset(t *testing.T) {
	s := NewLedgerStore()
	w := seed(t, s, "wlAAAAAAAAA1")

	cur := *w
	for i := 1; i <= 5; i++ {
		next := cur
		next.Version = cur.Version + 1
		next.LastEntryAt = cur.LastEntryAt.Add(time.Microsecond)
		entry := &domain.Transaction{ID: fmt.Sprintf("tx%010d", i), WalletID: w.ID, Date: next.LastEntryAt}
		require.NoError(t, s.Commit(context.Background(), ports.WalletMutation{Wallet: &next, ExpectedVersion: cur.Version}, entry))
		cur = next
	}

	page, err := s.ListTransactions(context.Background(), w.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "tx0000000004", page[0].ID)
	assert.Equal(t, "tx0000000003", page[1].ID)

	tail, err := s.ListTransactions(context.Background(), w.ID, 5, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "txAAAAAAAAA1", tail[0].ID)

	beyond, err := s.ListTransactions(context.Background(), w.ID, 50, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestListWallets_Ordered(t *testing.T) {
	s := NewLedgerStore()
	seed(t, s, "wlBBBBBBBBB2")
	seed(t, s, "wlAAAAAAAAA1")

	wallets, err := s.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "wlAAAAAAAAA1", wallets[0].ID, "equal creation times fall back to id order")
}

func TestCanceledContext(t *testing.T) {
	s := NewLedgerStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetWallet(ctx, "wlAAAAAAAAA1")
	assert.ErrorIs(t, err, context.Canceled)
}
