package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"

	"wallet-ledger/internal/core/domain"
)

var (
	// ErrConflict reports a lost race: the wallet version moved, or an id
	// already exists. The caller must re-read and retry.
	ErrConflict = errors.New("ledger store: conflict")

	// ErrWalletNotFound reports a mutation of a wallet that does not exist.
	ErrWalletNotFound = errors.New("ledger store: wallet not found")

	// ErrValueOutOfRange reports an amount or balance the store cannot hold.
	ErrValueOutOfRange = errors.New("ledger store: value out of range")
)

// WalletMutation is the wallet half of an atomic commit. ExpectedVersion 0
// creates Wallet; otherwise the stored version must equal ExpectedVersion
// and Wallet carries the new balance, version and last entry date.
type WalletMutation struct {
	Wallet          *domain.Wallet
	ExpectedVersion int64
}

// IsCreate reports whether the mutation inserts a new wallet.
func (m WalletMutation) IsCreate() bool {
	return m.ExpectedVersion == 0
}

// LedgerStore is durable storage for wallets and their transactions.
type LedgerStore interface {
	// GetWallet returns nil, nil when the wallet does not exist.
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	// ListTransactions orders by (date desc, id desc).
	ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]domain.Transaction, error)
	// Commit applies the wallet write and the entry insert all-or-nothing.
	// It returns ErrConflict, ErrWalletNotFound, ErrValueOutOfRange or a
	// storage error.
	Commit(ctx context.Context, mutation WalletMutation, entry *domain.Transaction) error
}
