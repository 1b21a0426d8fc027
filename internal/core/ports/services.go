package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"io"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"
)

// EventPublisher delivers ledger events after commit (best-effort).
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// IdempotencyCache stores replayable responses keyed by Idempotency-Key.
type IdempotencyCache interface {
	// Reserve claims key for an in-flight request. It returns false when the
	// key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored response, or nil when none is stored yet.
	Get(ctx context.Context, key string) (*domain.StoredResponse, error)
	Set(ctx context.Context, key string, resp *domain.StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the ledger engine: the only path that changes balances.
type LedgerService interface {
	SetupWallet(ctx context.Context, req SetupWalletRequest) (*SetupWalletResult, error)
	RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*RecordTransactionResult, error)
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
}

// SetupWalletRequest holds input for wallet creation. InitialAmount is any
// value accepted by money.Parse; nil means zero.
type SetupWalletRequest struct {
	Name          string
	InitialAmount any
}

// SetupWalletResult is the outcome of SetupWallet.
type SetupWalletResult struct {
	Wallet        *domain.Wallet
	TransactionID string
}

// RecordTransactionRequest holds input for a balance change. Amount is any
// value accepted by money.Parse; negative amounts debit the wallet.
type RecordTransactionRequest struct {
	WalletID    string
	Amount      any
	Description string
}

// RecordTransactionResult is the outcome of RecordTransaction.
type RecordTransactionResult struct {
	Balance     money.Units
	Transaction *domain.Transaction
}

// HistoryService reads a wallet's transaction history.
type HistoryService interface {
	Page(ctx context.Context, walletID string, skip, limit int) (*TransactionPage, error)
	Export(ctx context.Context, walletID string, w io.Writer) error
}

// TransactionPage is one page of history, newest first.
type TransactionPage struct {
	Transactions []domain.Transaction
	HasMore      bool
}
