package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LedgerStore implements ports.LedgerStore on PostgreSQL.
type LedgerStore struct {
	transactor   *Transactor
	wallets      *WalletRepo
	transactions *TransactionRepo
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore wires the repositories over one pool.
func NewLedgerStore(pool Pool) *LedgerStore {
	return &LedgerStore{
		transactor:   NewTransactor(pool),
		wallets:      NewWalletRepo(pool),
		transactions: NewTransactionRepo(pool),
	}
}

func (s *LedgerStore) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	return s.wallets.GetByID(ctx, id)
}

func (s *LedgerStore) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	return s.wallets.List(ctx)
}

func (s *LedgerStore) ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]domain.Transaction, error) {
	return s.transactions.ListByWallet(ctx, walletID, offset, limit)
}

// Commit applies the wallet mutation and appends entry in one database
// transaction. A version mismatch or duplicate id yields ports.ErrConflict;
// updating a wallet that does not exist yields ports.ErrWalletNotFound.
func (s *LedgerStore) Commit(ctx context.Context, mutation ports.WalletMutation, entry *domain.Transaction) error {
	err := s.transactor.WithTx(ctx, func(tx pgx.Tx) error {
		if mutation.IsCreate() {
			if err := s.wallets.Create(ctx, tx, mutation.Wallet); err != nil {
				return err
			}
		} else {
			matched, err := s.wallets.UpdateVersioned(ctx, tx, mutation.Wallet, mutation.ExpectedVersion)
			if err != nil {
				return err
			}
			if !matched {
				exists, err := s.wallets.Exists(ctx, tx, mutation.Wallet.ID)
				if err != nil {
					return err
				}
				if !exists {
					return ports.ErrWalletNotFound
				}
				return ports.ErrConflict
			}
		}
		return s.transactions.Create(ctx, tx, entry)
	})
	return translateError(err)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", ports.ErrConflict, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return ports.ErrWalletNotFound
		case pgerrcode.NumericValueOutOfRange:
			return fmt.Errorf("%w: %s", ports.ErrValueOutOfRange, pgErr.Message)
		}
	}
	return err
}
