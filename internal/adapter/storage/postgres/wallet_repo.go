package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, name, balance_units::text, version, last_entry_at, created_at`

// WalletRepo reads and versions rows of the wallets table.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, name, balance_units, version, last_entry_at, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.Name, w.Balance.String(), w.Version, w.LastEntryAt, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// UpdateVersioned writes balance, version and last entry date only if the
// stored version still equals expected. It reports whether a row matched.
func (r *WalletRepo) UpdateVersioned(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expected int64) (bool, error) {
	query := `UPDATE wallets SET balance_units = $1::numeric, version = $2, last_entry_at = $3
		WHERE id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, w.Balance.String(), w.Version, w.LastEntryAt, w.ID, expected)
	if err != nil {
		return false, fmt.Errorf("update wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Exists checks whether a wallet row is present, inside tx.
func (r *WalletRepo) Exists(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wallet exists: %w", err)
	}
	return exists, nil
}

// GetByID fetches a wallet by id. Returns nil, nil when absent.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// List returns every wallet, oldest first.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := []domain.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance string
	)
	if err := row.Scan(&w.ID, &w.Name, &balance, &w.Version, &w.LastEntryAt, &w.CreatedAt); err != nil {
		return nil, err
	}

	units, err := money.ParseUnits(balance)
	if err != nil {
		return nil, fmt.Errorf("wallet %s balance: %w", w.ID, err)
	}
	w.Balance = units
	w.LastEntryAt = w.LastEntryAt.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}
