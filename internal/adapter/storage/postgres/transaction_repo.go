package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo appends and pages through ledger entries.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, amount_units, balance_units, description, date, kind)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Amount.String(), t.Balance.String(),
		t.Description, t.Date, string(t.Kind),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByWallet returns a wallet's entries newest first. Ties on date are
// broken by id so paging is stable.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, wallet_id, amount_units::text, balance_units::text, description, date, kind
		FROM transactions WHERE wallet_id = $1
		ORDER BY date DESC, id DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		var (
			t               domain.Transaction
			amount, balance string
			kind            string
		)
		if err := rows.Scan(&t.ID, &t.WalletID, &amount, &balance, &t.Description, &t.Date, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if t.Amount, err = money.ParseUnits(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.Balance, err = money.ParseUnits(balance); err != nil {
			return nil, fmt.Errorf("transaction %s balance: %w", t.ID, err)
		}
		t.Kind = domain.TransactionKind(kind)
		t.Date = t.Date.UTC()
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
