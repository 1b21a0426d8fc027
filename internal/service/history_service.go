package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// MaxPageLimit caps the page size of Page.
	MaxPageLimit = 100

	exportBatchSize = 100
)

// ExportHeader is the first CSV row written by Export.
var ExportHeader = []string{"id", "wallet_id", "amount", "balance", "description", "date", "type"}

// HistoryOptions configures history reads.
type HistoryOptions struct {
	ExportLimit int
}

// HistoryServiceImpl implements ports.HistoryService.
type HistoryServiceImpl struct {
	store ports.LedgerStore
	opts  HistoryOptions
	log   zerolog.Logger
}

var _ ports.HistoryService = (*HistoryServiceImpl)(nil)

// NewHistoryService creates a new HistoryServiceImpl.
func NewHistoryService(store ports.LedgerStore, opts HistoryOptions, log zerolog.Logger) *HistoryServiceImpl {
	if opts.ExportLimit < 1 {
		opts.ExportLimit = 1000
	}
	return &HistoryServiceImpl{store: store, opts: opts, log: log}
}

// Page returns up to limit entries after skipping skip, newest first.
// skip is clamped to >= 0 and limit to [1, MaxPageLimit]. One extra row is
// fetched to fill HasMore.
func (s *HistoryServiceImpl) Page(ctx context.Context, walletID string, skip, limit int) (*ports.TransactionPage, error) {
	skip = max(skip, 0)
	limit = min(max(limit, 1), MaxPageLimit)

	if err := s.requireWallet(ctx, walletID); err != nil {
		return nil, err
	}

	txns, err := s.store.ListTransactions(ctx, walletID, skip, limit+1)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("list transactions: %w", err))
	}

	page := &ports.TransactionPage{Transactions: txns, HasMore: len(txns) > limit}
	if page.HasMore {
		page.Transactions = txns[:limit]
	}
	return page, nil
}

// Export writes the newest ExportLimit entries of a wallet as CSV.
func (s *HistoryServiceImpl) Export(ctx context.Context, walletID string, w io.Writer) error {
	if err := s.requireWallet(ctx, walletID); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	written := 0
	for written < s.opts.ExportLimit {
		batch := min(exportBatchSize, s.opts.ExportLimit-written)
		txns, err := s.store.ListTransactions(ctx, walletID, written, batch)
		if err != nil {
			return apperror.ErrStoreUnavailable(fmt.Errorf("export transactions: %w", err))
		}

		for i := range txns {
			if err := cw.Write(exportRecord(&txns[i])); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		written += len(txns)
		if len(txns) < batch {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	s.log.Debug().Str("wallet_id", walletID).Int("rows", written).Msg("history exported")
	return nil
}

func (s *HistoryServiceImpl) requireWallet(ctx context.Context, walletID string) error {
	wallet, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound(walletID)
	}
	return nil
}

func exportRecord(t *domain.Transaction) []string {
	return []string{
		t.ID,
		t.WalletID,
		t.Amount.Format(),
		t.Balance.Format(),
		spreadsheetSafe(t.Description),
		t.Date.UTC().Format(time.RFC3339Nano),
		string(t.Kind),
	}
}

// spreadsheetSafe quotes free text that a spreadsheet would evaluate as a
// formula.
func spreadsheetSafe(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
