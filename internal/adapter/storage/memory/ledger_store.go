// Package memory is a process-local ports.LedgerStore. It backs tests and the
// "memory" store driver; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
)

// LedgerStore keeps wallets and per-wallet entry logs behind one RWMutex.
// Commit holds the write lock for a single map update, so different wallets
// never wait on each other for longer than that.
type LedgerStore struct {
	mu      sync.RWMutex
	wallets map[string]domain.Wallet
	entries map[string][]domain.Transaction // wallet id -> entries in commit order
	ids     map[string]struct{}             // every wallet and transaction id
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		wallets: make(map[string]domain.Wallet),
		entries: make(map[string][]domain.Transaction),
		ids:     make(map[string]struct{}),
	}
}

func (s *LedgerStore) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *LedgerStore) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListTransactions walks the commit-order log backwards. Entry dates strictly
// increase per wallet, so this is (date desc, id desc) order.
func (s *LedgerStore) ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("list transactions: negative offset %d or limit %d", offset, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.entries[walletID]
	out := []domain.Transaction{}
	for i := len(log) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

func (s *LedgerStore) Commit(ctx context.Context, mutation ports.WalletMutation, entry *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := *mutation.Wallet
	w := &stored

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[entry.ID]; dup {
		return fmt.Errorf("%w: transaction id %s exists", ports.ErrConflict, entry.ID)
	}

	if mutation.IsCreate() {
		if _, dup := s.ids[w.ID]; dup {
			return fmt.Errorf("%w: wallet id %s exists", ports.ErrConflict, w.ID)
		}
	} else {
		current, ok := s.wallets[w.ID]
		if !ok {
			return ports.ErrWalletNotFound
		}
		if current.Version != mutation.ExpectedVersion {
			return fmt.Errorf("%w: wallet %s at version %d, expected %d",
				ports.ErrConflict, w.ID, current.Version, mutation.ExpectedVersion)
		}
		w.CreatedAt = current.CreatedAt
	}

	s.wallets[w.ID] = stored
	s.ids[w.ID] = struct{}{}
	s.ids[entry.ID] = struct{}{}
	s.entries[w.ID] = append(s.entries[w.ID], *entry)
	return nil
}
