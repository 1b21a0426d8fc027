package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/money"

	"github.com/rs/zerolog"
)

// LedgerOptions bounds the optimistic-concurrency retry loop.
type LedgerOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// LedgerServiceImpl implements ports.LedgerService with optimistic
// concurrency: read the wallet, compute, commit against the version read,
// and start over from a fresh read when another writer won.
type LedgerServiceImpl struct {
	store  ports.LedgerStore
	events ports.EventPublisher
	opts   LedgerOptions
	log    zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
	sleep func(ctx context.Context, d time.Duration) error
}

var _ ports.LedgerService = (*LedgerServiceImpl)(nil)

// NewLedgerService creates a new LedgerServiceImpl. events may be nil.
func NewLedgerService(
	store ports.LedgerStore,
	events ports.EventPublisher,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &LedgerServiceImpl{
		store:  store,
		events: events,
		opts:   opts,
		log:    log,
		now:    time.Now,
		newID:  domain.NewID,
		sleep:  sleepContext,
	}
}

// SetupWallet creates a wallet and its "Setup" entry in one commit. An id
// collision is retried with fresh ids.
func (s *LedgerServiceImpl) SetupWallet(ctx context.Context, req ports.SetupWalletRequest) (*ports.SetupWalletResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.ErrInvalidInput("name is required")
	}

	amount := money.Zero
	if req.InitialAmount != nil {
		var err error
		if amount, err = money.Parse(req.InitialAmount); err != nil {
			return nil, apperror.ErrInvalidAmount(err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		walletID, err := s.newID()
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		txID, err := s.newID()
		if err != nil {
			return nil, apperror.InternalError(err)
		}

		now := s.now().UTC().Truncate(time.Microsecond)
		wallet := &domain.Wallet{
			ID:          walletID,
			Name:        name,
			Balance:     amount,
			CreatedAt:   now,
			Version:     1,
			LastEntryAt: now,
		}
		entry := &domain.Transaction{
			ID:          txID,
			WalletID:    walletID,
			Amount:      amount,
			Balance:     amount,
			Description: domain.SetupDescription,
			Date:        now,
			Kind:        domain.KindOf(amount),
		}

		err = s.store.Commit(ctx, ports.WalletMutation{Wallet: wallet}, entry)
		if err == nil {
			s.log.Info().
				Str("wallet_id", walletID).
				Str("tx_id", txID).
				Str("balance", amount.Format()).
				Msg("wallet created")
			s.publish(ctx, domain.EventWalletCreated, entry)
			return &ports.SetupWalletResult{Wallet: wallet, TransactionID: txID}, nil
		}
		if errors.Is(err, ports.ErrValueOutOfRange) {
			return nil, apperror.ErrInvalidAmount(err)
		}
		if !errors.Is(err, ports.ErrConflict) {
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create wallet: %w", err))
		}

		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("wallet id collision, regenerating")
	}
	return nil, apperror.ErrConcurrentUpdate(lastErr)
}

// RecordTransaction applies a signed amount to a wallet. Negative balances
// are allowed.
func (s *LedgerServiceImpl) RecordTransaction(ctx context.Context, req ports.RecordTransactionRequest) (*ports.RecordTransactionResult, error) {
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount(err)
	}
	kind := domain.KindOf(amount)

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, time.Duration(attempt-1)*s.opts.RetryBackoff); err != nil {
				return nil, apperror.ErrConcurrentUpdate(err)
			}
		}

		wallet, err := s.store.GetWallet(ctx, req.WalletID)
		if err != nil {
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrWalletNotFound(req.WalletID)
		}

		txID, err := s.newID()
		if err != nil {
			return nil, apperror.InternalError(err)
		}

		date := wallet.NextEntryDate(s.now())
		next := *wallet
		next.Balance = wallet.Balance.Add(amount)
		next.Version = wallet.Version + 1
		next.LastEntryAt = date

		entry := &domain.Transaction{
			ID:          txID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Balance:     next.Balance,
			Description: req.Description,
			Date:        date,
			Kind:        kind,
		}

		err = s.store.Commit(ctx, ports.WalletMutation{Wallet: &next, ExpectedVersion: wallet.Version}, entry)
		switch {
		case err == nil:
			s.log.Info().
				Str("wallet_id", wallet.ID).
				Str("tx_id", txID).
				Str("amount", amount.Format()).
				Str("balance", next.Balance.Format()).
				Int("attempt", attempt).
				Msg("transaction recorded")
			s.publish(ctx, domain.EventTransactionRecorded, entry)
			return &ports.RecordTransactionResult{Balance: next.Balance, Transaction: entry}, nil
		case errors.Is(err, ports.ErrWalletNotFound):
			return nil, apperror.ErrWalletNotFound(req.WalletID)
		case errors.Is(err, ports.ErrValueOutOfRange):
			return nil, apperror.ErrInvalidAmount(err)
		case errors.Is(err, ports.ErrConflict):
			lastErr = err
			s.log.Debug().Err(err).
				Str("wallet_id", wallet.ID).
				Int("attempt", attempt).
				Msg("concurrent update, retrying")
		default:
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit transaction: %w", err))
		}
	}

	s.log.Warn().
		Str("wallet_id", req.WalletID).
		Int("attempts", s.opts.MaxAttempts).
		Msg("transaction abandoned after repeated conflicts")
	return nil, apperror.ErrConcurrentUpdate(lastErr)
}

func (s *LedgerServiceImpl) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	wallet, err := s.store.GetWallet(ctx, id)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(id)
	}
	return wallet, nil
}

func (s *LedgerServiceImpl) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	wallets, err := s.store.ListWallets(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, nil
}

// publish is best-effort: the entry is already committed, so a broker
// failure is logged and never reaches the caller.
func (s *LedgerServiceImpl) publish(ctx context.Context, eventType domain.EventType, entry *domain.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), domain.NewLedgerEvent(eventType, entry)); err != nil {
		s.log.Warn().Err(err).
			Str("type", string(eventType)).
			Str("tx_id", entry.ID).
			Msg("failed to publish ledger event")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
