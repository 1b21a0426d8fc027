package domain

import (
	"time"

	"wallet-ledger/pkg/money"
)

// Wallet holds a single balance. Balance only changes together with an
// appended Transaction in one atomic store commit.
type Wallet struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Balance   money.Units `json:"-"`
	CreatedAt time.Time   `json:"created_at"`

	// Version is the optimistic concurrency counter; every committed
	// mutation increments it by one.
	Version int64 `json:"-"`
	// LastEntryAt is the date of the newest transaction of this wallet.
	LastEntryAt time.Time `json:"-"`
}

// NextEntryDate returns the date for a new entry: now, truncated to the
// store's microsecond resolution, but strictly after LastEntryAt so that
// (date, id) ordering always follows commit order.
func (w *Wallet) NextEntryDate(now time.Time) time.Time {
	d := now.UTC().Truncate(time.Microsecond)
	if !d.After(w.LastEntryAt) {
		d = w.LastEntryAt.Add(time.Microsecond)
	}
	return d
}
