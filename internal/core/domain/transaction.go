package domain

import (
	"time"

	"wallet-ledger/pkg/money"
)

// TransactionKind classifies an entry by the sign of its amount.
type TransactionKind string

const (
	KindCredit TransactionKind = "CREDIT"
	KindDebit  TransactionKind = "DEBIT"
)

// SetupDescription is the description of the entry created with a wallet.
const SetupDescription = "Setup"

// KindOf returns CREDIT for amounts >= 0 and DEBIT otherwise.
func KindOf(amount money.Units) TransactionKind {
	if amount.IsNegative() {
		return KindDebit
	}
	return KindCredit
}

// Transaction is an immutable ledger entry. Balance is the wallet balance
// immediately after this entry was applied.
type Transaction struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	Amount      money.Units     `json:"-"`
	Balance     money.Units     `json:"-"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Kind        TransactionKind `json:"type"`
}
