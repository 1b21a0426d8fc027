package domain

import "time"

// EventType names a ledger event published after a successful commit.
type EventType string

const (
	EventWalletCreated       EventType = "wallet.created"
	EventTransactionRecorded EventType = "transaction.recorded"
)

// LedgerEvent is the payload published to the event bus. Amounts are
// formatted decimals, never floats.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	WalletID      string    `json:"wallet_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
	Kind          string    `json:"kind"`
	Description   string    `json:"description,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewLedgerEvent builds the event describing entry.
func NewLedgerEvent(eventType EventType, entry *Transaction) LedgerEvent {
	return LedgerEvent{
		Type:          eventType,
		WalletID:      entry.WalletID,
		TransactionID: entry.ID,
		Amount:        entry.Amount.Format(),
		Balance:       entry.Balance.Format(),
		Kind:          string(entry.Kind),
		Description:   entry.Description,
		OccurredAt:    entry.Date,
	}
}
