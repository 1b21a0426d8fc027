package dto

import (
	"encoding/json"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
)

// DateFormat is the wire format of every timestamp.
const DateFormat = time.RFC3339Nano

// SetupRequest is the request body for wallet creation. Balance is kept raw
// so that a JSON number never passes through float64; absent means zero.
type SetupRequest struct {
	Name    string          `json:"name" binding:"required,max=200"`
	Balance json.RawMessage `json:"balance,omitempty"`
}

// TransactRequest is the request body for a balance change.
type TransactRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description" binding:"max=500"`
}

// WalletURI binds /wallets/:id.
type WalletURI struct {
	ID string `uri:"id" binding:"required,wallet_id"`
}

// TransactURI binds /transact/:walletId.
type TransactURI struct {
	WalletID string `uri:"walletId" binding:"required,wallet_id"`
}

// HistoryQuery binds the transactions query string. Skip and Limit stay
// strings: unparsable values fall back to defaults instead of failing.
type HistoryQuery struct {
	WalletID string `form:"wallet_id" binding:"required,wallet_id"`
	Skip     string `form:"skip"`
	Limit    string `form:"limit"`
}

// ExportQuery binds the export query string.
type ExportQuery struct {
	WalletID string `form:"wallet_id" binding:"required,wallet_id"`
}

// WalletResponse is the public view of a wallet.
type WalletResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Balance json.Number `json:"balance"`
	Date    string      `json:"date"`
}

// SetupResponse is the response body for wallet creation.
type SetupResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Balance       json.Number `json:"balance"`
	TransactionID string      `json:"transaction_id"`
	Date          string      `json:"date"`
}

// TransactResponse is the response body for a recorded transaction.
type TransactResponse struct {
	Balance       json.Number `json:"balance"`
	TransactionID string      `json:"transaction_id"`
}

// TransactionResponse is one history entry.
type TransactionResponse struct {
	ID          string      `json:"id"`
	WalletID    string      `json:"wallet_id"`
	Amount      json.Number `json:"amount"`
	Balance     json.Number `json:"balance"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Type        string      `json:"type"`
}

// TransactionPageResponse wraps one page of history, newest first.
type TransactionPageResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	HasMore      bool                  `json:"has_more"`
}

// NewWalletResponse maps a domain wallet to its wire form.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:      w.ID,
		Name:    w.Name,
		Balance: w.Balance.JSONNumber(),
		Date:    w.CreatedAt.UTC().Format(DateFormat),
	}
}

// NewSetupResponse maps a setup result to its wire form.
func NewSetupResponse(r *ports.SetupWalletResult) SetupResponse {
	return SetupResponse{
		ID:            r.Wallet.ID,
		Name:          r.Wallet.Name,
		Balance:       r.Wallet.Balance.JSONNumber(),
		TransactionID: r.TransactionID,
		Date:          r.Wallet.CreatedAt.UTC().Format(DateFormat),
	}
}

// NewTransactResponse maps a record result to its wire form.
func NewTransactResponse(r *ports.RecordTransactionResult) TransactResponse {
	return TransactResponse{
		Balance:       r.Balance.JSONNumber(),
		TransactionID: r.Transaction.ID,
	}
}

// NewTransactionPageResponse maps a history page to its wire form.
func NewTransactionPageResponse(p *ports.TransactionPage) TransactionPageResponse {
	items := make([]TransactionResponse, 0, len(p.Transactions))
	for i := range p.Transactions {
		t := &p.Transactions[i]
		items = append(items, TransactionResponse{
			ID:          t.ID,
			WalletID:    t.WalletID,
			Amount:      t.Amount.JSONNumber(),
			Balance:     t.Balance.JSONNumber(),
			Description: t.Description,
			Date:        t.Date.UTC().Format(DateFormat),
			Type:        string(t.Kind),
		})
	}
	return TransactionPageResponse{Transactions: items, HasMore: p.HasMore}
}
