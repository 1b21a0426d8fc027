package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet creation, reads and balance changes.
type WalletHandler struct {
	ledger ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// Setup handles POST /api/v1/setup.
func (h *WalletHandler) Setup(c *gin.Context) {
	var req dto.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidInput(bindMessage(err)))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledger.SetupWallet(c.Request.Context(), ports.SetupWalletRequest{
		Name:          req.Name,
		InitialAmount: rawAmount(req.Balance),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewSetupResponse(result))
}

// ListWallets handles GET /api/v1/wallets.
func (h *WalletHandler) ListWallets(c *gin.Context) {
	wallets, err := h.ledger.ListWallets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, dto.NewWalletResponse(&wallets[i]))
	}
	response.OK(c, items)
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	var uri dto.WalletURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.ErrInvalidInput("Wallet id must be 12 alphanumeric characters"))
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// Transact handles POST /api/v1/transact/:walletId.
func (h *WalletHandler) Transact(c *gin.Context) {
	var uri dto.TransactURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.ErrInvalidInput("Wallet id must be 12 alphanumeric characters"))
		return
	}

	var req dto.TransactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidInput(bindMessage(err)))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledger.RecordTransaction(c.Request.Context(), ports.RecordTransactionRequest{
		WalletID:    uri.WalletID,
		Amount:      rawAmount(req.Amount),
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactResponse(result))
}
