package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// TransactionHandler serves wallet history.
type TransactionHandler struct {
	history      ports.HistoryService
	defaultLimit int
}

// NewTransactionHandler creates a new TransactionHandler. defaultLimit is
// the page size used when limit is absent or unparsable.
func NewTransactionHandler(history ports.HistoryService, defaultLimit int) *TransactionHandler {
	if defaultLimit < 1 {
		defaultLimit = 25
	}
	return &TransactionHandler{history: history, defaultLimit: defaultLimit}
}

// List handles GET /api/v1/transactions?wallet_id=&skip=&limit=.
func (h *TransactionHandler) List(c *gin.Context) {
	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.ErrInvalidInput("wallet_id must be 12 alphanumeric characters"))
		return
	}

	skip := parseIntOr(q.Skip, 0)
	limit := parseIntOr(q.Limit, h.defaultLimit)
	if limit == 0 {
		limit = h.defaultLimit
	}

	page, err := h.history.Page(c.Request.Context(), q.WalletID, skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionPageResponse(page))
}

// Export handles GET /api/v1/transactions/export?wallet_id=. The CSV is
// rendered into memory first so a failure still yields a JSON error.
func (h *TransactionHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.ErrInvalidInput("wallet_id must be 12 alphanumeric characters"))
		return
	}

	var buf bytes.Buffer
	if err := h.history.Export(c.Request.Context(), q.WalletID, &buf); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="transactions-%s.csv"`, q.WalletID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// parseIntOr reads a leading integer the way lenient query parsers do:
// "10abc" is 10, "abc" or "" is fallback.
func parseIntOr(s string, fallback int) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return fallback
	}
	return n
}

// rawAmount turns an absent JSON field into nil so the ledger applies its
// default. Anything present, including null, goes to the parser.
func rawAmount(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// bindMessage renders a binding error for clients without leaking Go types.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "Request body too large"
	}
	return "Request body must be valid JSON"
}
