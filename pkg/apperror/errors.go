package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // internal cause, never sent to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes.
const (
	CodeInvalidInput      = "VAL_001"
	CodeInvalidAmount     = "VAL_002"
	CodeWalletNotFound    = "WAL_001"
	CodeConcurrentUpdate  = "LED_001"
	CodeIdempotencyActive = "IDEM_001"
	CodeRateLimited       = "RATE_001"
	CodeUnknown           = "SYS_000"
	CodeStoreUnavailable  = "SYS_001"
)

// ---- Validation (VAL) ----

func ErrInvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

// ErrInvalidAmount keeps the parser's reason as the wrapped cause.
func ErrInvalidAmount(err error) *AppError {
	return Wrap(CodeInvalidAmount, "Amount must be a number with up to 4 decimal places", http.StatusBadRequest, err)
}

// ---- Ledger (WAL / LED) ----

func ErrWalletNotFound(id string) *AppError {
	return New(CodeWalletNotFound, fmt.Sprintf("Wallet %s not found", id), http.StatusNotFound)
}

func ErrConcurrentUpdate(err error) *AppError {
	return Wrap(CodeConcurrentUpdate, "Wallet is being updated concurrently, retry the request", http.StatusConflict, err)
}

// ---- Idempotency (IDEM) ----

func ErrRequestInProgress() *AppError {
	return New(CodeIdempotencyActive, "A request with this idempotency key is already in progress", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStoreUnavailable(err error) *AppError {
	return Wrap(CodeStoreUnavailable, "Ledger store unavailable", http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected error as SYS_000.
func InternalError(err error) *AppError {
	return Wrap(CodeUnknown, "Internal server error", http.StatusInternalServerError, err)
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
