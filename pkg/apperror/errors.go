package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error carrying a stable code for the transport layer.
// The ledger core never renders user-facing text; Message is a short description only.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Error codes.
const (
	CodeInvalidIdentity     = "VAL_001"
	CodeInvalidAmount       = "VAL_002"
	CodeUnauthorized        = "AUTH_001"
	CodeInvalidOperation    = "LED_001"
	CodeInsufficientBalance = "LED_002"
	CodeNotFound            = "LED_003"
	CodeStorageFailure      = "SYS_001"
	CodeBusy                = "SYS_002"
	CodeTimeout             = "SYS_003"
	CodeInvalidBridgeKey    = "SEC_001"
	CodeInvalidSignature    = "SEC_002"
	CodeTimestampExpired    = "SEC_003"
	CodeNonceUsed           = "SEC_004"
	CodeRateLimitExceeded   = "RATE_001"
)

// ---- Validation (VAL) ----

func ErrInvalidIdentity(handle string) *AppError {
	return New(CodeInvalidIdentity, fmt.Sprintf("invalid handle %q", handle), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

// Validation returns a VAL_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}

// ---- Authorization (AUTH) ----

func ErrUnauthorized(operation string) *AppError {
	return New(CodeUnauthorized, fmt.Sprintf("operation %s requires staff", operation), http.StatusForbidden)
}

// ---- Ledger Business Logic (LED) ----

func ErrInvalidOperation(message string) *AppError {
	return New(CodeInvalidOperation, message, http.StatusUnprocessableEntity)
}

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Bridge Authentication (SEC) ----

func ErrInvalidBridgeKey() *AppError {
	return New(CodeInvalidBridgeKey, "Invalid bridge key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New(CodeTimestampExpired, "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New(CodeNonceUsed, "Nonce has already been used", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorageFailure(err error) *AppError {
	return Wrap(CodeStorageFailure, "Storage failure", http.StatusInternalServerError, err)
}

func ErrBusy(err error) *AppError {
	return Wrap(CodeBusy, "Wallet busy, retry later", http.StatusServiceUnavailable, err)
}

func ErrTimeout(err error) *AppError {
	return Wrap(CodeTimeout, "Operation timed out", http.StatusGatewayTimeout, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeStorageFailure, "Internal server error", http.StatusInternalServerError, err)
}
