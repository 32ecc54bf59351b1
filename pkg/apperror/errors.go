package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
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

// Error codes callers branch on.
const (
	CodeUnknownPayment          = "RCN_001"
	CodeVerificationUnavailable = "RCN_002"
	CodeConcurrentUpdate        = "RCN_003"
	CodeInsufficientBalance     = "WLT_001"
)

// ---- Reconciliation (RCN) ----

// ErrUnknownPayment: the notification references a payment that was never
// created. Not retried by callers.
func ErrUnknownPayment(gatewayRef string) *AppError {
	return New(CodeUnknownPayment, fmt.Sprintf("No payment found for gateway reference %q", gatewayRef), http.StatusNotFound)
}

// ErrVerificationUnavailable: the gateway verifier failed or timed out. Safe
// to retry blindly; never interpreted as a payment outcome.
func ErrVerificationUnavailable(err error) *AppError {
	return Wrap(CodeVerificationUnavailable, "Payment gateway verification unavailable", http.StatusServiceUnavailable, err)
}

// ErrConcurrentUpdateConflict: the optimistic write lost the race twice in a
// row. Surfaced for outer-level retry.
func ErrConcurrentUpdateConflict() *AppError {
	return New(CodeConcurrentUpdate, "Payment was updated concurrently, retry the request", http.StatusConflict)
}

// ---- Wallet Ledger (WLT) ----

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WLT_002", "Invalid amount", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("WLT_003", "Entry currency does not match wallet currency", http.StatusBadRequest)
}

// ---- Payment Initiation (PAY) ----

func ErrDuplicatePayment(orderID string) *AppError {
	return New("PAY_001", fmt.Sprintf("Order %s already has an active payment", orderID), http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrWalletExists(accountID string) *AppError {
	return New("PAY_003", fmt.Sprintf("Account %s already has a wallet", accountID), http.StatusConflict)
}

// ---- Feature Flags (FLAG) ----

func ErrFeatureDisabled(flag string) *AppError {
	return New("FLAG_001", fmt.Sprintf("Feature %s is not enabled", flag), http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("WLT_002", message, http.StatusBadRequest)
}
