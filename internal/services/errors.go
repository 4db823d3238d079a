package services

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a rejected business outcome. The set is closed:
// handlers switch over it exhaustively to pick status codes, and callers
// never match on message text.
type ErrorCode string

const (
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeResourceNotFound    ErrorCode = "RESOURCE_NOT_FOUND"
	CodeOutOfCredit         ErrorCode = "OUT_OF_CREDIT"
	CodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	CodeStatementNotFound   ErrorCode = "STATEMENT_NOT_FOUND"
	CodeAlreadyPaid         ErrorCode = "ALREADY_PAID"
	CodeNothingDue          ErrorCode = "NOTHING_DUE"
	CodePaymentTooHigh      ErrorCode = "PAYMENT_TOO_HIGH"
	CodeNoTurns             ErrorCode = "NO_TURNS"
	CodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"
	CodeItemNotFound        ErrorCode = "ITEM_NOT_FOUND"
	CodeNonceRequired       ErrorCode = "NONCE_REQUIRED"
	CodeInvalidType         ErrorCode = "INVALID_TYPE"
)

// Error is an expected, recoverable business outcome. Infrastructure
// failures (persistence unavailable) are never wrapped in an Error; they
// propagate as plain errors and surface as 500s.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is match two business errors by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsBusinessError extracts the business error from err, if any.
func AsBusinessError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsCode reports whether err is a business error with the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := AsBusinessError(err)
	return ok && e.Code == code
}
