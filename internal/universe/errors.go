package universe

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ledger errors. The set is closed except for
// CodeGeneric, which carries a free-form message.
type ErrorCode string

const (
	// CodeInvalidAmount indicates a zero or otherwise meaningless amount.
	CodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// CodeInsufficientBalance indicates the source cannot cover the amount.
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"

	// CodeUnknownLabel indicates an operation that requires an existing
	// account found none. Transfers never return it.
	CodeUnknownLabel ErrorCode = "UNKNOWN_LABEL"

	// CodeRootMismatch indicates a recomputed root differs from the recorded one.
	CodeRootMismatch ErrorCode = "ROOT_MISMATCH"

	// CodeGeneric is the catch-all for unanticipated conditions.
	CodeGeneric ErrorCode = "GENERIC"
)

// LedgerError is returned by every Universe operation that can fail.
// State is left unchanged whenever one is returned.
type LedgerError struct {
	Code    ErrorCode
	Message string

	// Label is the account involved, when there is one.
	Label *LabelID
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Label != nil {
		return fmt.Sprintf("%s: %s (label=%s)", e.Code, e.Message, e.Label)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any LedgerError with the same code, so callers can write
// errors.Is(err, universe.ErrInsufficientBalance).
func (e *LedgerError) Is(target error) bool {
	var t *LedgerError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidAmount       = &LedgerError{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrInsufficientBalance = &LedgerError{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrUnknownLabel        = &LedgerError{Code: CodeUnknownLabel, Message: "unknown label"}
	ErrRootMismatch        = &LedgerError{Code: CodeRootMismatch, Message: "root mismatch"}
	ErrGeneric             = &LedgerError{Code: CodeGeneric, Message: "generic"}
)

// CodeOf returns the code of the first LedgerError in err's chain, or
// CodeGeneric if there is none.
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeGeneric
}

// IsInvalidAmount reports whether err is an INVALID_AMOUNT error.
func IsInvalidAmount(err error) bool { return errors.Is(err, ErrInvalidAmount) }

// IsInsufficientBalance reports whether err is an INSUFFICIENT_BALANCE error.
func IsInsufficientBalance(err error) bool { return errors.Is(err, ErrInsufficientBalance) }

// IsUnknownLabel reports whether err is an UNKNOWN_LABEL error.
func IsUnknownLabel(err error) bool { return errors.Is(err, ErrUnknownLabel) }

// IsRootMismatch reports whether err is a ROOT_MISMATCH error.
func IsRootMismatch(err error) bool { return errors.Is(err, ErrRootMismatch) }

// NewInvalidAmountError creates an INVALID_AMOUNT error.
func NewInvalidAmountError(msg string) *LedgerError {
	return &LedgerError{Code: CodeInvalidAmount, Message: msg}
}

// NewInsufficientBalanceError creates an INSUFFICIENT_BALANCE error for label.
func NewInsufficientBalanceError(label *LabelID, have, want Balance) *LedgerError {
	return &LedgerError{
		Code:    CodeInsufficientBalance,
		Message: fmt.Sprintf("balance %s cannot cover %s", have, want),
		Label:   label,
	}
}

// NewUnknownLabelError creates an UNKNOWN_LABEL error for label.
func NewUnknownLabelError(label LabelID) *LedgerError {
	return &LedgerError{
		Code:    CodeUnknownLabel,
		Message: "no account for label",
		Label:   &label,
	}
}

// NewRootMismatchError creates a ROOT_MISMATCH error.
func NewRootMismatchError(height uint64, recorded, computed fmt.Stringer) *LedgerError {
	return &LedgerError{
		Code:    CodeRootMismatch,
		Message: fmt.Sprintf("height %d: recorded root %s, computed %s", height, recorded, computed),
	}
}

// NewGenericError creates a GENERIC error with msg.
func NewGenericError(msg string) *LedgerError {
	return &LedgerError{Code: CodeGeneric, Message: msg}
}
