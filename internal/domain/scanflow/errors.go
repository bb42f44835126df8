package scanflow

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a recoverable scan condition.
type ErrorCode string

const (
	// CodeNonFiscalQR means the decoded code is not an allow-listed fiscal URL.
	CodeNonFiscalQR ErrorCode = "NON_FISCAL_QR"
	// CodeRetryCancelled means the user cancelled while the submission was retrying.
	CodeRetryCancelled ErrorCode = "RETRY_CANCELLED"
)

// ErrInvalidTransition is returned when a state change is not allowed from the current state.
var ErrInvalidTransition = errors.New("invalid scan flow transition")

// RecoverableError is a condition the user can act on without ending the session.
// It never consumes retry budget.
type RecoverableError struct {
	Code    ErrorCode
	Message string
}

// NewRecoverable creates a recoverable error with the given code and message.
func NewRecoverable(code ErrorCode, message string) *RecoverableError {
	return &RecoverableError{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface.
func (e *RecoverableError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the machine-readable code.
func (e *RecoverableError) ErrorCode() string {
	return string(e.Code)
}

// Recoverable always reports true.
func (e *RecoverableError) Recoverable() bool {
	return true
}

// Is matches another RecoverableError with the same code.
func (e *RecoverableError) Is(target error) bool {
	other, ok := target.(*RecoverableError)
	if !ok {
		return false
	}

	return other.Code == e.Code
}

// IsRecoverable reports whether err is a RecoverableError.
func IsRecoverable(err error) bool {
	var re *RecoverableError

	return errors.As(err, &re)
}

// HasCode reports whether err is a RecoverableError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var re *RecoverableError
	if !errors.As(err, &re) {
		return false
	}

	return re.Code == code
}
