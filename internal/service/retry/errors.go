package retry

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted is returned when every scheduled attempt failed transiently.
	// The returned error also wraps the last attempt's failure.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrBusy is returned when a submission is already in progress.
	ErrBusy = errors.New("submission already in progress")
)

const (
	// ReasonPortalUnavailable is shown when the retry budget ran out.
	ReasonPortalUnavailable = "The fiscal portal is not responding. Please try again later."
	// ReasonRejected is shown when the backend refused the receipt.
	ReasonRejected = "The receipt could not be created."
)

// TerminalError is a failure that retrying will not fix.
type TerminalError struct {
	// Attempt is the attempt that failed.
	Attempt int
	// Status is the HTTP status, 0 when there was none.
	Status int
	// Err is the backend failure.
	Err error
}

// Error implements the error interface.
func (e *TerminalError) Error() string {
	return fmt.Sprintf("attempt %d failed terminally: %v", e.Attempt, e.Err)
}

// Unwrap returns the backend failure.
func (e *TerminalError) Unwrap() error {
	return e.Err
}
