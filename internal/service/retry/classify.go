package retry

import (
	"errors"
	"net/http"
	"strings"
)

// transientMessages are matched case-insensitively against error messages.
//
//nolint:gochecknoglobals // Fixed classification list.
var transientMessages = []string{
	"temporarily unavailable",
	"timed out",
	"timeout",
	"unable to reach fiscal portal",
	"network",
	"failed to fetch",
	"load failed",
}

// statusCarrier is implemented by errors that expose an HTTP status.
type statusCarrier interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status carried by err, if any. A zero status
// counts as none.
func StatusOf(err error) (int, bool) {
	var carrier statusCarrier
	if !errors.As(err, &carrier) {
		return 0, false
	}

	status := carrier.HTTPStatus()

	return status, status > 0
}

// IsTransient reports whether a failed creation call is worth retrying:
// statuses 404, 429 and 5xx, errors without a status, and errors whose
// message names an availability or network problem.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	status, ok := StatusOf(err)
	if !ok {
		return true
	}

	if status == http.StatusNotFound || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
