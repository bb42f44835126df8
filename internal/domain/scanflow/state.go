package scanflow

import (
	"time"

	"github.com/oshokin/receipt-scan/internal/domain/receipt"
)

// Kind names a scan flow state.
type Kind int

const (
	// KindIdle means no scan session activity.
	KindIdle Kind = iota
	// KindCameraLoading means the session opened and the camera is starting.
	KindCameraLoading
	// KindScanning means frames or gallery images are being decoded.
	KindScanning
	// KindSubmitting means a validated code is being sent to the backend.
	KindSubmitting
	// KindRetryingPortal means a transient portal failure is waiting out its delay.
	KindRetryingPortal
	// KindFailedTerminal means the submission failed for good.
	KindFailedTerminal
	// KindSuccess means the receipt was created.
	KindSuccess
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindCameraLoading:
		return "camera_loading"
	case KindScanning:
		return "scanning"
	case KindSubmitting:
		return "submitting"
	case KindRetryingPortal:
		return "retrying_portal"
	case KindFailedTerminal:
		return "failed_terminal"
	case KindSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Terminal reports whether the kind ends a session until it is reopened.
func (k Kind) Terminal() bool {
	return k == KindSuccess || k == KindFailedTerminal
}

// MaxAttempts is the number of receipt-creation attempts per submission.
const MaxAttempts = 7

// RetryMeta describes the pending retry shown while waiting for the portal.
type RetryMeta struct {
	// Attempt is the 1-based number of the attempt that fires after the wait.
	Attempt int
	// MaxAttempts is the attempt budget of the submission.
	MaxAttempts int
	// NextDelay is how long the wait lasts unless retried early or cancelled.
	NextDelay time.Duration
	// StartedAt is when the wait began.
	StartedAt time.Time
}

// RetryAt returns when the pending attempt fires if nobody intervenes.
func (m RetryMeta) RetryAt() time.Time {
	return m.StartedAt.Add(m.NextDelay)
}

// State is one variant of the scan flow.
type State interface {
	// Kind returns the variant name.
	Kind() Kind

	isState()
}

// Idle is the resting state. Err carries a recoverable error surfaced by the
// last cancellation, if any.
type Idle struct {
	Err error
}

// CameraLoading is entered when a session opens.
type CameraLoading struct{}

// Scanning waits for a code. Notice carries a recoverable input problem such
// as a non-fiscal QR code.
type Scanning struct {
	Notice error
}

// Submitting is an in-flight creation call.
type Submitting struct {
	// Attempt is the 1-based attempt number; 0 while the code is still being validated.
	Attempt int
}

// RetryingPortal waits before the next attempt.
type RetryingPortal struct {
	Meta RetryMeta
}

// FailedTerminal is a submission that will not succeed by retrying.
type FailedTerminal struct {
	// Reason is the user-facing message.
	Reason string
	// Err is the underlying failure.
	Err error
}

// Success holds the created receipt.
type Success struct {
	Receipt *receipt.Receipt
}

// Kind implements State.
func (Idle) Kind() Kind { return KindIdle }

// Kind implements State.
func (CameraLoading) Kind() Kind { return KindCameraLoading }

// Kind implements State.
func (Scanning) Kind() Kind { return KindScanning }

// Kind implements State.
func (Submitting) Kind() Kind { return KindSubmitting }

// Kind implements State.
func (RetryingPortal) Kind() Kind { return KindRetryingPortal }

// Kind implements State.
func (FailedTerminal) Kind() Kind { return KindFailedTerminal }

// Kind implements State.
func (Success) Kind() Kind { return KindSuccess }

func (Idle) isState()           {}
func (CameraLoading) isState()  {}
func (Scanning) isState()       {}
func (Submitting) isState()     {}
func (RetryingPortal) isState() {}
func (FailedTerminal) isState() {}
func (Success) isState()        {}

// MetaOf returns the retry metadata of s when s is RetryingPortal.
func MetaOf(s State) (RetryMeta, bool) {
	if r, ok := s.(RetryingPortal); ok {
		return r.Meta, true
	}

	return RetryMeta{}, false
}
