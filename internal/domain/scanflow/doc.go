// Package scanflow holds the observable state of a scan session.
//
// State is a closed set of variants (Idle, CameraLoading, Scanning,
// Submitting, RetryingPortal, FailedTerminal, Success). RetryMeta lives only
// inside RetryingPortal, so "retry metadata present iff retrying" holds by
// construction. Machine guards every transition against the allowed edges
// and notifies subscribers after each change.
package scanflow
