// Package retry submits validated fiscal URLs to the backend on a fixed
// delay schedule.
//
// Failures are classified as transient or terminal. Transient failures are
// retried after a wait that the user can cut short (RetryNow) or abort
// (Cancel); terminal failures end the submission at once. Every state change
// is published through the scan flow machine before the matching wait or
// call begins.
package retry
