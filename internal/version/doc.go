// Package version exposes build metadata for receipt-scan.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// UserAgent renders them for outgoing backend requests.
package version
