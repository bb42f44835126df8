// Package common holds helpers shared by several services.
//
// It provides the HTTP client of the expense tracker backend used to create
// receipts from validated fiscal URLs, with per-call timeouts, bearer
// authentication and a request rate limit.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
