// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console-encoded lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (InfoKV, WarnKV, ErrorKV, ...).
//
// Scan sessions, the retry orchestrator and the HTTP transport all accept a
// context and extract the logger from it, so every line carries the scoped
// name and key-values of the operation that produced it.
package logger
