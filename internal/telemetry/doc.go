// Package telemetry reports scan and submission outcomes to observability
// backends. Reporting is fire-and-forget: a Reporter never returns errors and
// Guard shields callers from reporters that panic.
package telemetry
