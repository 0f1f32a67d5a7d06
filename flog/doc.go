// Package flog is a thin structured-logging wrapper used internally by
// future, router, and executor for diagnostics that are never load-bearing
// for correctness: a dropped broken-promise chain, a router key with no
// registered route, a pool worker that recovered a panic.
//
// Every component that logs depends only on the [Logger] interface, never
// on log/slog directly, so callers can plug in their own sink.
package flog
