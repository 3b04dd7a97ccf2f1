// Package logging assembles structured slog loggers for the daemon and CLI.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with job IDs, clip indexes, and correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
