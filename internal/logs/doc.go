// Package logs reads line-oriented log files incrementally.
//
// Tail serves both the daemon log (over IPC) and a batch's
// conversion_log.txt. Callers keep the returned offset and pass it back to
// continue where the previous read stopped; a negative offset means "the
// last N lines".
package logs
