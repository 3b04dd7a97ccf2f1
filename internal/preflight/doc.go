// Package preflight checks the filesystem paths and services a batch relies
// on before the daemon starts accepting work.
//
// The daemon logs every failed check at startup without refusing to run, so
// a missing LUT shows up before the first card is inserted rather than as a
// failed clip. The deps command prints the same results next to the binary
// report. Each check is gated by its config or preference toggle.
package preflight
