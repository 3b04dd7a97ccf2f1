// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Request and response types live in types.go; reuse them when adding
// methods so the CLI and daemon stay wire compatible. The client bounds the
// dial so commands fail fast when no daemon is listening.
package ipc
