// Package daemon coordinates the long-running mxf2proxy process and its
// system integration points.
//
// It owns the job queue, the pending-prompt broker, the optional HTTP API,
// and the camera card monitor, all under a single lifecycle with flock-based
// locking to prevent multiple instances. Conversion itself lives in the
// pipeline package; the daemon focuses on startup, shutdown, and routing
// requests from the CLI socket and HTTP API to the queue.
package daemon
