// Package daemonrun assembles the conversion stack and runs the daemon
// process: logging, history, event sinks, the pipeline orchestrator, the
// daemon itself, and its IPC socket. The one-shot convert command reuses
// Stack so both paths convert clips identically.
package daemonrun
