// Command mxf2proxy converts camera card MXF clips into editing proxies.
//
// Most subcommands talk to a running daemon over the IPC socket: add queues
// card folders, status and history report progress, prompts and answer
// resolve destination and duplicate questions. convert runs a one-shot
// queue in the foreground and asks questions on the terminal. daemon runs
// the daemon itself.
package main
