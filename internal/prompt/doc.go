// Package prompt asks the operator the two questions a batch can raise:
// where proxies should go and what to do about an existing output file.
//
// Three Prompter implementations cover the ways mxf2proxy runs:
//   - Policy answers from configuration, for unattended daemons.
//   - Terminal drives an interactive bubbletea form for one-shot runs.
//   - Broker parks questions until an API or IPC client answers them, and
//     falls back to another Prompter when nobody does in time.
package prompt
