// Package history persists batch outcomes and operator preferences in
// SQLite.
//
// The jobs and clips tables are written from pipeline events by Recorder,
// so the pipeline never waits on the database. The preferences table backs
// the settings overlay read at batch start.
package history
