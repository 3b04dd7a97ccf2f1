// Package queue owns the FIFO of submitted sources and runs them one batch
// at a time.
//
// The Manager canonicalizes each submission, drops resubmissions of a path
// that is already active or waiting, and keeps the outstanding-clip counter
// that the pipeline decrements as clips reach a terminal state. State is held
// in memory behind a single mutex; observers get copies through Snapshot and
// change notifications through events.Publisher. Completed batches are
// recorded by the history package, not here.
package queue
