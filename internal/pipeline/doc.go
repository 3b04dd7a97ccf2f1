// Package pipeline turns one submitted source into proxies.
//
// Orchestrator.Run drives a batch: enumerate clips, settle the destination,
// then walk each clip through the per-file state machine
//
//	CheckCollision -> Prepass? -> Encode -> Remux? -> Cleanup -> Done
//
// strictly one clip at a time. Every clip that reaches a terminal state
// (succeeded, failed, skipped) decrements the tracker exactly once; a
// cancel verdict resets the tracker and ends the batch instead.
//
// Diagnostics for the operator go to conversion_log.txt in the destination
// directory, shared with the encoder's own output.
package pipeline
