// Package services defines shared utilities consumed by the conversion
// pipeline and its integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, clip indexes, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, so the API and CLI can
//     map a failure to a status with errors.Is.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform.
package services
