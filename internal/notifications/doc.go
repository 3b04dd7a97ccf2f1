// Package notifications delivers batch milestones via ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set. NewPublisher adapts a Service to the events
// bus so the pipeline never calls notifications directly.
package notifications
