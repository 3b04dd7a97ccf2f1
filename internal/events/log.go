package events

import (
	"context"
	"log/slog"

	"mxf2proxy/internal/logging"
)

// LogPublisher writes events to a structured logger. Outstanding-count
// ticks are logged at debug level; everything else at info.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.NewComponentLogger(logger, "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, string(event.Kind))}
	if event.JobID != "" {
		attrs = append(attrs, logging.String(logging.FieldJobID, event.JobID))
	}
	if event.Source != "" {
		attrs = append(attrs, logging.String("source", event.Source))
	}
	if event.Clip != "" {
		attrs = append(attrs, logging.String("clip", event.Clip))
	}
	if event.Outcome != "" {
		attrs = append(attrs, logging.String("outcome", event.Outcome))
	}
	if event.PromptID != "" {
		attrs = append(attrs, logging.String("prompt_id", event.PromptID))
	}
	attrs = append(attrs, logging.Int("outstanding", event.Outstanding))

	msg := event.Message
	if msg == "" {
		msg = event.Status
	}
	if msg == "" {
		msg = string(event.Kind)
	}
	level := slog.LevelInfo
	if event.Kind == KindOutstanding || event.Kind == KindStatus {
		level = slog.LevelDebug
	}
	logging.WithContext(ctx, p.logger).Log(ctx, level, msg, logging.Args(attrs...)...)
}
