package notifications

import (
	"context"
	"log/slog"
	"time"

	"mxf2proxy/internal/events"
	"mxf2proxy/internal/logging"
)

const publishTimeout = 15 * time.Second

// Publisher forwards batch_finished events to a Service. Cancelled batches
// were stopped by the operator and are not announced.
type Publisher struct {
	svc    Service
	logger *slog.Logger
}

// NewPublisher adapts svc to the events bus.
func NewPublisher(svc Service, logger *slog.Logger) *Publisher {
	if svc == nil {
		svc = noopService{}
	}
	return &Publisher{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) {
	if ev.Kind != events.KindBatchFinished {
		return
	}
	summary := BatchSummary{
		Source:      ev.Source,
		Destination: ev.Destination,
		Succeeded:   ev.Succeeded,
		Failed:      ev.Failed,
		Skipped:     ev.Skipped,
		Reason:      ev.Message,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var err error
	switch ev.Outcome {
	case "completed":
		err = p.svc.NotifyBatchCompleted(ctx, summary)
	case "aborted":
		err = p.svc.NotifyBatchAborted(ctx, summary)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(p.logger, "notification failed", "notification_failed",
			logging.String(logging.FieldJobID, ev.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "batch result not announced"),
		)
	}
}
