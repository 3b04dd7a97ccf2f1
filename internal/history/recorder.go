package history

import (
	"context"
	"log/slog"

	"mxf2proxy/internal/events"
	"mxf2proxy/internal/logging"
)

// Recorder writes batch and clip events into the store. It implements
// events.Publisher; write failures are logged and otherwise ignored so the
// batch never stalls on the database.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder returns a Recorder for store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

func (r *Recorder) Publish(ctx context.Context, event events.Event) {
	if r == nil || r.store == nil || event.JobID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	switch event.Kind {
	case events.KindBatchStarted:
		err = r.store.StartJob(ctx, JobRecord{
			ID:          event.JobID,
			Source:      event.Source,
			Destination: event.Destination,
			ClipsTotal:  event.Clips,
			StartedAt:   event.Time,
		})
	case events.KindClipFinished:
		err = r.store.RecordClip(ctx, ClipRecord{
			JobID:      event.JobID,
			Index:      event.ClipIndex,
			Source:     event.Clip,
			Output:     event.Output,
			Outcome:    event.Outcome,
			ExitCode:   event.ExitCode,
			FinishedAt: event.Time,
		})
	case events.KindBatchFinished:
		err = r.store.FinishJob(ctx, JobRecord{
			ID:          event.JobID,
			Destination: event.Destination,
			Status:      event.Outcome,
			Succeeded:   event.Succeeded,
			Failed:      event.Failed,
			Skipped:     event.Skipped,
			Message:     event.Message,
			FinishedAt:  event.Time,
		})
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
			logging.String(logging.FieldJobID, event.JobID),
			logging.String("kind", string(event.Kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch continues but is missing from history"),
		)
	}
}
