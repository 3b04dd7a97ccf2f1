package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mxf2proxy/internal/collision"
	"mxf2proxy/internal/encoder"
	"mxf2proxy/internal/events"
	"mxf2proxy/internal/fileutil"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/media/ffprobe"
	"mxf2proxy/internal/prepass"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/runner"
	"mxf2proxy/internal/services"
	"mxf2proxy/internal/settings"
)

// Tracker receives the outstanding-clip and status updates of a batch.
type Tracker interface {
	Decrement()
	Reset()
	SetStatus(text string)
}

// ProcessRunner runs one external process to completion.
type ProcessRunner interface {
	Run(ctx context.Context, exe string, args []string, logPath string) int
}

// Prober reports the frame size of a clip.
type Prober interface {
	Frame(ctx context.Context, path string) (ffprobe.Frame, error)
}

// SettingsSource supplies the per-batch settings snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Snapshot, error)
	EchoFormat(ctx context.Context, snap settings.Snapshot) error
}

// Options carries encoder settings that are fixed for the process.
type Options struct {
	FFmpeg         string
	HardwareCodec  string
	WidthThreshold int
	FontFile       string
}

// Dependencies are the collaborators an Orchestrator drives.
type Dependencies struct {
	Settings  SettingsSource
	Prompter  prompt.Prompter
	Runner    ProcessRunner
	Prepass   prepass.Transcoder
	Prober    Prober
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Job is the batch to run.
type Job struct {
	ID     string
	Source string
}

// BatchStatus is the terminal state of a batch.
type BatchStatus string

const (
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
	BatchAborted   BatchStatus = "aborted"
)

// Result summarizes a finished batch.
type Result struct {
	JobID       string
	Source      string
	Destination string
	Status      BatchStatus
	Clips       []ClipResult
	Succeeded   int
	Failed      int
	Skipped     int
	Duration    time.Duration
	Err         error
}

// Orchestrator runs batches.
type Orchestrator struct {
	opts      Options
	settings  SettingsSource
	prompter  prompt.Prompter
	runner    ProcessRunner
	prepass   prepass.Transcoder
	prober    Prober
	publisher events.Publisher
	logger    *slog.Logger
	builder   *encoder.Builder
	exists    func(string) bool
}

// New returns an Orchestrator. Missing optional collaborators fall back to
// config-only settings, no probing, and no event publishing.
func New(opts Options, deps Dependencies) *Orchestrator {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	o := &Orchestrator{
		opts:      opts,
		settings:  deps.Settings,
		prompter:  deps.Prompter,
		runner:    deps.Runner,
		prepass:   deps.Prepass,
		prober:    deps.Prober,
		publisher: deps.Publisher,
		logger:    logging.NewComponentLogger(deps.Logger, "pipeline"),
		exists:    fileutil.Exists,
	}
	if o.settings == nil {
		o.settings = settings.NewResolver(nil, nil)
	}
	if o.prompter == nil {
		o.prompter = &prompt.Policy{}
	}
	if o.publisher == nil {
		o.publisher = events.Nop{}
	}
	if o.runner == nil {
		o.runner = runner.New(deps.Logger)
	}
	if o.prepass == nil {
		o.prepass = &prepass.FFmpeg{Binary: opts.FFmpeg, Runner: o.runner, Logger: deps.Logger}
	}
	o.builder = encoder.NewBuilder(encoder.Options{
		FFmpeg:        opts.FFmpeg,
		HardwareCodec: opts.HardwareCodec,
		FontFile:      opts.FontFile,
	})
	return o
}

// batchRun is the mutable state of one batch.
type batchRun struct {
	job        Job
	isDir      bool
	clips      []string
	dest       string
	log        *ConversionLog
	snap       settings.Snapshot
	lutPath    string
	watermark  encoder.Watermark
	negotiator *collision.Negotiator
	tracker    Tracker
	logger     *slog.Logger
	result     Result
}

// Run converts every clip of job. It returns once the batch reached a
// terminal state; per-clip failures never abort it.
func (o *Orchestrator) Run(ctx context.Context, job Job, tracker Tracker) Result {
	start := time.Now()
	ctx = services.WithJobID(ctx, job.ID)
	if tracker == nil {
		tracker = nopTracker{}
	}
	b := &batchRun{
		job:     job,
		tracker: tracker,
		logger:  logging.WithContext(ctx, o.logger),
		result:  Result{JobID: job.ID, Source: job.Source},
	}
	b.negotiator = collision.New(o.prompter, o.logger)
	b.negotiator.SetExistsFunc(o.exists)
	b.negotiator.Reset()

	o.execute(ctx, b)

	b.result.Duration = time.Since(start)
	o.finish(ctx, b)
	return b.result
}

func (o *Orchestrator) execute(ctx context.Context, b *batchRun) {
	var err error
	b.clips, b.isDir, err = Enumerate(b.job.Source)
	if err != nil {
		o.abort(b, BatchAborted, services.Wrap(services.ErrNotFound, "enumerate", "list clips", "source unreadable", err))
		return
	}

	b.snap, err = o.settings.Snapshot(ctx)
	if err != nil {
		logging.WarnWithContext(b.logger, "settings unavailable; using configuration defaults", "settings_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "saved preferences ignored for this batch"),
		)
	}

	o.publisher.Publish(ctx, events.Event{
		Kind:   events.KindBatchStarted,
		JobID:  b.job.ID,
		Source: b.job.Source,
		Clips:  len(b.clips),
	})
	b.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.String("source", b.job.Source),
		logging.Int("clips", len(b.clips)),
		logging.String("format", string(b.snap.Format)),
	)

	b.dest, err = o.resolveDestination(ctx, b)
	if errors.Is(err, errDestinationCancelled) {
		o.abort(b, BatchCancelled, services.Wrap(services.ErrCancelled, "destination", "choose destination", "operator cancelled", nil))
		return
	}
	if err != nil {
		o.abort(b, BatchAborted, services.Wrap(services.ErrValidation, "destination", "choose destination", "no usable destination", err))
		return
	}
	b.result.Destination = b.dest

	if err := os.MkdirAll(b.dest, 0o755); err != nil {
		o.abort(b, BatchAborted, services.Wrap(services.ErrConfiguration, "destination", "create destination", b.dest, err))
		return
	}

	b.log = NewConversionLog(b.dest)
	o.note(b, "Using ffmpeg at: %s", o.builder.Binary())
	b.tracker.SetStatus("encoding to: " + b.dest)
	o.publisher.Publish(ctx, events.Event{
		Kind:        events.KindStatus,
		JobID:       b.job.ID,
		Destination: b.dest,
		Status:      "encoding to: " + b.dest,
	})

	o.resolveEnhancements(b)
	if err := o.settings.EchoFormat(ctx, b.snap); err != nil {
		b.logger.Debug("format echo failed", logging.Error(err))
	}

	for i, clip := range b.clips {
		if ctx.Err() != nil {
			o.abort(b, BatchCancelled, services.Wrap(services.ErrCancelled, "batch", "run clips", "shutdown requested", ctx.Err()))
			return
		}
		res := o.runClip(ctx, b, i, clip)
		b.result.Clips = append(b.result.Clips, res)
		o.publishClip(ctx, b, res)

		if res.Outcome == ClipCancelled {
			b.tracker.Reset()
			o.note(b, "CANCELLED: remaining %d clip(s) not converted", len(b.clips)-i)
			b.result.Status = BatchCancelled
			return
		}
		b.tracker.Decrement()
		switch res.Outcome {
		case ClipSucceeded:
			b.result.Succeeded++
		case ClipFailed:
			b.result.Failed++
		case ClipSkipped:
			b.result.Skipped++
		}
	}

	o.note(b, "Conversion complete: %s", b.dest)
	b.result.Status = BatchCompleted
}

// resolveEnhancements checks the LUT and watermark the snapshot asks for
// and records what will actually be applied.
func (o *Orchestrator) resolveEnhancements(b *batchRun) {
	lut := b.snap.LUT()
	hasLUT := lut != "" && fileutil.Exists(lut)
	o.note(b, "LUT check: enabled=%t, file=%s, found=%t", b.snap.LUTEnabled, valueOrNil(lut), hasLUT)
	if hasLUT {
		b.lutPath = lut
	}

	wm := b.snap.Watermark()
	switch wm.Mode {
	case encoder.WatermarkImage:
		if !fileutil.Exists(wm.ImagePath) {
			o.note(b, "Watermark: image %s not found, skipping", wm.ImagePath)
			wm = encoder.Watermark{Mode: encoder.WatermarkNone}
		} else {
			o.note(b, "Watermark: image %s", wm.ImagePath)
		}
	case encoder.WatermarkText:
		o.note(b, "Watermark: text %q", wm.Text)
	default:
		o.note(b, "Watermark: none")
	}
	b.watermark = wm
}

func (o *Orchestrator) abort(b *batchRun, status BatchStatus, err error) {
	b.result.Status = status
	b.result.Err = err
	if b.log != nil {
		o.note(b, "ABORTED: %v", err)
	}
	if status == BatchCancelled {
		b.logger.Info("batch cancelled", logging.String(logging.FieldEventType, "batch_cancelled"), logging.Error(err))
		return
	}
	logging.ErrorWithContext(b.logger, "batch aborted", "batch_aborted",
		logging.String("source", b.job.Source),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the source path and destination permissions"),
	)
}

func (o *Orchestrator) finish(ctx context.Context, b *batchRun) {
	message := ""
	if b.result.Err != nil {
		message = b.result.Err.Error()
	}
	o.publisher.Publish(ctx, events.Event{
		Kind:        events.KindBatchFinished,
		JobID:       b.job.ID,
		Source:      b.job.Source,
		Destination: b.dest,
		Outcome:     string(b.result.Status),
		Clips:       len(b.clips),
		Succeeded:   b.result.Succeeded,
		Failed:      b.result.Failed,
		Skipped:     b.result.Skipped,
		Message:     message,
	})
	b.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.String("status", string(b.result.Status)),
		logging.Int("succeeded", b.result.Succeeded),
		logging.Int("failed", b.result.Failed),
		logging.Int("skipped", b.result.Skipped),
		logging.Duration("elapsed", b.result.Duration),
	)
}

func (o *Orchestrator) publishClip(ctx context.Context, b *batchRun, res ClipResult) {
	o.publisher.Publish(ctx, events.Event{
		Kind:      events.KindClipFinished,
		JobID:     b.job.ID,
		Source:    b.job.Source,
		Clip:      res.Source,
		ClipIndex: res.Index,
		Output:    res.Output,
		Outcome:   string(res.Outcome),
		ExitCode:  res.ExitCode,
	})
}

// note writes a line to the conversion log. Log failures are reported to
// the daemon log only.
func (o *Orchestrator) note(b *batchRun, format string, args ...any) {
	if b.log == nil {
		return
	}
	if err := b.log.Printf(format, args...); err != nil {
		b.logger.Debug("conversion log write failed", logging.String("path", b.log.Path()), logging.Error(err))
	}
}

func valueOrNil(s string) string {
	if s == "" {
		return "nil"
	}
	return s
}

type nopTracker struct{}

func (nopTracker) Decrement()       {}
func (nopTracker) Reset()           {}
func (nopTracker) SetStatus(string) {}

// String renders a one-line summary.
func (r Result) String() string {
	return fmt.Sprintf("%s: %s (%d succeeded, %d failed, %d skipped)", r.Source, r.Status, r.Succeeded, r.Failed, r.Skipped)
}
