package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"mxf2proxy/internal/collision"
	"mxf2proxy/internal/encoder"
	"mxf2proxy/internal/fileutil"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/prepass"
	"mxf2proxy/internal/services"
)

// ClipOutcome is the terminal state of one clip.
type ClipOutcome string

const (
	ClipSucceeded ClipOutcome = "succeeded"
	ClipFailed    ClipOutcome = "failed"
	ClipSkipped   ClipOutcome = "skipped"
	// ClipCancelled ends the batch; it is never counted as terminal.
	ClipCancelled ClipOutcome = "cancelled"
)

// ClipResult describes what happened to one clip.
type ClipResult struct {
	Index    int
	Source   string
	Output   string
	Outcome  ClipOutcome
	ExitCode int
	// Step names the encoder run that failed, if any.
	Step string
}

type clipState int

const (
	stateCheckCollision clipState = iota
	statePrepass
	stateEncode
	stateRemux
	stateCleanup
	stateDone
)

func (s clipState) String() string {
	switch s {
	case stateCheckCollision:
		return "check_collision"
	case statePrepass:
		return "prepass"
	case stateEncode:
		return "encode"
	case stateRemux:
		return "remux"
	case stateCleanup:
		return "cleanup"
	default:
		return "done"
	}
}

// clipRun carries one clip through the state machine.
type clipRun struct {
	o      *Orchestrator
	b      *batchRun
	name   string
	req    encoder.Request
	plan   encoder.Plan
	result ClipResult
}

func (o *Orchestrator) runClip(ctx context.Context, b *batchRun, index int, source string) ClipResult {
	ctx = services.WithClipIndex(ctx, index)
	output := encoder.OutputPath(b.dest, source, b.snap.Format)
	r := &clipRun{
		o:    o,
		b:    b,
		name: filepath.Base(source),
		req: encoder.Request{
			Source:    source,
			Output:    output,
			Format:    b.snap.Format,
			LUTPath:   b.lutPath,
			Watermark: b.watermark,
		},
		result: ClipResult{Index: index, Source: source, Output: output},
	}

	state := stateCheckCollision
	for state != stateDone {
		logging.WithContext(services.WithStage(ctx, state.String()), b.logger).Debug("clip state", logging.String("clip", r.name))
		switch state {
		case stateCheckCollision:
			state = r.checkCollision(ctx)
		case statePrepass:
			state = r.runPrepass(ctx)
		case stateEncode:
			state = r.encode(ctx)
		case stateRemux:
			state = r.remux(ctx)
		case stateCleanup:
			fileutil.RemoveQuietly(r.plan.Intermediates()...)
			state = stateDone
		}
	}
	return r.result
}

func (r *clipRun) checkCollision(ctx context.Context) clipState {
	outcome, err := r.b.negotiator.Check(ctx, collision.Request{
		JobID:     r.b.job.ID,
		Source:    r.req.Source,
		Output:    r.req.Output,
		ClipIndex: r.result.Index,
		ClipCount: len(r.b.clips),
		Force:     r.req.Force,
	})
	switch outcome.Action {
	case collision.Cancel:
		if err != nil {
			r.o.note(r.b, "Duplicate prompt failed for %s: %v", r.name, err)
		}
		r.result.Outcome = ClipCancelled
		return stateDone
	case collision.Skip:
		r.o.note(r.b, "SKIPPED: %s (output exists)", r.name)
		r.result.Outcome = ClipSkipped
		return stateDone
	}
	if outcome.Force {
		r.req = r.req.WithForce()
	}
	r.prepare(ctx)
	if r.plan.Prepass != "" {
		return statePrepass
	}
	return stateEncode
}

// prepare probes the source and compiles the encoder plan.
func (r *clipRun) prepare(ctx context.Context) {
	width, height := 0, 0
	if r.o.prober != nil {
		frame, err := r.o.prober.Frame(ctx, r.req.Source)
		if err != nil {
			logging.WarnWithContext(r.b.logger, "frame probe failed; using software encoder", "probe_failed",
				logging.String("clip", r.name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffprobe is installed"),
				logging.String(logging.FieldImpact, "clip encodes on the software path"),
			)
		} else {
			width, height = frame.Width, frame.Height
		}
	}
	r.req.Encoder = encoder.ChooseEncoder(width, r.o.opts.WidthThreshold, r.o.opts.HardwareCodec)
	logger := logging.WithContext(ctx, r.b.logger)
	logger.Debug("encoder selected", logging.Args(append(
		logging.DecisionAttrs("encoder", string(r.req.Encoder), fmt.Sprintf("width %d", width)),
		logging.String("clip", r.name),
	)...)...)
	if encoder.NeedsPrepass(r.req.Source, r.req.Format) {
		_, height = prepass.ScaledFrame(width, height)
		logger.Debug("pre-pass required", logging.Args(append(
			logging.DecisionAttrs("prepass", "required", "progressive output from a .mov source"),
			logging.String("clip", r.name),
		)...)...)
	}
	r.req.Height = height
	r.plan = r.o.builder.Plan(r.req)
}

func (r *clipRun) runPrepass(ctx context.Context) clipState {
	r.o.note(r.b, "Step 1: pre-pass converting %s", r.name)
	if !r.o.prepass.Transcode(ctx, r.req.Source, r.plan.Prepass, r.b.log.Path()) {
		r.o.note(r.b, "FAILED (pre-pass): %s", r.name)
		r.result.Outcome = ClipFailed
		r.result.Step = "prepass"
		return stateCleanup
	}
	r.o.note(r.b, "Step 1 SUCCESS. Step 2: encoding %s", r.name)
	return stateEncode
}

func (r *clipRun) encode(ctx context.Context) clipState {
	if r.req.Format == encoder.FormatBroadcast {
		r.o.note(r.b, "Step 1: intermediate video for %s", r.name)
	}
	if !r.runStep(ctx, r.plan.Steps[0]) {
		r.o.note(r.b, "FAILED: %s", r.name)
		return stateCleanup
	}
	if len(r.plan.Steps) > 1 {
		return stateRemux
	}
	r.result.Outcome = ClipSucceeded
	return stateCleanup
}

func (r *clipRun) remux(ctx context.Context) clipState {
	r.o.note(r.b, "Step 2: remuxing %s", r.name)
	for _, step := range r.plan.Steps[1:] {
		if !r.runStep(ctx, step) {
			r.o.note(r.b, "FAILED: %s (step 2)", r.name)
			return stateCleanup
		}
	}
	r.result.Outcome = ClipSucceeded
	return stateCleanup
}

func (r *clipRun) runStep(ctx context.Context, inv encoder.Invocation) bool {
	code := r.o.runner.Run(ctx, inv.Binary, inv.Args, r.b.log.Path())
	if code == 0 {
		return true
	}
	r.result.Outcome = ClipFailed
	r.result.ExitCode = code
	r.result.Step = inv.Step
	logging.WarnWithContext(r.b.logger, "encoder step failed", "encode_failed",
		logging.String("clip", r.name),
		logging.String("step", inv.Step),
		logging.Int("exit_code", code),
		logging.String(logging.FieldErrorHint, "see "+r.b.log.Path()),
		logging.String(logging.FieldImpact, "clip marked failed; batch continues"),
	)
	return false
}
