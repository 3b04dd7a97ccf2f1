// Package collision decides what happens when a proxy would overwrite an
// existing file.
//
// A Negotiator belongs to one batch. It consults the batch-wide
// overwrite-all and skip-all flags first and only asks its Prompter when
// neither is set. Once a batch-wide verdict is returned the flag sticks
// until Reset, so later collisions in the same batch are never prompted.
package collision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/prompt"
)

// Action is what the caller should do with the clip.
type Action int

const (
	// Proceed encodes the clip.
	Proceed Action = iota
	// Skip leaves the existing output alone.
	Skip
	// Cancel stops the batch.
	Cancel
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Outcome is the negotiated decision for one clip.
type Outcome struct {
	Action Action
	// Force asks the caller to clobber the existing output.
	Force bool
	// Prompted reports whether the Prompter was consulted.
	Prompted bool
	// Verdict is the operator's answer when Prompted.
	Verdict prompt.Verdict
}

// Request describes one prospective output.
type Request struct {
	JobID     string
	Source    string
	Output    string
	ClipIndex int
	ClipCount int
	// Force is set when the clip re-enters after an overwrite verdict.
	Force bool
}

// BatchFlags are the batch-scoped verdict flags.
type BatchFlags struct {
	OverwriteAll bool
	SkipAll      bool
}

// Negotiator resolves output collisions for one batch at a time.
type Negotiator struct {
	prompter prompt.Prompter
	logger   *slog.Logger
	exists   func(string) bool
	flags    BatchFlags
}

// New returns a Negotiator asking prompter about ambiguous collisions.
func New(prompter prompt.Prompter, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		prompter: prompter,
		logger:   logging.NewComponentLogger(logger, "collision"),
		exists:   fileExists,
	}
}

// SetExistsFunc overrides the output existence check.
func (n *Negotiator) SetExistsFunc(fn func(string) bool) {
	if fn == nil {
		fn = fileExists
	}
	n.exists = fn
}

// Reset clears the batch flags. Called at batch start.
func (n *Negotiator) Reset() {
	n.flags = BatchFlags{}
}

// Flags returns the current batch flags.
func (n *Negotiator) Flags() BatchFlags {
	return n.flags
}

// Check decides whether req may be encoded. Existence is the only test:
// file contents are never compared.
func (n *Negotiator) Check(ctx context.Context, req Request) (Outcome, error) {
	if req.Force || !n.exists(req.Output) {
		return Outcome{Action: Proceed, Force: req.Force}, nil
	}
	if n.flags.OverwriteAll {
		return Outcome{Action: Proceed, Force: true}, nil
	}
	if n.flags.SkipAll {
		return Outcome{Action: Skip}, nil
	}
	if n.prompter == nil {
		return Outcome{Action: Cancel}, errors.New("no prompter configured for duplicate output")
	}

	verdict, err := n.prompter.ResolveDuplicate(ctx, prompt.DuplicateRequest{
		JobID:     req.JobID,
		Source:    req.Source,
		Output:    req.Output,
		ClipIndex: req.ClipIndex,
		ClipCount: req.ClipCount,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, n.logger), "duplicate prompt failed; cancelling batch", "duplicate_prompt_failed",
			logging.String("output", req.Output),
			logging.Error(err),
			logging.String(logging.FieldImpact, "remaining clips in the batch are not converted"),
		)
		return Outcome{Action: Cancel, Prompted: true}, err
	}
	n.logger.Debug("duplicate verdict",
		logging.String("output", req.Output),
		logging.String("verdict", string(verdict)),
	)
	return n.apply(verdict), nil
}

func (n *Negotiator) apply(verdict prompt.Verdict) Outcome {
	out := Outcome{Prompted: true, Verdict: verdict}
	switch verdict {
	case prompt.VerdictOverwrite:
		out.Action, out.Force = Proceed, true
	case prompt.VerdictOverwriteAll:
		n.flags.OverwriteAll = true
		out.Action, out.Force = Proceed, true
	case prompt.VerdictSkip:
		out.Action = Skip
	case prompt.VerdictSkipAll:
		n.flags.SkipAll = true
		out.Action = Skip
	default:
		out.Action = Cancel
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
