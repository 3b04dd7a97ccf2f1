package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Verdict is the answer to a duplicate-output prompt.
type Verdict string

const (
	VerdictOverwrite    Verdict = "overwrite"
	VerdictSkip         Verdict = "skip"
	VerdictOverwriteAll Verdict = "overwrite-all"
	VerdictSkipAll      Verdict = "skip-all"
	VerdictCancel       Verdict = "cancel"
)

// Verdicts lists every duplicate verdict in display order.
func Verdicts() []Verdict {
	return []Verdict{VerdictOverwrite, VerdictSkip, VerdictOverwriteAll, VerdictSkipAll, VerdictCancel}
}

// ParseVerdict accepts a verdict name, ignoring case and underscores.
func ParseVerdict(value string) (Verdict, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")
	for _, v := range Verdicts() {
		if string(v) == normalized {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown verdict %q (want overwrite, skip, overwrite-all, skip-all, cancel)", value)
}

// DestinationKind is the operator's destination decision.
type DestinationKind string

const (
	DestinationDefault DestinationKind = "default"
	DestinationCustom  DestinationKind = "custom"
	DestinationCancel  DestinationKind = "cancel"
)

// DestinationChoice is the answer to a destination prompt.
type DestinationChoice struct {
	Kind DestinationKind
	// Path is the chosen directory for DestinationCustom.
	Path string
	// PickerOpened is when the operator started choosing. A custom
	// directory created after this moment is used as-is.
	PickerOpened time.Time
}

// DestinationRequest describes a batch awaiting a destination.
type DestinationRequest struct {
	JobID   string
	Source  string
	Default string
	Clips   int
}

// DuplicateRequest describes one existing output file.
type DuplicateRequest struct {
	JobID     string
	Source    string
	Output    string
	ClipIndex int
	ClipCount int
}

// Prompter answers destination and duplicate questions. Both calls may
// block until the operator responds.
type Prompter interface {
	ChooseDestination(ctx context.Context, req DestinationRequest) (DestinationChoice, error)
	ResolveDuplicate(ctx context.Context, req DuplicateRequest) (Verdict, error)
}
