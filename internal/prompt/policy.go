package prompt

import (
	"context"
	"time"

	"mxf2proxy/internal/config"
)

// Policy answers prompts from configuration without operator input.
type Policy struct {
	Duplicate      Verdict
	FixedDirectory string
	now            func() time.Time
}

// NewPolicy builds a Policy from the prompts section. Duplicate policies
// answer with the batch-wide verdict so the batch is never asked twice.
func NewPolicy(cfg *config.Config) *Policy {
	p := &Policy{Duplicate: VerdictSkipAll, now: time.Now}
	if cfg == nil {
		return p
	}
	switch cfg.Prompts.Duplicate {
	case config.DuplicateOverwrite:
		p.Duplicate = VerdictOverwriteAll
	case config.DuplicateCancel:
		p.Duplicate = VerdictCancel
	}
	if cfg.Prompts.Destination == config.DestinationFixed {
		p.FixedDirectory = cfg.Prompts.DestinationDir
	}
	return p
}

// ChooseDestination accepts the default, or the configured fixed directory.
func (p *Policy) ChooseDestination(_ context.Context, _ DestinationRequest) (DestinationChoice, error) {
	if p.FixedDirectory == "" {
		return DestinationChoice{Kind: DestinationDefault}, nil
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	return DestinationChoice{Kind: DestinationCustom, Path: p.FixedDirectory, PickerOpened: now()}, nil
}

// ResolveDuplicate returns the configured verdict.
func (p *Policy) ResolveDuplicate(_ context.Context, _ DuplicateRequest) (Verdict, error) {
	if p.Duplicate == "" {
		return VerdictSkipAll, nil
	}
	return p.Duplicate, nil
}
