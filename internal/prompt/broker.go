package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mxf2proxy/internal/events"
	"mxf2proxy/internal/logging"
)

// ErrPromptNotFound reports an answer for a prompt that is not pending.
var ErrPromptNotFound = errors.New("prompt not found")

// Kind distinguishes pending prompt types.
type Kind string

const (
	KindDestination Kind = "destination"
	KindDuplicate   Kind = "duplicate"
)

// Pending is a question waiting for an answer.
type Pending struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	JobID     string    `json:"job_id"`
	Source    string    `json:"source"`
	Default   string    `json:"default,omitempty"`
	Output    string    `json:"output,omitempty"`
	ClipIndex int       `json:"clip_index,omitempty"`
	ClipCount int       `json:"clip_count,omitempty"`
	Created   time.Time `json:"created"`
}

// Answer resolves a pending prompt. Duplicate prompts read Verdict;
// destination prompts read Destination and Path.
type Answer struct {
	Verdict     Verdict         `json:"verdict,omitempty"`
	Destination DestinationKind `json:"destination,omitempty"`
	Path        string          `json:"path,omitempty"`
}

type waiter struct {
	pending Pending
	reply   chan Answer
}

// Broker parks prompts until Answer is called for them. When Timeout
// elapses first, the question is handed to Fallback instead.
type Broker struct {
	Timeout  time.Duration
	Fallback Prompter

	publisher events.Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
	now     func() time.Time
}

// NewBroker returns a broker that falls back to fallback after timeout.
// A zero timeout defers to fallback immediately.
func NewBroker(timeout time.Duration, fallback Prompter, publisher events.Publisher, logger *slog.Logger) *Broker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Broker{
		Timeout:   timeout,
		Fallback:  fallback,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "prompt-broker"),
		waiters:   make(map[string]*waiter),
		now:       time.Now,
	}
}

// List returns pending prompts, oldest first.
func (b *Broker) List() []Pending {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Pending, 0, len(b.waiters))
	for _, w := range b.waiters {
		out = append(out, w.pending)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Answer delivers an answer to the prompt with id.
func (b *Broker) Answer(id string, answer Answer) error {
	b.mu.Lock()
	w, ok := b.waiters[id]
	if ok {
		if err := validateAnswer(w.pending.Kind, answer); err != nil {
			b.mu.Unlock()
			return err
		}
		delete(b.waiters, id)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	w.reply <- answer
	return nil
}

func validateAnswer(kind Kind, answer Answer) error {
	switch kind {
	case KindDuplicate:
		if _, err := ParseVerdict(string(answer.Verdict)); err != nil {
			return err
		}
	case KindDestination:
		switch answer.Destination {
		case DestinationDefault, DestinationCancel:
		case DestinationCustom:
			if answer.Path == "" {
				return errors.New("custom destination requires a path")
			}
		default:
			return fmt.Errorf("unknown destination %q (want default, custom, cancel)", answer.Destination)
		}
	}
	return nil
}

// ChooseDestination parks a destination prompt.
func (b *Broker) ChooseDestination(ctx context.Context, req DestinationRequest) (DestinationChoice, error) {
	pending := Pending{
		Kind:      KindDestination,
		JobID:     req.JobID,
		Source:    req.Source,
		Default:   req.Default,
		ClipCount: req.Clips,
	}
	answer, ok, err := b.wait(ctx, pending)
	if err != nil {
		return DestinationChoice{}, err
	}
	if !ok {
		return b.fallback().ChooseDestination(ctx, req)
	}
	choice := DestinationChoice{Kind: answer.Destination, Path: answer.Path}
	if choice.Kind == DestinationCustom {
		// The remote operator decided while the prompt was open.
		choice.PickerOpened = answer.opened
	}
	return choice, nil
}

// ResolveDuplicate parks a duplicate prompt.
func (b *Broker) ResolveDuplicate(ctx context.Context, req DuplicateRequest) (Verdict, error) {
	pending := Pending{
		Kind:      KindDuplicate,
		JobID:     req.JobID,
		Source:    req.Source,
		Output:    req.Output,
		ClipIndex: req.ClipIndex,
		ClipCount: req.ClipCount,
	}
	answer, ok, err := b.wait(ctx, pending)
	if err != nil {
		return "", err
	}
	if !ok {
		return b.fallback().ResolveDuplicate(ctx, req)
	}
	return ParseVerdict(string(answer.Verdict))
}

func (b *Broker) fallback() Prompter {
	if b.Fallback != nil {
		return b.Fallback
	}
	return &Policy{}
}

type timedAnswer struct {
	Answer
	opened time.Time
}

// wait registers pending and blocks for an answer. ok is false when the
// timeout expired without one.
func (b *Broker) wait(ctx context.Context, pending Pending) (timedAnswer, bool, error) {
	if b.Timeout <= 0 {
		return timedAnswer{}, false, nil
	}
	pending.ID = uuid.NewString()
	pending.Created = b.now()
	w := &waiter{pending: pending, reply: make(chan Answer, 1)}

	b.mu.Lock()
	b.waiters[pending.ID] = w
	b.mu.Unlock()

	b.publisher.Publish(ctx, events.Event{
		Kind:     events.KindPromptOpened,
		JobID:    pending.JobID,
		Source:   pending.Source,
		PromptID: pending.ID,
		Message:  string(pending.Kind) + " prompt waiting",
	})
	b.logger.Info("prompt waiting for answer",
		logging.String("prompt_id", pending.ID),
		logging.String("kind", string(pending.Kind)),
		logging.String(logging.FieldJobID, pending.JobID),
		logging.Duration("timeout", b.Timeout),
	)

	timer := time.NewTimer(b.Timeout)
	defer timer.Stop()

	closed := func(msg string) {
		b.publisher.Publish(ctx, events.Event{
			Kind:     events.KindPromptClosed,
			JobID:    pending.JobID,
			PromptID: pending.ID,
			Message:  msg,
		})
	}

	select {
	case answer := <-w.reply:
		closed("answered")
		return timedAnswer{Answer: answer, opened: pending.Created}, true, nil
	case <-timer.C:
		b.forget(pending.ID)
		logging.WarnWithContext(b.logger, "prompt timed out; using fallback answer", "prompt_timeout",
			logging.String("prompt_id", pending.ID),
			logging.String(logging.FieldErrorHint, "answer prompts with `mxf2proxy answer` or POST /api/prompts/{id}"),
			logging.String(logging.FieldImpact, "configured policy decides instead of the operator"),
		)
		closed("timed out")
		return timedAnswer{}, false, nil
	case <-ctx.Done():
		b.forget(pending.ID)
		closed("cancelled")
		return timedAnswer{}, false, ctx.Err()
	}
}

func (b *Broker) forget(id string) {
	b.mu.Lock()
	delete(b.waiters, id)
	b.mu.Unlock()
}
