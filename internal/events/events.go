// Package events publishes pipeline progress to observers: the daemon log,
// redis pub/sub subscribers, and in-process listeners such as the API.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind names an event.
type Kind string

const (
	KindJobQueued     Kind = "job_queued"
	KindBatchStarted  Kind = "batch_started"
	KindBatchFinished Kind = "batch_finished"
	KindClipFinished  Kind = "clip_finished"
	KindOutstanding   Kind = "outstanding"
	KindStatus        Kind = "status"
	KindPromptOpened  Kind = "prompt_opened"
	KindPromptClosed  Kind = "prompt_closed"
)

// Event is one progress notification. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind        Kind      `json:"kind"`
	Time        time.Time `json:"time"`
	JobID       string    `json:"job_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Clip        string    `json:"clip,omitempty"`
	ClipIndex   int       `json:"clip_index,omitempty"`
	Output      string    `json:"output,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	ExitCode    int       `json:"exit_code,omitempty"`
	Clips       int       `json:"clips,omitempty"`
	Succeeded   int       `json:"succeeded,omitempty"`
	Failed      int       `json:"failed,omitempty"`
	Skipped     int       `json:"skipped,omitempty"`
	Outstanding int       `json:"outstanding"`
	Status      string    `json:"status,omitempty"`
	PromptID    string    `json:"prompt_id,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Publisher receives events. Implementations must not block the pipeline
// for long; slow sinks should buffer or drop.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Fanout forwards each event to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// Recorder keeps every event in memory. Tests and the one-shot CLI use it
// to inspect progress after the fact.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns recorded events matching kind.
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
