package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/services"
)

// Job is one submitted source.
type Job struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	IsDir  bool   `json:"is_dir"`
	// Estimate is the clip count taken at submit time.
	Estimate    int       `json:"estimate"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
}

// Snapshot is a read-only copy of the manager state.
type Snapshot struct {
	Active      *Job   `json:"active,omitempty"`
	Queued      []Job  `json:"queued"`
	Outstanding int    `json:"outstanding"`
	Status      string `json:"status"`
	// Finished counts batches that reached a terminal state.
	Finished int              `json:"finished"`
	Last     *pipeline.Result `json:"-"`
}

// Idle reports whether nothing is running or waiting.
func (s Snapshot) Idle() bool {
	return s.Active == nil && len(s.Queued) == 0
}

// QueueLabel renders the outstanding counter for status displays.
func (s Snapshot) QueueLabel() string {
	return fmt.Sprintf("items in queue: %d", s.Outstanding)
}

// Canonicalize returns the absolute, symlink-resolved form of source. Paths
// whose links cannot be resolved fall back to the cleaned absolute path.
func Canonicalize(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "queue", "canonicalize", "source path is empty", nil)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "queue", "canonicalize", source, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// inspect canonicalizes source and reports whether it is a directory. A
// missing source is rejected before it reaches the queue.
func inspect(source string) (string, bool, error) {
	path, err := Canonicalize(source)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, services.Wrap(services.ErrNotFound, "queue", "submit", path, err)
	}
	if err != nil {
		return "", false, services.Wrap(services.ErrValidation, "queue", "submit", path, err)
	}
	return path, info.IsDir(), nil
}
