package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mxf2proxy/internal/media/ffprobe"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/settings"
)

// call is one recorded process run.
type call struct {
	exe  string
	args []string
}

func (c call) joined() string { return strings.Join(c.args, " ") }

func (c call) output() string { return c.args[len(c.args)-1] }

// fakeRunner records runs and writes the output file on success so later
// steps and cleanup have something to work with.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	// exit picks the exit code for a run; nil means success.
	exit func(c call) int
}

func (f *fakeRunner) Run(_ context.Context, exe string, args []string, logPath string) int {
	c := call{exe: exe, args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	code := 0
	if f.exit != nil {
		code = f.exit(c)
	}
	if logPath != "" {
		if fh, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			_, _ = fh.WriteString("ffmpeg " + c.joined() + "\n")
			_ = fh.Close()
		}
	}
	if code == 0 {
		_ = os.WriteFile(c.output(), []byte("media"), 0o644)
	}
	return code
}

func (f *fakeRunner) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeProber struct {
	frame ffprobe.Frame
}

func (p fakeProber) Frame(context.Context, string) (ffprobe.Frame, error) {
	return p.frame, nil
}

type fakeTracker struct {
	mu         sync.Mutex
	decrements int
	resets     int
	status     []string
}

func (t *fakeTracker) Decrement() { t.mu.Lock(); t.decrements++; t.mu.Unlock() }
func (t *fakeTracker) Reset()     { t.mu.Lock(); t.resets++; t.mu.Unlock() }
func (t *fakeTracker) SetStatus(s string) {
	t.mu.Lock()
	t.status = append(t.status, s)
	t.mu.Unlock()
}

// scriptedPrompter answers destination and duplicate prompts from fixed
// values.
type scriptedPrompter struct {
	destination prompt.DestinationChoice
	verdicts    []prompt.Verdict
	duplicates  int
}

func (s *scriptedPrompter) ChooseDestination(context.Context, prompt.DestinationRequest) (prompt.DestinationChoice, error) {
	if s.destination.Kind == "" {
		return prompt.DestinationChoice{Kind: prompt.DestinationDefault}, nil
	}
	return s.destination, nil
}

func (s *scriptedPrompter) ResolveDuplicate(context.Context, prompt.DuplicateRequest) (prompt.Verdict, error) {
	s.duplicates++
	if len(s.verdicts) == 0 {
		return prompt.VerdictCancel, nil
	}
	v := s.verdicts[0]
	s.verdicts = s.verdicts[1:]
	return v, nil
}

type staticSettings struct {
	snap   settings.Snapshot
	echoed []settings.Snapshot
}

func (s *staticSettings) Snapshot(context.Context) (settings.Snapshot, error) { return s.snap, nil }

func (s *staticSettings) EchoFormat(_ context.Context, snap settings.Snapshot) error {
	s.echoed = append(s.echoed, snap)
	return nil
}

// makeCard creates a source folder holding the named files.
func makeCard(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "CARD_A")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("clip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readLog(t *testing.T, dest string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dest, "conversion_log.txt"))
	if err != nil {
		t.Fatalf("read conversion log: %v", err)
	}
	return string(data)
}

func indexOf(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}
