package queue_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mxf2proxy/internal/events"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/queue"
	"mxf2proxy/internal/services"
)

// gatedRunner blocks each batch until released and records run order and
// the peak number of concurrent batches.
type gatedRunner struct {
	mu      sync.Mutex
	order   []string
	running int
	peak    int
	release chan struct{}
	started chan string
	clips   int
}

func newGatedRunner(clips int) *gatedRunner {
	return &gatedRunner{release: make(chan struct{}, 16), started: make(chan string, 16), clips: clips}
}

func (g *gatedRunner) Run(ctx context.Context, job pipeline.Job, tracker pipeline.Tracker) pipeline.Result {
	g.mu.Lock()
	g.order = append(g.order, job.Source)
	g.running++
	if g.running > g.peak {
		g.peak = g.running
	}
	g.mu.Unlock()
	g.started <- job.Source

	<-g.release
	tracker.SetStatus("encoding to: " + job.Source + " proxies")
	for i := 0; i < g.clips; i++ {
		tracker.Decrement()
	}

	g.mu.Lock()
	g.running--
	g.mu.Unlock()
	return pipeline.Result{JobID: job.ID, Source: job.Source, Status: pipeline.BatchCompleted}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("job-%d", n)
	}
}

func makeSource(t *testing.T, root, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func waitStarted(t *testing.T, g *gatedRunner) string {
	t.Helper()
	select {
	case src := <-g.started:
		return src
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch start")
		return ""
	}
}

func TestSubmitRunsOneBatchAtATimeInOrder(t *testing.T) {
	root := t.TempDir()
	a := makeSource(t, root, "A", "1.mxf")
	b := makeSource(t, root, "B", "1.mxf")
	c := makeSource(t, root, "C", "1.mxf")

	runner := newGatedRunner(0)
	m := queue.NewManager(context.Background(), runner, nil, nil, queue.WithIDGenerator(sequentialIDs()))
	ctx := context.Background()
	for _, src := range []string{a, b, c} {
		if _, ok, err := m.Submit(ctx, src); err != nil || !ok {
			t.Fatalf("Submit(%s) = %v, %v", src, ok, err)
		}
	}
	if got := waitStarted(t, runner); got != a {
		t.Fatalf("first batch = %s", got)
	}
	snap := m.Snapshot()
	if snap.Active == nil || snap.Active.ID != "job-1" || len(snap.Queued) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	for i := 0; i < 3; i++ {
		runner.release <- struct{}{}
	}
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !m.Idle() {
		t.Fatal("expected idle manager")
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.peak != 1 {
		t.Fatalf("batches overlapped: peak %d", runner.peak)
	}
	want := []string{a, b, c}
	for i := range want {
		if runner.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", runner.order, want)
		}
	}
	if m.Snapshot().Finished != 3 {
		t.Fatalf("finished = %d", m.Snapshot().Finished)
	}
}

func TestDuplicateSubmissionIsNoOp(t *testing.T) {
	root := t.TempDir()
	a := makeSource(t, root, "A", "1.mxf", "2.mov")
	b := makeSource(t, root, "B", "1.mxf")
	link := filepath.Join(root, "A-link")
	if err := os.Symlink(a, link); err != nil {
		t.Fatal(err)
	}

	runner := newGatedRunner(0)
	m := queue.NewManager(context.Background(), runner, nil, nil)
	ctx := context.Background()

	if _, ok, _ := m.Submit(ctx, a); !ok {
		t.Fatal("first submit should be accepted")
	}
	waitStarted(t, runner)
	if _, ok, _ := m.Submit(ctx, b); !ok {
		t.Fatal("second source should be accepted")
	}
	before := m.Snapshot()

	for _, dup := range []string{a, a + "/", link, filepath.Join(a, "..", "A"), b} {
		if _, ok, err := m.Submit(ctx, dup); ok || err != nil {
			t.Fatalf("Submit(%q) = %v, %v; want silent no-op", dup, ok, err)
		}
	}
	after := m.Snapshot()
	if after.Outstanding != before.Outstanding || len(after.Queued) != len(before.Queued) {
		t.Fatalf("duplicate changed state: before %+v after %+v", before, after)
	}

	runner.release <- struct{}{}
	runner.release <- struct{}{}
	if err := m.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	// Once finished, the same path may be queued again.
	if _, ok, _ := m.Submit(ctx, a); !ok {
		t.Fatal("finished source should be accepted again")
	}
	runner.release <- struct{}{}
	_ = m.Wait(ctx)
}

func TestOutstandingCounter(t *testing.T) {
	root := t.TempDir()
	dir := makeSource(t, root, "CARD", "a.MXF", "b.mov", "c.txt")
	file := filepath.Join(makeSource(t, root, "single", "clip.mxf"), "clip.mxf")

	rec := &events.Recorder{}
	runner := newGatedRunner(3)
	m := queue.NewManager(context.Background(), runner, rec, nil)
	ctx := context.Background()

	if _, _, err := m.Submit(ctx, dir); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, runner)
	if _, _, err := m.Submit(ctx, file); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().Outstanding; got != 3 {
		t.Fatalf("outstanding = %d, want 3", got)
	}
	if got := m.Snapshot().QueueLabel(); got != "items in queue: 3" {
		t.Fatalf("label = %q", got)
	}

	// Each batch decrements three times; the file batch estimated one, so
	// the counter floors at zero.
	runner.release <- struct{}{}
	runner.release <- struct{}{}
	if err := m.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().Outstanding; got != 0 {
		t.Fatalf("outstanding = %d, want 0", got)
	}
	for _, ev := range rec.OfKind(events.KindOutstanding) {
		if ev.Outstanding < 0 {
			t.Fatalf("negative outstanding event %+v", ev)
		}
	}
	if n := len(rec.OfKind(events.KindJobQueued)); n != 2 {
		t.Fatalf("queued events = %d", n)
	}
	if n := len(rec.OfKind(events.KindStatus)); n != 2 {
		t.Fatalf("status events = %d", n)
	}
}

func TestResetZeroesCounter(t *testing.T) {
	root := t.TempDir()
	dir := makeSource(t, root, "CARD", "a.mxf", "b.mxf")
	runner := newGatedRunner(0)
	m := queue.NewManager(context.Background(), runner, nil, nil)
	if _, _, err := m.Submit(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, runner)
	m.Reset()
	if got := m.Snapshot().Outstanding; got != 0 {
		t.Fatalf("outstanding = %d", got)
	}
	m.Decrement()
	if got := m.Snapshot().Outstanding; got != 0 {
		t.Fatalf("decrement below zero: %d", got)
	}
	runner.release <- struct{}{}
	_ = m.Wait(context.Background())
}

func TestSlowEstimateDoesNotBlockManager(t *testing.T) {
	root := t.TempDir()
	dir := makeSource(t, root, "SLOW", "a.mxf")
	entered := make(chan struct{})
	unblock := make(chan struct{})
	runner := newGatedRunner(0)
	m := queue.NewManager(context.Background(), runner, nil, nil, queue.WithEstimator(func(string) int {
		close(entered)
		<-unblock
		return 1
	}))

	submitted := make(chan error, 1)
	go func() {
		_, _, err := m.Submit(context.Background(), dir)
		submitted <- err
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		m.Decrement()
		_ = m.Snapshot()
		_ = m.Idle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager locked while a submission was being estimated")
	}

	close(unblock)
	if err := <-submitted; err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().Outstanding; got != 1 {
		t.Fatalf("outstanding = %d", got)
	}
	waitStarted(t, runner)
	runner.release <- struct{}{}
	_ = m.Wait(context.Background())
}

func TestSubmitRejectsMissingSource(t *testing.T) {
	m := queue.NewManager(context.Background(), newGatedRunner(0), nil, nil)
	_, ok, err := m.Submit(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if ok || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Submit = %v, %v", ok, err)
	}
	if _, _, err := m.Submit(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty source error = %v", err)
	}
	if !m.Idle() {
		t.Fatal("rejected submissions must not queue")
	}
}

func TestCancelledManagerStopsAdvancing(t *testing.T) {
	root := t.TempDir()
	a := makeSource(t, root, "A", "1.mxf")
	b := makeSource(t, root, "B", "1.mxf")
	ctx, cancel := context.WithCancel(context.Background())
	runner := newGatedRunner(0)
	m := queue.NewManager(ctx, runner, nil, nil)

	if _, _, err := m.Submit(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, runner)
	if _, _, err := m.Submit(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	cancel()
	runner.release <- struct{}{}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.order) != 1 {
		t.Fatalf("queued job started after cancel: %v", runner.order)
	}
	if _, _, err := m.Submit(context.Background(), a); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("submit after cancel = %v", err)
	}
}

func TestResultHookRunsBeforeNextBatch(t *testing.T) {
	root := t.TempDir()
	a := makeSource(t, root, "A", "1.mxf")
	var mu sync.Mutex
	var results []pipeline.Result
	runner := newGatedRunner(0)
	m := queue.NewManager(context.Background(), runner, nil, nil, queue.WithResultHook(func(r pipeline.Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))
	if _, _, err := m.Submit(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	runner.release <- struct{}{}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0].Status != pipeline.BatchCompleted {
		t.Fatalf("results = %+v", results)
	}
	if last := m.Snapshot().Last; last == nil || last.Source != results[0].Source {
		t.Fatalf("snapshot last = %+v", last)
	}
}
