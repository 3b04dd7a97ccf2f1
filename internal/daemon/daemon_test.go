package daemon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mxf2proxy/internal/daemon"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/testsupport"
)

type recordingRunner struct {
	mu   sync.Mutex
	jobs []pipeline.Job
	done chan struct{}
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{done: make(chan struct{}, 8)}
}

func (r *recordingRunner) Run(_ context.Context, job pipeline.Job, tracker pipeline.Tracker) pipeline.Result {
	tracker.SetStatus("encoding to: /dev/null")
	tracker.Decrement()
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	r.done <- struct{}{}
	return pipeline.Result{JobID: job.ID, Source: job.Source, Status: pipeline.BatchCompleted}
}

func newDaemon(t *testing.T, runner *recordingRunner) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	d, err := daemon.New(cfg, logging.NewNop(), daemon.Components{Runner: runner})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t, newRecordingRunner())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.CardMonitor {
		t.Fatal("card monitor should be off when ingest is disabled")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	first, err := daemon.New(cfg, logging.NewNop(), daemon.Components{Runner: newRecordingRunner()})
	if err != nil {
		t.Fatal(err)
	}
	second, err := daemon.New(cfg, logging.NewNop(), daemon.Components{Runner: newRecordingRunner()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = first.Close()
		_ = second.Close()
	})

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock conflict")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestDaemonSubmitRequiresRunning(t *testing.T) {
	d := newDaemon(t, newRecordingRunner())
	_, _, err := d.Submit(context.Background(), t.TempDir())
	if !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestDaemonSubmitRunsBatch(t *testing.T) {
	runner := newRecordingRunner()
	d := newDaemon(t, runner)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	card := testsupport.MakeCard(t, t.TempDir(), "A001C001.mxf")
	job, added, err := d.Submit(ctx, card)
	if err != nil || !added {
		t.Fatalf("Submit = %+v, %v, %v", job, added, err)
	}

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never ran")
	}

	d.Stop()
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.jobs) != 1 || runner.jobs[0].Source != card {
		t.Fatalf("unexpected jobs %+v", runner.jobs)
	}
}

func TestDaemonPromptsWithoutBroker(t *testing.T) {
	d := newDaemon(t, newRecordingRunner())
	if got := d.Prompts(); len(got) != 0 {
		t.Fatalf("expected no prompts, got %+v", got)
	}
	if err := d.Answer("p1", prompt.Answer{Verdict: prompt.VerdictSkip}); err == nil {
		t.Fatal("expected error answering without a broker")
	}
}

func TestDaemonHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)
	if err := store.StartJob(ctx, history.JobRecord{ID: "j1", Source: "/cards/A", ClipsTotal: 2, StartedAt: started}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if err := store.RecordClip(ctx, history.ClipRecord{JobID: "j1", Index: 1, Source: "/cards/A/a.mxf", Output: "/out/a.mov", Outcome: "converted", FinishedAt: started}); err != nil {
		t.Fatalf("RecordClip: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop(), daemon.Components{Runner: newRecordingRunner(), History: store})
	if err != nil {
		t.Fatal(err)
	}

	jobs, err := d.History(ctx, 10)
	if err != nil || len(jobs) != 1 || jobs[0].ID != "j1" {
		t.Fatalf("History = %+v, %v", jobs, err)
	}
	job, clips, err := d.JobClips(ctx, "j1")
	if err != nil || job.Source != "/cards/A" || len(clips) != 1 {
		t.Fatalf("JobClips = %+v %+v %v", job, clips, err)
	}
	if _, _, err := d.JobClips(ctx, "missing"); err == nil {
		t.Fatal("expected not found for unknown job")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t, newRecordingRunner())
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("TestNotification = %v %q %v", sent, message, err)
	}
}
