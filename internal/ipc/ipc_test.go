package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mxf2proxy/internal/daemon"
	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/testsupport"
)

type gatedRunner struct {
	started chan string
	release chan struct{}
	once    sync.Once
}

func (r *gatedRunner) Run(ctx context.Context, job pipeline.Job, _ pipeline.Tracker) pipeline.Result {
	r.started <- job.Source
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return pipeline.Result{JobID: job.ID, Source: job.Source, Status: pipeline.BatchCompleted}
}

func (r *gatedRunner) open() {
	r.once.Do(func() { close(r.release) })
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	runner := &gatedRunner{started: make(chan string, 4), release: make(chan struct{})}
	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger, daemon.Components{Runner: runner, LogPath: logPath})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		runner.open()
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.LogDir, "mxf2proxy.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}

	card := testsupport.MakeCard(t, filepath.Join(testsupport.BaseDir(cfg), "CARD_A"), "A001C001.mxf", "A001C002.mxf")
	added, err := client.Submit(card)
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	if !added.Added || added.Job.Source != card || added.Job.Estimate != 2 {
		t.Fatalf("unexpected submit response %+v", added)
	}
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not start")
	}

	dup, err := client.Submit(card + "/")
	if err != nil {
		t.Fatalf("duplicate Submit failed: %v", err)
	}
	if dup.Added {
		t.Fatal("expected duplicate submit to be a no-op")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Active == nil || status.Active.Source != card || len(status.Queued) != 0 {
		t.Fatalf("expected card to be active, got %+v", status)
	}
	if status.Outstanding != 2 {
		t.Fatalf("outstanding = %d, want 2", status.Outstanding)
	}

	if _, err := client.Submit(filepath.Join(testsupport.BaseDir(cfg), "missing")); err == nil {
		t.Fatal("expected missing source to be rejected")
	}

	prompts, err := client.Prompts()
	if err != nil {
		t.Fatalf("Prompts RPC failed: %v", err)
	}
	if len(prompts.Prompts) != 0 {
		t.Fatalf("expected no prompts, got %+v", prompts.Prompts)
	}
	if _, err := client.Answer(ipc.AnswerRequest{ID: "nope", Answer: prompt.Answer{Verdict: prompt.VerdictSkip}}); err == nil {
		t.Fatal("expected answer without broker to fail")
	}
	if _, err := client.Answer(ipc.AnswerRequest{ID: "nope", Answer: prompt.Answer{Verdict: "sideways"}}); err == nil {
		t.Fatal("expected invalid verdict to fail")
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	_, _ = f.WriteString("fourth\n")
	_ = f.Close()

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notify.Sent {
		t.Fatal("expected no notification without a topic")
	}

	runner.open()
}

func TestDialWithoutServer(t *testing.T) {
	if _, err := ipc.Dial(filepath.Join(t.TempDir(), "absent.sock")); err == nil {
		t.Fatal("expected dial error")
	}
}
