package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/daemon"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/testsupport"
)

// duplicateRunner asks the broker about one existing proxy per batch and
// records the verdict it received.
type duplicateRunner struct {
	broker   *prompt.Broker
	verdicts chan prompt.Verdict
}

func (r *duplicateRunner) Run(ctx context.Context, job pipeline.Job, tracker pipeline.Tracker) pipeline.Result {
	tracker.SetStatus("waiting on duplicate answer")
	verdict, err := r.broker.ResolveDuplicate(ctx, prompt.DuplicateRequest{
		JobID:     job.ID,
		Source:    job.Source,
		Output:    filepath.Join(job.Source, "A001C001.mov"),
		ClipCount: 1,
	})
	if err != nil {
		return pipeline.Result{JobID: job.ID, Source: job.Source, Status: pipeline.BatchAborted, Err: err}
	}
	r.verdicts <- verdict
	tracker.Decrement()
	return pipeline.Result{JobID: job.ID, Source: job.Source, Status: pipeline.BatchCompleted, Skipped: 1}
}

type cliTestEnv struct {
	cfg        *config.Config
	history    *history.Store
	daemon     *daemon.Daemon
	runner     *duplicateRunner
	socketPath string
	configPath string
	logPath    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI(), testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	logPath := filepath.Join(cfg.Paths.LogDir, "mxf2proxy-test.log")
	if err := os.WriteFile(logPath, []byte("daemon started\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	logger := logging.NewNop()
	store := testsupport.MustOpenHistory(t, cfg)
	broker := prompt.NewBroker(time.Minute, prompt.NewPolicy(cfg), nil, logger)
	runner := &duplicateRunner{broker: broker, verdicts: make(chan prompt.Verdict, 4)}

	d, err := daemon.New(cfg, logger, daemon.Components{
		Runner:  runner,
		Broker:  broker,
		History: store,
		LogPath: logPath,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon Start: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		history:    store,
		daemon:     d,
		runner:     runner,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    logPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nlog_dir = %q\napi_bind = \"\"\n\n[lut]\ndir = %q\n\n[watch]\ncard_ingest = false\n",
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.LUT.Dir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
