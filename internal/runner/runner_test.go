package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/runner"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunAppendsCombinedOutput(t *testing.T) {
	script := writeScript(t, "echo \"out $1\"\necho \"err $1\" >&2\nexit 3\n")
	logPath := filepath.Join(t.TempDir(), "conversion_log.txt")
	if err := os.WriteFile(logPath, []byte("existing line\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	r := runner.New(logging.NewNop())
	code := r.Run(context.Background(), script, []string{"clip"}, logPath)
	if code != 3 {
		t.Fatalf("expected exit 3, got %d", code)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(content)
	if !strings.HasPrefix(text, "existing line\n") {
		t.Fatalf("log was truncated: %q", text)
	}
	for _, want := range []string{"out clip", "err clip"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in log, got %q", want, text)
		}
	}
}

func TestRunCreatesMissingLog(t *testing.T) {
	script := writeScript(t, "echo hello\n")
	logPath := filepath.Join(t.TempDir(), "new.log")
	if code := runner.New(nil).Run(context.Background(), script, nil, logPath); code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log to be created: %v", err)
	}
}

func TestRunMissingExecutable(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "log.txt")
	r := runner.New(nil)
	if code := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, logPath); code != runner.ExitLaunchFailure {
		t.Fatalf("expected launch failure, got %d", code)
	}
	if code := r.Run(context.Background(), "", nil, logPath); code != runner.ExitLaunchFailure {
		t.Fatalf("expected launch failure for empty executable, got %d", code)
	}
}

func TestRunIgnoresContextCancellation(t *testing.T) {
	script := writeScript(t, "sleep 0.2\nexit 0\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if code := runner.New(nil).Run(ctx, script, nil, ""); code != 0 {
		t.Fatalf("in-flight process should run to completion, got %d", code)
	}
}
