package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/settings"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()
	lut := filepath.Join(dir, "rec709.cube")
	if err := os.WriteFile(lut, []byte("LUT_3D_SIZE 33\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"readable", lut, true},
		{"missing", filepath.Join(dir, "missing.cube"), false},
		{"directory", dir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckFileReadable("LUT", tt.path); got.Passed != tt.want {
				t.Fatalf("Passed = %v, want %v (%s)", got.Passed, tt.want, got.Detail)
			}
		})
	}
}

func TestCheckRedis_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot reserve a port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	result := CheckRedis(context.Background(), config.Events{RedisAddr: addr})
	if result.Passed {
		t.Fatal("expected failure for closed port")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, settings.Snapshot{})
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func minimalConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Events.RedisAddr = ""
	return &cfg
}

func TestRunAll_MinimalConfig(t *testing.T) {
	results := RunAll(context.Background(), minimalConfig(t), settings.Snapshot{})
	// state + log directory checks
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_FollowsPreferences(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Prompts.Destination = config.DestinationFixed
	cfg.Prompts.DestinationDir = t.TempDir()
	snap := settings.Snapshot{
		LUTEnabled:       true,
		LUTPath:          filepath.Join(t.TempDir(), "missing.cube"),
		WatermarkEnabled: true,
		WatermarkMode:    config.WatermarkModeDefault,
		WatermarkImage:   filepath.Join(t.TempDir(), "logo.png"),
	}

	results := RunAll(context.Background(), cfg, snap)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = r.Passed
	}
	for _, want := range []string{"Destination directory", "LUT", "Watermark image"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected %q check in %+v", want, results)
		}
	}
	if !names["Destination directory"] {
		t.Fatal("destination check should pass")
	}
	if len(Failed(results)) != 2 {
		t.Fatalf("expected LUT and image failures, got %+v", Failed(results))
	}

	snap.LUTEnabled = false
	snap.WatermarkEnabled = false
	if got := RunAll(context.Background(), cfg, snap); len(got) != 3 {
		t.Fatalf("disabled toggles should skip checks, got %+v", got)
	}
}
