package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mxf2proxy/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "mxf2proxy")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Output.Format != config.FormatMOV {
		t.Fatalf("expected mov default, got %q", cfg.Output.Format)
	}
	if cfg.Encoder.WidthThreshold != 4096 {
		t.Fatalf("unexpected width threshold: %d", cfg.Encoder.WidthThreshold)
	}
	if cfg.Prompts.Duplicate != config.DuplicateSkip {
		t.Fatalf("unexpected duplicate policy: %q", cfg.Prompts.Duplicate)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "mxf2proxy.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"output":    map[string]any{"format": "MXF"},
		"lut":       map[string]any{"enabled": true, "dir": "~/luts", "file": "look.cube"},
		"watermark": map[string]any{"enabled": true, "mode": "custom", "custom_text": "DRAFT"},
		"prompts":   map[string]any{"duplicate": "overwrite"},
		"api":       map[string]any{"allowed_origins": []string{" http://localhost:5173 ", ""}},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Output.Format != config.FormatMXF {
		t.Fatalf("expected lowercase mxf, got %q", cfg.Output.Format)
	}
	if want := filepath.Join(tempHome, "luts", "look.cube"); cfg.LUTPath() != want {
		t.Fatalf("LUTPath = %q, want %q", cfg.LUTPath(), want)
	}
	if cfg.Watermark.CustomText != "DRAFT" {
		t.Fatalf("unexpected custom text: %q", cfg.Watermark.CustomText)
	}
	if len(cfg.API.AllowedOrigins) != 1 || cfg.API.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins: %v", cfg.API.AllowedOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Output.Format = "mkv" }, "output.format"},
		{"lut without file", func(c *config.Config) { c.LUT.Enabled = true }, "lut.file"},
		{"default watermark without image", func(c *config.Config) { c.Watermark.Enabled = true }, "watermark.image"},
		{"custom text too long", func(c *config.Config) {
			c.Watermark.Enabled = true
			c.Watermark.Mode = config.WatermarkModeCustom
			c.Watermark.CustomText = strings.Repeat("x", 49)
		}, "watermark.custom_text"},
		{"duplicate policy", func(c *config.Config) { c.Prompts.Duplicate = "ask" }, "prompts.duplicate"},
		{"fixed destination without dir", func(c *config.Config) { c.Prompts.Destination = config.DestinationFixed }, "prompts.destination_dir"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateCustomTextCountsRunes(t *testing.T) {
	if err := config.ValidateCustomText(strings.Repeat("é", 48)); err != nil {
		t.Fatalf("expected 48 runes to pass, got %v", err)
	}
	if err := config.ValidateCustomText("   "); err == nil {
		t.Fatal("expected blank text to fail")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
}
