package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, "", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("\n[events]\nredis_password = \"hunter2\"\n")
	_ = f.Close()

	out, _, err := runCLI(t, []string{"config", "show"}, "", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("config show leaked the redis password:\n%s", out)
	}
	requireContains(t, out, cfg.Paths.StateDir)
}

func TestPrefsSetAndShow(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"prefs", "set", "watermark.custom_text", "DAILIES", "DAY", "3"}, "", configPath)
	if err != nil {
		t.Fatalf("prefs set: %v", err)
	}
	requireContains(t, out, "watermark.custom_text = DAILIES DAY 3")

	out, _, err = runCLI(t, []string{"prefs", "show"}, "", configPath)
	if err != nil {
		t.Fatalf("prefs show: %v", err)
	}
	requireContains(t, out, "DAILIES DAY 3")

	long := strings.Repeat("x", config.MaxCustomTextLength+1)
	if _, _, err := runCLI(t, []string{"prefs", "set", "watermark.custom_text", long}, "", configPath); err == nil {
		t.Fatal("expected over-long custom text to be rejected")
	}
	if _, _, err := runCLI(t, []string{"prefs", "set", "output.codec", "prores"}, "", configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}
