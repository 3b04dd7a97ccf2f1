package pipeline_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"mxf2proxy/internal/pipeline"
)

func TestConversionLogAppendsTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	log := pipeline.NewConversionLog(dir)
	if _, err := os.Stat(log.Path()); !os.IsNotExist(err) {
		t.Fatal("log must not exist before the first line")
	}
	if err := log.Printf("Using ffmpeg at: %s", "/usr/bin/ffmpeg"); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	if err := log.Printf("FAILED: %s", "a.mxf"); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	data, err := os.ReadFile(log.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	stamp := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)
	for _, line := range lines {
		if !stamp.MatchString(line) {
			t.Fatalf("line without timestamp: %q", line)
		}
	}
	if !strings.HasSuffix(lines[1], "FAILED: a.mxf") {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestConversionLogMissingDirectory(t *testing.T) {
	log := pipeline.NewConversionLog("/nonexistent/dest")
	if err := log.Printf("x"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
