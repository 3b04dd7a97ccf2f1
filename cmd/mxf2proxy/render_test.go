package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prompt"
)

func TestRenderResultsTotals(t *testing.T) {
	out := renderResults([]pipeline.Result{
		{Source: "/cards/CARD_A", Status: pipeline.BatchCompleted, Succeeded: 3, Skipped: 1, Destination: "/proxies/A"},
		{Source: "/cards/CARD_B", Status: pipeline.BatchAborted, Succeeded: 1, Failed: 2, Destination: "/proxies/B"},
	})
	for _, want := range []string{"CARD_A", "CARD_B", "completed", "aborted", "/proxies/B"} {
		requireContains(t, out, want)
	}
	var footer string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToUpper(line), "TOTAL") {
			footer = line
		}
	}
	if footer == "" {
		t.Fatalf("missing footer:\n%s", out)
	}
	fields := strings.FieldsFunc(footer, func(r rune) bool { return r == '|' || r == '│' || r == ' ' })
	if got := strings.Join(fields, " "); !strings.Contains(got, "4 2 1") {
		t.Fatalf("footer = %q, want totals 4 2 1", got)
	}
}

func TestRenderPrompts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	out := renderPrompts([]prompt.Pending{
		{
			ID:        "p-dup",
			Kind:      prompt.KindDuplicate,
			Output:    "/proxies/A/A001C002.mov",
			ClipIndex: 1,
			ClipCount: 4,
			Created:   now.Add(-30 * time.Second),
		},
		{
			ID:      "p-dest",
			Kind:    prompt.KindDestination,
			Source:  "/cards/CARD_A",
			Default: "/proxies/CARD_A",
			Created: now.Add(-5 * time.Second),
		},
	}, now)

	requireContains(t, out, "A001C002.mov exists (clip 2 of 4)")
	requireContains(t, out, "destination for CARD_A [/proxies/CARD_A]")
	requireContains(t, out, "30s")
	requireContains(t, out, "custom <dir>")
}

func TestBuildAnswer(t *testing.T) {
	cwd, err := filepath.Abs(".")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		kind    prompt.Kind
		args    []string
		want    prompt.Answer
		wantErr bool
	}{
		{"verdict", prompt.KindDuplicate, []string{"overwrite"}, prompt.Answer{Verdict: prompt.VerdictOverwrite}, false},
		{"verdict mixed case", prompt.KindDuplicate, []string{"Skip-All"}, prompt.Answer{Verdict: prompt.VerdictSkipAll}, false},
		{"bad verdict", prompt.KindDuplicate, []string{"later"}, prompt.Answer{}, true},
		{"verdict extra arg", prompt.KindDuplicate, []string{"skip", "now"}, prompt.Answer{}, true},
		{"default", prompt.KindDestination, []string{"default"}, prompt.Answer{Destination: prompt.DestinationDefault}, false},
		{"cancel", prompt.KindDestination, []string{"CANCEL"}, prompt.Answer{Destination: prompt.DestinationCancel}, false},
		{"custom relative", prompt.KindDestination, []string{"custom", "proxies"}, prompt.Answer{Destination: prompt.DestinationCustom, Path: filepath.Join(cwd, "proxies")}, false},
		{"custom without dir", prompt.KindDestination, []string{"custom"}, prompt.Answer{}, true},
		{"unknown destination", prompt.KindDestination, []string{"elsewhere"}, prompt.Answer{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildAnswer(tc.kind, tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildAnswer: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClipCount(t *testing.T) {
	if got := clipCount(1); got != "1 clip" {
		t.Fatalf("clipCount(1) = %q", got)
	}
	if got := clipCount(3); got != "3 clips" {
		t.Fatalf("clipCount(3) = %q", got)
	}
}

func TestRenderStatusLineColumns(t *testing.T) {
	tests := []struct {
		kind    statusKind
		message string
		want    string
	}{
		{statusOK, "running (pid 7)", "  Daemon:                ok    running (pid 7)"},
		{statusWarn, "", "  Daemon:                warn"},
		{statusError, "missing", "  Daemon:                error missing"},
	}
	for _, tt := range tests {
		if got := renderStatusLine("Daemon", tt.kind, tt.message, false); got != tt.want {
			t.Fatalf("renderStatusLine(%s) = %q, want %q", tt.kind.word, got, tt.want)
		}
	}
	header := renderSectionHeader(" Queue Status ", false)
	if header[0] != "Queue Status" || header[1] != strings.Repeat("=", len("Queue Status")) {
		t.Fatalf("unexpected header %q", header)
	}
}
