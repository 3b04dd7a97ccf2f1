package services_test

import (
	"errors"
	"strings"
	"testing"

	"mxf2proxy/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConfiguration, "encode", "remux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encode", "remux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if err.Error() != "transient failure" {
		t.Fatalf("expected bare marker text, got %q", err.Error())
	}
}

func TestWrapExposesClassifiedError(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, " queue ", "submit", "/cards/A001", nil)
	var classified *services.Error
	if !errors.As(err, &classified) {
		t.Fatalf("expected *services.Error, got %T", err)
	}
	if classified.Stage != "queue" || classified.Op != "submit" {
		t.Fatalf("unexpected location %q/%q", classified.Stage, classified.Op)
	}
	if got, want := err.Error(), "not found in queue/submit: /cards/A001"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
