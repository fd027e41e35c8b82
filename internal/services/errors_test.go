package services_test

import (
	"errors"
	"testing"

	"powerplay/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "hero", "generate", "backend unreachable", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "overlay", "compose", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestWrapNoOutputDistinguishable(t *testing.T) {
	err := services.Wrap(services.ErrNoOutput, "overlay", "veo", "backend returned no video", nil)
	if !errors.Is(err, services.ErrNoOutput) {
		t.Fatalf("expected no-output marker, got %v", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("markers must not overlap: %v", err)
	}
}
