package services_test

import (
	"errors"
	"testing"

	"phono/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	marker := errors.New("unreadable metadata")
	cause := errors.New("truncated header")

	err := services.Wrap(marker, "extractor", "parse tags", "a.mp3", cause)
	if !errors.Is(err, marker) {
		t.Fatal("expected wrapped error to match marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to match cause")
	}
}

func TestWrapWithoutCause(t *testing.T) {
	marker := errors.New("scan failed")
	err := services.Wrap(marker, "orchestrator", "commit", "", nil)
	if !errors.Is(err, marker) {
		t.Fatal("expected wrapped error to match marker")
	}
	if err.Error() != "scan failed: orchestrator: commit" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
