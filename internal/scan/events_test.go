package scan_test

import (
	"testing"

	"phono/internal/scan"
)

func TestEventsFromListing(t *testing.T) {
	indexed := []string{"a.wav", "b.wav", "gone.wav"}
	found := []string{"a.wav", "b.wav", "b.wav", "new.wav"}

	events := scan.EventsFromListing(indexed, found)

	got := make(map[string]scan.Kind, len(events))
	for _, ev := range events {
		if prev, dup := got[ev.Path]; dup {
			t.Fatalf("duplicate event for %s: %s and %s", ev.Path, prev, ev.Kind)
		}
		got[ev.Path] = ev.Kind
	}
	want := map[string]scan.Kind{
		"a.wav":    scan.KindModified,
		"b.wav":    scan.KindModified,
		"new.wav":  scan.KindAdded,
		"gone.wav": scan.KindRemoved,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(got), len(want), got)
	}
	for path, kind := range want {
		if got[path] != kind {
			t.Fatalf("event for %s = %s, want %s", path, got[path], kind)
		}
	}
}

func TestEventsFromListingEmpty(t *testing.T) {
	if events := scan.EventsFromListing(nil, nil); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}
