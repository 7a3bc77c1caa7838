package sidecar_test

import (
	"strings"
	"testing"

	"phono/internal/sidecar"
)

const samplePlaycounts = "182.5\tBand\tArterial\tAlpha\tmusic/a.mp3\n" +
	"90\tBand\tArterial\tBeta\tmusic/b.mp3\n"

func TestParsePlaycounts(t *testing.T) {
	entries, err := sidecar.ParsePlaycounts(strings.NewReader(samplePlaycounts))
	if err != nil {
		t.Fatalf("ParsePlaycounts failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first.Seconds != 182.5 || first.Artist != "Band" || first.Album != "Arterial" || first.Title != "Alpha" || first.Path != "music/a.mp3" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
}

func TestParsePlaycountsRejectsMalformedRow(t *testing.T) {
	if _, err := sidecar.ParsePlaycounts(strings.NewReader("90\tonly\ttwo\tfields\n")); err == nil {
		t.Fatal("expected error for short row")
	}
	if _, err := sidecar.ParsePlaycounts(strings.NewReader("x\ta\tb\tc\td\n")); err == nil {
		t.Fatal("expected error for non-numeric seconds")
	}
}

func TestPlaycountRoundTripWithRewrite(t *testing.T) {
	entries, err := sidecar.ParsePlaycounts(strings.NewReader(samplePlaycounts))
	if err != nil {
		t.Fatalf("ParsePlaycounts failed: %v", err)
	}
	changed := sidecar.RewritePlaycountPaths(entries, map[string]string{"music/b.mp3": "music/new/b.mp3"})
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}

	var out strings.Builder
	if err := sidecar.WritePlaycounts(&out, entries); err != nil {
		t.Fatalf("WritePlaycounts failed: %v", err)
	}
	want := "182.5\tBand\tArterial\tAlpha\tmusic/a.mp3\n" +
		"90\tBand\tArterial\tBeta\tmusic/new/b.mp3\n"
	if out.String() != want {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", out.String(), want)
	}
}
