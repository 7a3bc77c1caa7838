package metadata_test

import (
	"errors"
	"testing"

	"phono/internal/metadata"
)

func TestExtractNormalizesFields(t *testing.T) {
	frag, err := metadata.Extract(metadata.Raw{
		Title:        "  Blue   in Green ",
		Artist:       "Miles Davis",
		TrackNum:     3,
		DurationSecs: 337.5,
		Bitrate:      320,
		SampleRate:   44100,
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if frag.Title == nil || *frag.Title != "Blue in Green" {
		t.Fatalf("unexpected title: %v", frag.Title)
	}
	if frag.Artist == nil || *frag.Artist != "Miles Davis" {
		t.Fatalf("unexpected artist: %v", frag.Artist)
	}
	if frag.Album != nil {
		t.Fatal("absent album must stay nil")
	}
	if frag.TrackNum == nil || *frag.TrackNum != 3 {
		t.Fatalf("unexpected track number: %v", frag.TrackNum)
	}
	if frag.DurationSecs != 337.5 || frag.Bitrate != 320 || frag.SampleRate != 44100 {
		t.Fatalf("audio properties not carried over: %+v", frag)
	}
}

func TestExtractDistinguishesAbsentFromEmpty(t *testing.T) {
	frag, err := metadata.Extract(metadata.Raw{Title: "   ", Artist: "Someone", DurationSecs: 10})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if frag.Title != nil {
		t.Fatal("whitespace-only title must normalize to absent")
	}
}

func TestExtractAppliesNFC(t *testing.T) {
	// 'e' plus combining acute must normalize to the precomposed character.
	frag, err := metadata.Extract(metadata.Raw{Title: "Cafe\u0301", DurationSecs: 5})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if frag.Title == nil || *frag.Title != "Café" {
		t.Fatalf("expected NFC-normalized title, got %q", *frag.Title)
	}
}

func TestExtractFailsOnNothingUsable(t *testing.T) {
	_, err := metadata.Extract(metadata.Raw{})
	if !errors.Is(err, metadata.ErrUnreadableMetadata) {
		t.Fatalf("expected ErrUnreadableMetadata, got %v", err)
	}
}

func TestExtractZeroTrackNumberIsAbsent(t *testing.T) {
	frag, err := metadata.Extract(metadata.Raw{Title: "x", TrackNum: 0, DurationSecs: 1})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if frag.TrackNum != nil {
		t.Fatal("track number zero must stay absent")
	}
}
