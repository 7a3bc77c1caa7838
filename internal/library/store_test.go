package library_test

import (
	"context"
	"testing"
	"time"

	"phono/internal/library"
	"phono/internal/testsupport"
)

func strptr(value string) *string { return &value }

func newTrack(t *testing.T, path string, freq float64) library.NewTrack {
	t.Helper()
	return library.NewTrack{
		Track: library.Track{
			Path:            path,
			Fingerprint:     testsupport.Signature(t, []float64{freq}, 3, 8000),
			Title:           strptr("Title " + path),
			DurationSecs:    180,
			Bitrate:         320,
			SampleRate:      44100,
			GenerationAdded: 1,
			ScannedAt:       time.Now().UTC(),
		},
		CanonicalRef: library.RefSelf,
	}
}

func TestApplyPassInsertsAndBumpsGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	generation, ids, err := store.ApplyPass(ctx, library.PassDelta{
		Adds: []library.NewTrack{newTrack(t, "a.mp3", 440), newTrack(t, "b.mp3", 900)},
	})
	if err != nil {
		t.Fatalf("ApplyPass failed: %v", err)
	}
	if generation != 1 {
		t.Fatalf("expected generation 1, got %d", generation)
	}
	if len(ids) != 2 || ids[0] == 0 || ids[1] == 0 {
		t.Fatalf("expected assigned ids, got %v", ids)
	}

	track, err := store.GetByPath(ctx, "a.mp3")
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}
	if track == nil || !track.IsCanonical() {
		t.Fatalf("expected canonical track, got %#v", track)
	}
	if track.Title == nil || *track.Title != "Title a.mp3" {
		t.Fatalf("unexpected title: %v", track.Title)
	}
}

func TestApplyPassEmptyDeltaKeepsGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, _, err := store.ApplyPass(ctx, library.PassDelta{Adds: []library.NewTrack{newTrack(t, "a.mp3", 440)}}); err != nil {
		t.Fatalf("ApplyPass failed: %v", err)
	}

	generation, ids, err := store.ApplyPass(ctx, library.PassDelta{})
	if err != nil {
		t.Fatalf("empty ApplyPass failed: %v", err)
	}
	if generation != 1 {
		t.Fatalf("empty delta must not bump generation, got %d", generation)
	}
	if len(ids) != 0 {
		t.Fatalf("unexpected assigned ids: %v", ids)
	}
}

func TestApplyPassCanonicalRefsAcrossAdds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	canonical := newTrack(t, "song.flac", 440)
	duplicate := newTrack(t, "song-copy.mp3", 440)
	duplicate.CanonicalRef = library.RefAdd(0)

	_, ids, err := store.ApplyPass(ctx, library.PassDelta{Adds: []library.NewTrack{canonical, duplicate}})
	if err != nil {
		t.Fatalf("ApplyPass failed: %v", err)
	}

	dup, err := store.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if dup.IsCanonical() {
		t.Fatal("duplicate must not be canonical")
	}
	if dup.CanonicalID != ids[0] {
		t.Fatalf("duplicate canonical id = %d, want %d", dup.CanonicalID, ids[0])
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := snap.Duplicates[ids[0]]; len(got) != 1 || got[0] != ids[1] {
		t.Fatalf("unexpected duplicates map: %v", snap.Duplicates)
	}
}

func TestApplyPassUpdatesAndRemoves(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, ids, err := store.ApplyPass(ctx, library.PassDelta{
		Adds: []library.NewTrack{newTrack(t, "keep.mp3", 440), newTrack(t, "drop.mp3", 900)},
	})
	if err != nil {
		t.Fatalf("ApplyPass failed: %v", err)
	}

	keep, err := store.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	keep.Path = "moved/keep.mp3"

	generation, _, err := store.ApplyPass(ctx, library.PassDelta{
		Updates: []library.TrackUpdate{{Track: *keep, CanonicalRef: keep.CanonicalID}},
		Removes: []int64{ids[1]},
	})
	if err != nil {
		t.Fatalf("second ApplyPass failed: %v", err)
	}
	if generation != 2 {
		t.Fatalf("expected generation 2, got %d", generation)
	}

	moved, err := store.GetByPath(ctx, "moved/keep.mp3")
	if err != nil || moved == nil || moved.ID != ids[0] {
		t.Fatalf("expected moved track with preserved id, got %#v err %v", moved, err)
	}
	gone, err := store.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if gone != nil {
		t.Fatal("removed track still present")
	}
}

func TestResetClearsEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, _, err := store.ApplyPass(ctx, library.PassDelta{Adds: []library.NewTrack{newTrack(t, "a.mp3", 440)}}); err != nil {
		t.Fatalf("ApplyPass failed: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	generation, err := store.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if generation != 0 {
		t.Fatalf("expected generation 0 after reset, got %d", generation)
	}
	tracks, err := store.Tracks(ctx)
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected empty library, got %d tracks", len(tracks))
	}
}
