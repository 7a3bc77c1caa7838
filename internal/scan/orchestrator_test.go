package scan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"phono/internal/decode"
	"phono/internal/fingerprint"
	"phono/internal/library"
	"phono/internal/logging"
	"phono/internal/metadata"
	"phono/internal/scan"
	"phono/internal/testsupport"
)

// fakeFiles backs both collaborator interfaces with in-memory fixtures so
// tests control tags, audio, and per-file failures without real files.
type fakeFiles struct {
	tags  map[string]metadata.Raw
	audio map[string]decode.Audio
	fail  map[string]error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		tags:  make(map[string]metadata.Raw),
		audio: make(map[string]decode.Audio),
		fail:  make(map[string]error),
	}
}

func (f *fakeFiles) add(path string, freqs []float64, raw metadata.Raw) {
	f.tags[path] = raw
	f.audio[path] = decode.Audio{
		Samples:    testsupport.Sine(freqs, 3, 8000),
		SampleRate: 8000,
	}
}

func (f *fakeFiles) ReadTags(path string) (metadata.Raw, error) {
	if err := f.fail[path]; err != nil {
		return metadata.Raw{}, err
	}
	raw, ok := f.tags[path]
	if !ok {
		return metadata.Raw{}, fmt.Errorf("%w: no fixture for %s", metadata.ErrUnreadableMetadata, path)
	}
	return raw, nil
}

func (f *fakeFiles) Decode(path string) (decode.Audio, error) {
	if err := f.fail[path]; err != nil {
		return decode.Audio{}, err
	}
	audio, ok := f.audio[path]
	if !ok {
		return decode.Audio{}, fmt.Errorf("%w: no fixture for %s", fingerprint.ErrFingerprintUnavailable, path)
	}
	return audio, nil
}

func newFixture(t *testing.T) (*scan.Orchestrator, *fakeFiles, *library.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files := newFakeFiles()
	orch := scan.NewOrchestrator(cfg, store, logging.NewNop(), files, files)
	return orch, files, store
}

func runPass(t *testing.T, orch *scan.Orchestrator, events []scan.Event) *scan.Summary {
	t.Helper()
	summary, err := orch.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return summary
}

func added(paths ...string) []scan.Event {
	events := make([]scan.Event, 0, len(paths))
	for _, path := range paths {
		events = append(events, scan.Event{Kind: scan.KindAdded, Path: path})
	}
	return events
}

func TestRunAddsNewFiles(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Alpha", Bitrate: 320})
	files.add("b.wav", []float64{2000, 3100}, metadata.Raw{Title: "Beta", Bitrate: 320})

	summary := runPass(t, orch, added("a.wav", "b.wav"))
	if summary.Generation != 1 {
		t.Fatalf("generation = %d, want 1", summary.Generation)
	}
	if summary.Added != 2 || summary.Merged != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	ctx := context.Background()
	for _, path := range []string{"a.wav", "b.wav"} {
		track, err := store.GetByPath(ctx, path)
		if err != nil || track == nil {
			t.Fatalf("GetByPath(%s): %v %v", path, track, err)
		}
		if !track.IsCanonical() {
			t.Fatalf("%s should be canonical, got canonical id %d", path, track.CanonicalID)
		}
	}
}

func TestRunClustersDuplicateAddAndMergesMetadata(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Song", Bitrate: 320})
	runPass(t, orch, added("a.wav"))

	// Same audio at a lower bitrate, carrying an album tag the original lacks.
	files.add("copy.wav", []float64{300, 450}, metadata.Raw{Title: "Song", Album: "Greatest", Bitrate: 128})
	summary := runPass(t, orch, added("copy.wav"))

	if summary.Generation != 2 {
		t.Fatalf("generation = %d, want 2", summary.Generation)
	}
	if summary.Merged != 1 || summary.Clusters != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := summary.MergedPaths["copy.wav"]; got != "a.wav" {
		t.Fatalf("MergedPaths[copy.wav] = %q, want a.wav", got)
	}

	ctx := context.Background()
	original, err := store.GetByPath(ctx, "a.wav")
	if err != nil || original == nil {
		t.Fatalf("GetByPath(a.wav): %v %v", original, err)
	}
	duplicate, err := store.GetByPath(ctx, "copy.wav")
	if err != nil || duplicate == nil {
		t.Fatalf("GetByPath(copy.wav): %v %v", duplicate, err)
	}
	if !original.IsCanonical() {
		t.Fatal("higher-bitrate original should stay canonical")
	}
	if duplicate.IsCanonical() || duplicate.CanonicalID != original.ID {
		t.Fatalf("duplicate canonical id = %d, want %d", duplicate.CanonicalID, original.ID)
	}
	if original.Album == nil || *original.Album != "Greatest" {
		t.Fatalf("merged album = %v, want Greatest", original.Album)
	}
}

func TestRunUnchangedRescanCommitsNothing(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Alpha", Artist: "Band", Bitrate: 320})
	files.add("b.wav", []float64{2000, 3100}, metadata.Raw{Title: "Beta", Artist: "Band", Bitrate: 320})
	runPass(t, orch, added("a.wav", "b.wav"))

	summary := runPass(t, orch, []scan.Event{
		{Kind: scan.KindModified, Path: "a.wav"},
		{Kind: scan.KindModified, Path: "b.wav"},
	})
	if summary.Generation != 1 {
		t.Fatalf("unchanged rescan bumped generation to %d", summary.Generation)
	}
	if summary.Added != 0 || summary.Updated != 0 || summary.Moved != 0 || summary.Removed != 0 {
		t.Fatalf("unchanged rescan produced changes: %+v", summary)
	}

	generation, err := store.Generation(context.Background())
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if generation != 1 {
		t.Fatalf("stored generation = %d, want 1", generation)
	}
}

func TestRunMovePreservesIdentity(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("b.wav", []float64{2000, 3100}, metadata.Raw{Title: "Beta", Bitrate: 320})
	runPass(t, orch, added("b.wav"))

	before, err := store.GetByPath(context.Background(), "b.wav")
	if err != nil || before == nil {
		t.Fatalf("GetByPath(b.wav): %v %v", before, err)
	}

	files.add("new/b.wav", []float64{2000, 3100}, metadata.Raw{Title: "Beta", Bitrate: 320})
	summary := runPass(t, orch, []scan.Event{
		{Kind: scan.KindRemoved, Path: "b.wav"},
		{Kind: scan.KindAdded, Path: "new/b.wav"},
	})

	if summary.Moved != 1 || summary.Added != 0 || summary.Removed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := summary.Moves["b.wav"]; got != "new/b.wav" {
		t.Fatalf("Moves[b.wav] = %q, want new/b.wav", got)
	}
	if summary.Generation != 2 {
		t.Fatalf("generation = %d, want 2", summary.Generation)
	}

	after, err := store.GetByPath(context.Background(), "new/b.wav")
	if err != nil || after == nil {
		t.Fatalf("GetByPath(new/b.wav): %v %v", after, err)
	}
	if after.ID != before.ID {
		t.Fatalf("move changed id from %d to %d", before.ID, after.ID)
	}
	if after.GenerationAdded != before.GenerationAdded {
		t.Fatalf("move changed generation added from %d to %d", before.GenerationAdded, after.GenerationAdded)
	}
	if gone, err := store.GetByPath(context.Background(), "b.wav"); err != nil || gone != nil {
		t.Fatalf("old path still resolves: %v %v", gone, err)
	}
}

func TestRunRemovalPromotesSurvivingDuplicate(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Song", Bitrate: 320})
	files.add("copy.wav", []float64{300, 450}, metadata.Raw{Title: "Song", Bitrate: 128})
	runPass(t, orch, added("a.wav", "copy.wav"))

	summary := runPass(t, orch, []scan.Event{{Kind: scan.KindRemoved, Path: "a.wav"}})
	if summary.Removed != 1 || summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	survivor, err := store.GetByPath(context.Background(), "copy.wav")
	if err != nil || survivor == nil {
		t.Fatalf("GetByPath(copy.wav): %v %v", survivor, err)
	}
	if !survivor.IsCanonical() {
		t.Fatalf("survivor should be promoted to canonical, got canonical id %d", survivor.CanonicalID)
	}
}

func TestRunPartialFailureStillCommits(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("good.wav", []float64{300, 450}, metadata.Raw{Title: "Good", Bitrate: 320})
	files.fail["bad.wav"] = fmt.Errorf("%w: truncated header", metadata.ErrUnreadableMetadata)

	summary := runPass(t, orch, added("good.wav", "bad.wav"))
	if summary.Added != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Path != "bad.wav" {
		t.Fatalf("unexpected failures: %+v", summary.Failures)
	}
	if !errors.Is(summary.Failures[0].Err, metadata.ErrUnreadableMetadata) {
		t.Fatalf("failure should keep its cause, got %v", summary.Failures[0].Err)
	}

	track, err := store.GetByPath(context.Background(), "good.wav")
	if err != nil || track == nil {
		t.Fatalf("good file not committed: %v %v", track, err)
	}
}

func TestRunTotalFailureLeavesIndexUnchanged(t *testing.T) {
	orch, files, store := newFixture(t)
	files.fail["bad.wav"] = fmt.Errorf("%w: truncated header", metadata.ErrUnreadableMetadata)

	summary, err := orch.Run(context.Background(), added("bad.wav"))
	if !errors.Is(err, scan.ErrScanFailed) {
		t.Fatalf("expected ErrScanFailed, got %v", err)
	}
	if summary == nil || summary.Failed != 1 {
		t.Fatalf("expected failure summary, got %+v", summary)
	}

	generation, err := store.Generation(context.Background())
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if generation != 0 {
		t.Fatalf("failed pass bumped generation to %d", generation)
	}
}

// gatedFiles blocks the first tag read until released, holding a pass open
// mid-flight so tests can observe the running state.
type gatedFiles struct {
	*fakeFiles
	entered  chan struct{}
	released chan struct{}
}

func (g *gatedFiles) ReadTags(path string) (metadata.Raw, error) {
	g.entered <- struct{}{}
	<-g.released
	return g.fakeFiles.ReadTags(path)
}

func TestRunRejectsOverlappingPass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files := newFakeFiles()
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Alpha", Bitrate: 320})
	gated := &gatedFiles{
		fakeFiles: files,
		entered:   make(chan struct{}),
		released:  make(chan struct{}),
	}
	orch := scan.NewOrchestrator(cfg, store, logging.NewNop(), gated, files)

	first := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background(), added("a.wav"))
		first <- err
	}()
	<-gated.entered

	summary, err := orch.Run(context.Background(), added("a.wav"))
	if !errors.Is(err, scan.ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
	if summary != nil {
		t.Fatalf("rejected pass produced a summary: %+v", summary)
	}

	close(gated.released)
	if err := <-first; err != nil {
		t.Fatalf("held pass failed: %v", err)
	}

	generation, err := store.Generation(context.Background())
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if generation != 1 {
		t.Fatalf("stored generation = %d, want 1", generation)
	}
}

func TestRunCancelledBeforeCommitLeavesIndexUnchanged(t *testing.T) {
	orch, files, store := newFixture(t)
	files.add("a.wav", []float64{300, 450}, metadata.Raw{Title: "Alpha", Bitrate: 320})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := orch.Run(ctx, added("a.wav"))
	if !errors.Is(err, scan.ErrScanFailed) {
		t.Fatalf("expected ErrScanFailed, got %v", err)
	}

	generation, err := store.Generation(context.Background())
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if generation != 0 {
		t.Fatalf("cancelled pass bumped generation to %d", generation)
	}
	tracks, err := store.Tracks(context.Background())
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("cancelled pass committed %d tracks", len(tracks))
	}
}
