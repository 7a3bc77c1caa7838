package sidecar_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phono/internal/scan"
	"phono/internal/sidecar"
	"phono/internal/testsupport"
)

func TestPassEditsComposesMoveThenMerge(t *testing.T) {
	summary := &scan.Summary{
		Moves:       map[string]string{"old/a.mp3": "new/a.mp3"},
		MergedPaths: map[string]string{"new/a.mp3": "best/a.flac", "copy.mp3": "best/a.flac"},
	}
	edits := sidecar.PassEdits(summary)
	if edits["old/a.mp3"] != "best/a.flac" {
		t.Fatalf("moved-then-merged path maps to %q, want best/a.flac", edits["old/a.mp3"])
	}
	if edits["copy.mp3"] != "best/a.flac" {
		t.Fatalf("merged path maps to %q, want best/a.flac", edits["copy.mp3"])
	}
	if edits["new/a.mp3"] != "best/a.flac" {
		t.Fatalf("intermediate path maps to %q, want best/a.flac", edits["new/a.mp3"])
	}
}

func TestRewriterAppliesEditsToSidecars(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, dir := range []string{cfg.Paths.PlaylistDir, cfg.Paths.PlaycountDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	playlistPath := filepath.Join(cfg.Paths.PlaylistDir, "mix.m3u")
	if err := os.WriteFile(playlistPath, []byte("#EXTM3U\nold/a.mp3\nkeep.mp3\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}
	countPath := filepath.Join(cfg.Paths.PlaycountDir, "2026.tsv")
	if err := os.WriteFile(countPath, []byte("60\tBand\tLP\tAlpha\told/a.mp3\n"), 0o644); err != nil {
		t.Fatalf("write playcounts: %v", err)
	}

	rewriter := sidecar.NewRewriter(cfg, nil)
	err := rewriter.Apply(&scan.Summary{
		Moves:       map[string]string{"old/a.mp3": "new/a.mp3"},
		MergedPaths: map[string]string{},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	playlist, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if got := string(playlist); got != "#EXTM3U\nnew/a.mp3\nkeep.mp3\n" {
		t.Fatalf("unexpected playlist:\n%s", got)
	}

	counts, err := os.ReadFile(countPath)
	if err != nil {
		t.Fatalf("read playcounts: %v", err)
	}
	if !strings.Contains(string(counts), "\tnew/a.mp3\n") {
		t.Fatalf("playcount path not rewritten:\n%s", counts)
	}
}

func TestRewriterPrunesEntriesCollapsedByMerge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.PlaylistDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	playlistPath := filepath.Join(cfg.Paths.PlaylistDir, "mix.m3u")
	if err := os.WriteFile(playlistPath, []byte("#EXTM3U\na.flac\na_copy.flac\nkeep.flac\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}

	rewriter := sidecar.NewRewriter(cfg, nil)
	err := rewriter.Apply(&scan.Summary{
		Moves:       map[string]string{},
		MergedPaths: map[string]string{"a_copy.flac": "a.flac"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	playlist, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if got := string(playlist); got != "#EXTM3U\na.flac\nkeep.flac\n" {
		t.Fatalf("merged entry not pruned:\n%s", got)
	}
}

func TestRewriterMissingDirectoriesAreFine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rewriter := sidecar.NewRewriter(cfg, nil)
	err := rewriter.Apply(&scan.Summary{
		Moves:       map[string]string{"a": "b"},
		MergedPaths: map[string]string{},
	})
	if err != nil {
		t.Fatalf("Apply failed on missing dirs: %v", err)
	}
}
