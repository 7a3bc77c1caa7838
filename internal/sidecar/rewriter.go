package sidecar

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"phono/internal/config"
	"phono/internal/logging"
	"phono/internal/scan"
)

// Rewriter keeps playlist and playcount sidecar files in step with library
// changes: moved tracks point at their new location, merged duplicates point
// at the canonical file, and playlist entries collapsed onto one path are
// pruned.
type Rewriter struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRewriter builds a rewriter over the configured sidecar directories.
func NewRewriter(cfg *config.Config, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Rewriter{cfg: cfg, logger: logging.WithComponent(logger, "sidecar")}
}

// Apply rewrites all sidecar files for one committed scan pass. Missing
// sidecar directories are fine; nothing to rewrite is not an error.
func (r *Rewriter) Apply(summary *scan.Summary) error {
	edits := PassEdits(summary)
	if len(edits) == 0 {
		return nil
	}
	if err := r.rewritePlaylists(edits); err != nil {
		return err
	}
	return r.rewritePlaycounts(edits)
}

// PassEdits composes a pass's moves and merges into one old-path to new-path
// edit set. A track that moved and then merged in the same pass maps straight
// to its canonical path.
func PassEdits(summary *scan.Summary) map[string]string {
	edits := make(map[string]string, len(summary.Moves)+len(summary.MergedPaths))
	for duplicate, canonical := range summary.MergedPaths {
		edits[duplicate] = canonical
	}
	for old, current := range summary.Moves {
		if canonical, merged := summary.MergedPaths[current]; merged {
			edits[old] = canonical
			continue
		}
		edits[old] = current
	}
	return edits
}

func (r *Rewriter) rewritePlaylists(edits map[string]string) error {
	return r.eachFile(r.cfg.Paths.PlaylistDir, isPlaylist, func(path string) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open playlist: %w", err)
		}
		playlist, err := ParsePlaylist(file)
		file.Close()
		if err != nil {
			return err
		}
		changed := playlist.RewritePaths(edits)
		// A merge can collapse two entries onto the canonical path; keep the
		// first occurrence.
		dropped := playlist.RemoveDuplicates()
		if changed == 0 && dropped == 0 {
			return nil
		}
		if err := writeAtomic(path, playlist.WriteTo); err != nil {
			return err
		}
		r.logger.Info("playlist rewritten",
			logging.String(logging.FieldPath, path),
			logging.Int("entries_changed", changed),
			logging.Int("entries_dropped", dropped),
		)
		return nil
	})
}

func (r *Rewriter) rewritePlaycounts(edits map[string]string) error {
	return r.eachFile(r.cfg.Paths.PlaycountDir, isPlaycount, func(path string) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open playcounts: %w", err)
		}
		entries, err := ParsePlaycounts(file)
		file.Close()
		if err != nil {
			return err
		}
		changed := RewritePlaycountPaths(entries, edits)
		if changed == 0 {
			return nil
		}
		err = writeAtomic(path, func(w io.Writer) (int64, error) {
			return 0, WritePlaycounts(w, entries)
		})
		if err != nil {
			return err
		}
		r.logger.Info("playcount log rewritten",
			logging.String(logging.FieldPath, path),
			logging.Int("rows_changed", changed),
		)
		return nil
	})
}

func (r *Rewriter) eachFile(dir string, match func(string) bool, apply func(string) error) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sidecar directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		if err := apply(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func isPlaylist(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".m3u" || ext == ".m3u8"
}

func isPlaycount(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".tsv"
}

// writeAtomic writes through a temp file in the same directory and renames
// into place, so a crash mid-rewrite never truncates a sidecar.
func writeAtomic(path string, write func(io.Writer) (int64, error)) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace sidecar: %w", err)
	}
	return nil
}
