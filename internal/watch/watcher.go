package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"phono/internal/config"
	"phono/internal/logging"
	"phono/internal/scan"
)

// BatchFunc receives one debounced batch of scan events.
type BatchFunc func(ctx context.Context, events []scan.Event)

// Watcher follows the music directory tree and delivers debounced event
// batches, so a burst of filesystem activity (an album copy, a bulk retag)
// coalesces into one scan pass instead of one pass per file.
type Watcher struct {
	cfg    *config.Config
	logger *slog.Logger
	fs     *fsnotify.Watcher
}

// New creates a watcher over the configured music directory and all of its
// subdirectories.
func New(cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "watch"),
		fs:     fsw,
	}
	if err := w.addTree(cfg.Paths.MusicDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch music directory: %w", err)
	}
	return w, nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Run delivers debounced batches to deliver until ctx is cancelled. The
// debounce window restarts on every relevant event; a batch flushes only
// after the tree has been quiet for the full window.
func (w *Watcher) Run(ctx context.Context, deliver BatchFunc) error {
	debounce := time.Duration(w.cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = time.Second
	}

	pending := make(map[string]scan.Kind)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		events := make([]scan.Event, 0, len(pending))
		for path, kind := range pending {
			events = append(events, scan.Event{Kind: kind, Path: path})
		}
		sort.Slice(events, func(a, b int) bool { return events[a].Path < events[b].Path })
		pending = make(map[string]scan.Kind)
		w.logger.Info("delivering event batch", logging.Int("events", len(events)))
		deliver(ctx, events)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			kind, relevant := w.classify(event)
			if !relevant {
				continue
			}
			pending[event.Name] = kind
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watch error", logging.Error(err))
		case <-timer.C:
			flush()
		}
	}
}

// classify maps a filesystem notification to a scan event kind. New
// directories extend the watch instead of producing an event; paths without a
// recognized audio extension are ignored.
func (w *Watcher) classify(event fsnotify.Event) (scan.Kind, bool) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watch new directory",
					logging.String(logging.FieldPath, event.Name),
					logging.Error(err),
				)
			}
			return "", false
		}
	}
	if !w.cfg.RecognizesExtension(event.Name) {
		return "", false
	}
	switch {
	case event.Op.Has(fsnotify.Create):
		return scan.KindAdded, true
	case event.Op.Has(fsnotify.Write):
		return scan.KindModified, true
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return scan.KindRemoved, true
	}
	return "", false
}
