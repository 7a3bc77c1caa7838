package watch

import (
	"io/fs"
	"path/filepath"
	"sort"

	"phono/internal/config"
)

// Walk lists every recognized audio file under the music root, sorted, for
// driving a full rescan through the one-shot CLI path.
func Walk(cfg *config.Config) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(cfg.Paths.MusicDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if cfg.RecognizesExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
