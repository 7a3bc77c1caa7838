package testsupport

import (
	"path/filepath"
	"testing"

	"phono/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MusicDir = filepath.Join(base, "music")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.PlaylistDir = filepath.Join(base, "music", "Playlists")
	cfg.Paths.PlaycountDir = filepath.Join(base, "music", ".playcount")
	cfg.Scan.Workers = 2
	return &cfg
}
