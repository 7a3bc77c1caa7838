package config

const (
	defaultMusicDir       = "~/Music"
	defaultStateDir       = "~/.local/share/phono"
	defaultLogDir         = "~/.local/share/phono/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultMaxDistance    = 0.12
	defaultMinSeconds     = 2.0
	defaultWatchDebounce  = 2000
	defaultPlaylistSubdir = "Playlists"
	defaultPlaycountDir   = "~/Music/.playcount"
)

// Only formats the decoder can produce samples for; listing more would mark
// every such file as failed during a pass.
var defaultExtensions = []string{".flac", ".wav"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MusicDir:     defaultMusicDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
			PlaycountDir: defaultPlaycountDir,
		},
		Fingerprint: Fingerprint{
			MaxDistance: defaultMaxDistance,
			MinSeconds:  defaultMinSeconds,
		},
		Scan: Scan{
			Workers:    0, // 0 = number of CPUs, resolved in normalize
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Watch: Watch{
			DebounceMs: defaultWatchDebounce,
		},
		Sidecar: Sidecar{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
