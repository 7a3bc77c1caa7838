package scan

import "time"

// FileFailure records one file that could not be processed during a pass.
type FileFailure struct {
	Path string
	Err  error
}

// Summary reports what a scan pass did. It is produced for every pass,
// including passes with partial failures.
type Summary struct {
	PassID     string
	Generation int64

	Added   int
	Updated int
	Moved   int
	Merged  int
	Removed int
	Failed  int

	// Clusters is the number of multi-member duplicate clusters observed.
	Clusters int

	Failures []FileFailure

	// Moves maps old path to new path for tracks relocated this pass.
	Moves map[string]string
	// MergedPaths maps each non-canonical member's path to its canonical
	// member's path.
	MergedPaths map[string]string

	Duration time.Duration
}
