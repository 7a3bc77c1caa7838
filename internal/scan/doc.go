// Package scan coordinates library scan passes. A pass consumes a batch of
// filesystem events, extracts metadata and fingerprints for changed files on
// a worker pool, re-resolves duplicate clusters over the union of touched and
// indexed tracks, merges cluster metadata, and commits the whole delta to the
// index atomically. Per-file failures are collected and reported; they fail
// the pass only when no file in the batch survived.
package scan
