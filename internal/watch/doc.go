// Package watch turns filesystem notifications into debounced scan event
// batches and provides the one-shot directory walk used by full rescans.
package watch
