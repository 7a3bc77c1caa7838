// Package metadata normalizes raw tag data into canonical record fragments.
//
// Extraction is pure: it never touches the filesystem. Absent fields stay
// absent (nil) rather than defaulting to empty strings, which is what lets
// the reconciler prefer a real value from any duplicate over a missing one.
package metadata
