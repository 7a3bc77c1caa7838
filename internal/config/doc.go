// Package config loads, normalizes, and validates phono's TOML
// configuration.
//
// Defaults live in defaults.go, path expansion and derived values in
// normalize.go, and invariants in validate.go. The embedded sample config is
// the canonical reference for available settings; keep it in sync when adding
// fields.
package config
