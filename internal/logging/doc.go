// Package logging assembles the structured slog loggers used across phono.
//
// It owns the console and JSON handler construction, level and output
// plumbing, and shared attribute helpers so every component tags log lines
// with the same keys (component, pass_id, path). A no-op logger is provided
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so output stays
// uniform across commands.
package logging
