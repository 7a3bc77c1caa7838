// Package services defines shared utilities consumed across the curation
// pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp scan pass IDs and component names for
//     logging and tracing.
//   - The Wrap helper that tags failures with domain sentinel errors so
//     callers can classify them with errors.Is.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
