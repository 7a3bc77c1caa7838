// Package library persists the canonical track index in SQLite and exposes
// read-only snapshots to downstream consumers.
//
// The Store owns schema initialization, lookups by id and path, and the
// atomic pass commit: every mutation a scan pass produces lands in one
// transaction together with the generation bump, so readers only ever observe
// complete generations. An empty delta commits nothing and leaves the
// generation untouched.
//
// Treat this package as the single source of truth for index semantics; when
// adding columns, update schema.sql and bump schemaVersion.
package library
