// Package store persists podkeep state in SQLite and exposes helpers for
// driving the download-task lifecycle.
//
// The Store manages database connections, schema initialization, episode
// upserts, favorites and playback-history bookkeeping, and the guarded
// status transitions that keep concurrent writers from resurrecting
// terminal download tasks. Every task-state mutation is a single UPDATE
// with a status predicate, so a cancel racing a worker's completion write
// resolves inside SQLite rather than in application locks.
//
// Treat this package as the single source of truth for task semantics;
// when adding statuses or columns, update schema.sql and bump schemaVersion.
package store
