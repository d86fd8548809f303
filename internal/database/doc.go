// Package database provides SQLite-backed persistence for media assets,
// their generated renditions, and multipart upload sessions.
//
// The database is opened in WAL mode with a busy timeout so the HTTP
// handlers, the ingest workers, and the session reaper can share a single
// connection pool. Session state changes go through a compare-and-swap
// transition so two racing callers (for example a Complete request and the
// reaper) cannot both win; the loser receives ErrStateConflict with the
// state that actually held.
//
// Every query reports its duration and outcome to the metrics package
// under a stable operation name.
package database
