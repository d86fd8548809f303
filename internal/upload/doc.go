// Package upload coordinates chunked uploads from initiation to a
// stored original.
//
// A session moves through a linear state machine (initiated ->
// parts_uploading -> completing -> completed) with aborted reachable
// from every non-final state. Every state write is conditional on the
// expected prior state, so concurrent completes, aborts, and the
// background reaper cannot corrupt a session; the loser of a race gets
// ErrStateConflict and the session record never holds an illegal state.
//
// Part bytes never flow through the coordinator on provider-presigned
// backends: Initiate hands the client one time-limited write capability
// per part and the client uploads straight to storage, acknowledging
// each part's integrity token as it lands. Backends without presign
// support fall back to proxied part writes via WritePart. Complete
// validates the full token list before touching storage, assembles the
// original, and creates the pending MediaAsset the ingest pipeline
// picks up. Sessions are bookkeeping only and are deleted at the end of
// the lifecycle in either direction.
package upload
