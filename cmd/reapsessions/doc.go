// Command reapsessions provides a CLI utility for upload session
// maintenance in the galerly ingestion service.
//
// It supports the following operations:
//   - sweep:  Abort sessions idle beyond the inactivity window and
//     release their provider-side partial uploads
//   - status: Show open sessions and which of them are reapable
//
// Usage:
//
//	reapsessions <command>
//
// Commands:
//
//	sweep   Run one reap pass. Every session without part activity for
//	        longer than the idle window is aborted through the same
//	        state machine a client abort uses, so races with concurrent
//	        completes resolve safely. The provider-side multipart state
//	        is released as part of the abort.
//
//	status  Display the number of open upload sessions and list the
//	        ones already idle beyond the window. Makes no changes.
//
// Environment:
//
//	DATABASE_DIR        - Path to database directory (default: /database)
//	SESSION_IDLE_WINDOW - Inactivity window, Go duration (default: 30m)
//	STORAGE_BACKEND     - s3 or filesystem (default: filesystem)
//	S3_REGION           - S3 region when STORAGE_BACKEND=s3
//	S3_BUCKET           - S3 bucket when STORAGE_BACKEND=s3
//	S3_ENDPOINT         - Custom S3 endpoint, for S3-compatible stores
//	DATA_DIR            - Storage root when STORAGE_BACKEND=filesystem
//	                      (default: /data)
//
// Notes:
//
// The service runs the same sweep continuously in the background; this
// utility exists for deployments that disable the built-in reaper and
// drive cleanup from cron, and for inspecting session state during
// incident response. Sweeping needs storage access because aborting a
// session releases its partial multipart upload; status only reads the
// database.
package main
