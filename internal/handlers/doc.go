// Package handlers provides HTTP request handlers for the media pipeline API.
//
// It includes handlers for:
//   - Upload session lifecycle (initiate, resume, parts, complete, abort)
//   - Asset lookup and synchronous reprocessing
//   - On-demand image rendering through the resize cache
//   - Collection bundle builds and downloads
//   - Health checks, readiness, and build information
//
// Every error response carries a stable machine-readable code alongside
// a human message; storage keys and internal error chains never cross
// the HTTP boundary.
package handlers
