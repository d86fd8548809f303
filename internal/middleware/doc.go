// Package middleware provides HTTP middleware for the media pipeline API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with route-template path labels
//   - Per-client rate limiting for render traffic
//   - Response compression (gzip) for JSON payloads
package middleware
