// Package main provides the entry point for the Galerly ingestion service.
//
// Galerly's ingestion service is the backend for a hosted photo-gallery
// product: it accepts chunked uploads of original photos, decodes and
// inspects them, generates a catalog of downscaled renditions, serves
// ad-hoc resizes through a disk-backed cache, and packages whole
// collections into downloadable ZIP archives.
//
// # Application Lifecycle
//
// The service follows a structured initialization sequence:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Capability Detection: Probes libvips for HEIF/RAW/video support
//  4. Component Initialization:
//     - Storage: S3 or local filesystem backend, wrapped with operation metrics
//     - Database: SQLite catalog of assets, renditions, and upload sessions
//     - Decoder Chain: Standard codecs plus HEIF and RAW stages when available
//     - Rendition Engine: Catalog and on-demand resizing
//     - Upload Coordinator: Chunked upload session state machine
//     - Ingest Pipeline: Worker pool that processes completed uploads
//     - Session Reaper: Aborts upload sessions idle beyond the window
//  5. HTTP Server Setup: Configures routes, middleware, and starts servers
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Background Services
//
// Several goroutines run throughout the service lifecycle:
//
//   - Ingest Pipeline: Decodes originals and generates catalog renditions
//   - Session Reaper: Periodically aborts abandoned upload sessions
//   - Metrics Collector: Updates Prometheus metrics every minute
//
// # HTTP Servers
//
// The service runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Chunked upload session endpoints (initiate, parts, complete, abort)
//     - Asset status and reprocessing endpoints
//     - On-demand rendering with a rate-limited, cached resize endpoint
//     - Collection bundle build and download
//     - Health, readiness, liveness, and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// # Environment Variables
//
// Configuration is primarily through environment variables:
//
//   - PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - STORAGE_BACKEND: Object storage backend, s3 or filesystem (default: filesystem)
//   - S3_REGION, S3_BUCKET, S3_ENDPOINT: S3 backend settings
//   - DATA_DIR: Root directory for the filesystem backend (default: /data)
//   - DATABASE_DIR: Directory for the SQLite database (default: /database)
//   - MAX_FILE_SIZE: Upload size ceiling in bytes
//   - CHUNK_SIZE: Upload chunk size in bytes
//   - PRESIGN_TTL: Lifetime of issued part-upload capabilities
//   - REAP_INTERVAL: How often the session reaper sweeps
//   - SESSION_IDLE_WINDOW: Inactivity window before a session is reaped
//   - DECODE_BUDGET: Wall-clock budget for decoding one original
//   - RENDER_BUDGET: Wall-clock budget for one resize
//   - MAX_DIMENSION, MAX_PIXELS: Decode safety limits
//   - INGEST_QUEUE_SIZE: Pending-job buffer for the ingest pipeline
//   - INGEST_TIMEOUT: Per-asset processing deadline
//   - FRAME_OFFSET: Seek offset for video poster frames
//   - RENDER_DIMENSIONS: Extra width x height pairs for the resize allow-list
//   - RENDER_RATE_LIMIT, RENDER_RATE_BURST: Per-client render endpoint limits
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - LOG_HEALTH_CHECKS: Log health endpoint hits (default: true)
//   - GOMEMLIMIT: Memory limit (auto-detected from cgroups if not set)
//
// # Graceful Shutdown
//
// The service handles SIGINT and SIGTERM signals gracefully:
//
//  1. Stop the session reaper
//  2. Drain the ingest pipeline (in-progress assets finish, 30s timeout)
//  3. Stop the metrics collector
//  4. Shutdown the metrics server (if running)
//  5. Shutdown libvips
//  6. Shutdown the main HTTP server
//  7. Close database connections
//
// # Build Requirements
//
// The service requires CGO for SQLite and libvips:
//
//   - SQLite: catalog storage for assets, renditions, and sessions
//   - libvips: memory-efficient decoding of large originals, HEIF and RAW
//   - FFmpeg (optional, runtime): poster-frame extraction for video uploads
//
// # Related Packages
//
//   - [github.com/zaitanabil/galerly-sub003/internal/upload]: chunked upload sessions
//   - [github.com/zaitanabil/galerly-sub003/internal/ingest]: post-upload processing pipeline
//   - [github.com/zaitanabil/galerly-sub003/internal/decode]: decoder chain and safety limits
//   - [github.com/zaitanabil/galerly-sub003/internal/rendition]: catalog and on-demand resizing
//   - [github.com/zaitanabil/galerly-sub003/internal/resizecache]: cached ad-hoc renders
//   - [github.com/zaitanabil/galerly-sub003/internal/bundle]: collection ZIP archives
//   - [github.com/zaitanabil/galerly-sub003/internal/storage]: S3 and filesystem backends
//   - [github.com/zaitanabil/galerly-sub003/internal/handlers]: HTTP request handlers
package main
