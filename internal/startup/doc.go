// Package startup handles pipeline initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all service configuration and provides consistent
// logging throughout the process lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - PORT: HTTP API port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - STORAGE_BACKEND: Object storage backend, s3 or filesystem (default: filesystem)
//   - S3_REGION / S3_BUCKET / S3_ENDPOINT: S3 backend settings (bucket required for s3)
//   - DATA_DIR: Root directory for the filesystem backend (default: /data)
//   - DATABASE_DIR: Directory for the SQLite database (default: /database)
//   - MAX_FILE_SIZE: Largest accepted original, bytes (default: 5 GiB)
//   - CHUNK_SIZE: Upload part size offered to clients, bytes (default: 8 MiB)
//   - PRESIGN_TTL: Lifetime of issued part-write capabilities (default: 15m)
//   - REAP_INTERVAL: Stale-session sweep interval (default: 5m)
//   - SESSION_IDLE_WINDOW: Inactivity before a session is reaped (default: 30m)
//   - DECODE_BUDGET / RENDER_BUDGET: Per-invocation CPU time budgets (30s / 20s)
//   - MAX_DIMENSION / MAX_PIXELS: Pre-decode size ceilings
//   - PIPELINE_WORKERS: Override for all worker pool sizing
//   - INGEST_QUEUE_SIZE / INGEST_TIMEOUT: Ingest queue depth and per-job deadline
//   - FRAME_OFFSET: Video poster frame timestamp (default: 1s)
//   - RENDER_DIMENSIONS: Comma-separated WxH allow-list for on-demand renders
//   - RENDER_RATE_LIMIT / RENDER_RATE_BURST: Per-client render endpoint limiter
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT for the Go heap (default: 0.85)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//
// # Directory Setup
//
// The package validates and creates required directories:
//   - Database directory: Required, must be writable
//   - Data directory: Required and writable when STORAGE_BACKEND=filesystem
//
// # Capability Detection
//
// [Config.DetectCapabilities] probes libvips, dcraw, and ffmpeg/ffprobe
// after library initialization and records which decode paths the
// pipeline can take. Missing tools degrade features, never abort startup.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// The package provides structured logging functions for consistent output:
//   - [LogStorageInit]: Selected object-storage backend
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogIngestInit]: Ingest pipeline worker and queue sizing
//   - [LogReaperInit]: Session reaper intervals
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
//   - [LogMemoryConfig]: Memory limit configuration
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogMemoryConfig(startup.ConfigureMemory())
//
//	// Initialize components...
//	decode.InitVips()
//	config.DetectCapabilities()
//	startup.LogDatabaseInit(dbInitDuration)
//	startup.LogReaperInit(config.ReapInterval, config.SessionIdleWindow)
//
//	// Start server...
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsPort:     config.MetricsPort,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
//
//	// On shutdown...
//	startup.LogShutdownInitiated("SIGTERM")
//	// ... cleanup ...
//	startup.LogShutdownComplete()
package startup
