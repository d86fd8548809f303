package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_pipeline_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Decoder metrics
var (
	DecodeStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_decode_stage_total",
			Help: "Total decoder stage attempts by outcome",
		},
		[]string{"stage", "status"},
	)

	DecodeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_decode_stage_duration_seconds",
			Help:    "Decoder stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	DecodeTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_decode_timeouts_total",
			Help: "Total decode invocations that exceeded their time budget",
		},
	)

	DecodeExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_decode_exhausted_total",
			Help: "Total decodes where every eligible stage failed",
		},
	)
)

// Metadata metrics
var (
	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_metadata_extractions_total",
			Help: "Total metadata extraction attempts by kind and outcome",
		},
		[]string{"kind", "status"},
	)
)

// Frame extraction metrics
var (
	FrameExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_frame_extractions_total",
			Help: "Total video frame extractions",
		},
		[]string{"status"},
	)

	FrameExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_frame_extraction_duration_seconds",
			Help:    "Video frame extraction duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Rendition metrics
var (
	RenditionsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_renditions_generated_total",
			Help: "Total rendition generations by size class and outcome",
		},
		[]string{"class", "status"},
	)

	RenditionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_rendition_duration_seconds",
			Help:    "Rendition generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"class"},
	)

	ResizeTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_resize_timeouts_total",
			Help: "Total resize operations that exceeded their time budget",
		},
	)
)

// On-demand render cache metrics
var (
	RenderCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_render_cache_hits_total",
			Help: "Total on-demand renders served from the cache",
		},
	)

	RenderCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_render_cache_misses_total",
			Help: "Total on-demand renders that required population",
		},
	)

	RenderCacheDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_render_cache_denied_total",
			Help: "Total on-demand renders rejected by the dimension allow-list",
		},
	)

	RenderCacheInvalidatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_render_cache_invalidated_total",
			Help: "Total cached on-demand renders dropped by reprocessing",
		},
	)

	RenderCachePopulateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_render_cache_populate_duration_seconds",
			Help:    "Duration of cache-miss render population in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Upload session metrics
var (
	UploadSessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_upload_session_events_total",
			Help: "Total upload session lifecycle events",
		},
		[]string{"event"}, // "initiated", "completed", "aborted", "reaped"
	)

	UploadPartsAckedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_upload_parts_acked_total",
			Help: "Total upload parts acknowledged",
		},
	)

	UploadStateConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_upload_state_conflicts_total",
			Help: "Total session state transitions lost to a concurrent writer",
		},
	)

	UploadSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_upload_sessions_open",
			Help: "Number of upload sessions not yet completed or aborted",
		},
	)
)

// Bundle archiver metrics
var (
	BundleBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_bundle_builds_total",
			Help: "Total bundle archive builds",
		},
		[]string{"status"},
	)

	BundleBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_bundle_build_duration_seconds",
			Help:    "Bundle archive build duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	BundleAssetsBundledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_bundle_assets_bundled_total",
			Help: "Total assets written into bundle archives",
		},
	)

	BundleOrphansSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_bundle_orphans_skipped_total",
			Help: "Total assets skipped during bundling because the backing object was missing",
		},
	)
)

// Ingest worker metrics
var (
	IngestJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_ingest_jobs_total",
			Help: "Total ingest jobs by outcome",
		},
		[]string{"status"},
	)

	IngestJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_ingest_job_duration_seconds",
			Help:    "End-to-end ingest duration per asset in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_ingest_queue_depth",
			Help: "Number of ingest jobs waiting for a worker",
		},
	)
)

// Session reaper metrics
var (
	ReaperRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_reaper_runs_total",
			Help: "Total session reaper sweeps",
		},
	)

	ReaperSessionsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_reaper_sessions_reaped_total",
			Help: "Total inactive upload sessions aborted by the reaper",
		},
	)

	ReaperErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_reaper_errors_total",
			Help: "Total errors encountered while reaping sessions",
		},
	)

	ReaperLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_reaper_last_run_timestamp",
			Help: "Unix timestamp of the last reaper sweep",
		},
	)
)

// Storage metrics
var (
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_storage_operation_duration_seconds",
			Help:    "Object storage operation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	StorageOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_storage_operation_errors_total",
			Help: "Total object storage operation errors",
		},
		[]string{"operation"},
	)
)

// Library gauges, refreshed by the Collector
var (
	AssetsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_pipeline_assets",
			Help: "Number of assets by decode status",
		},
		[]string{"status"},
	)

	RenditionsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_renditions_stored",
			Help: "Number of rendition records",
		},
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_memory_usage_ratio",
			Help: "Heap usage as a fraction of the soft memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_memory_paused",
			Help: "Whether ingest intake is paused for heap pressure (0 or 1)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_memory_pauses_total",
			Help: "Times ingest intake was paused for heap pressure",
		},
	)
)

// Filesystem retry metrics, recorded by the stale-handle retry loop
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_fs_stale_errors_total",
			Help: "NFS stale file handle errors observed",
		},
		[]string{"operation"},
	)

	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_fs_retries_total",
			Help: "Filesystem operations re-attempted after a stale handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_fs_retry_success_total",
			Help: "Filesystem operations that recovered within the retry budget",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_fs_retry_failures_total",
			Help: "Filesystem operations that exhausted the retry budget",
		},
		[]string{"operation"},
	)
)
