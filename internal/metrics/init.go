package metrics

import "github.com/zaitanabil/galerly-sub003/internal/mediatypes"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Decoder stages ---
	for _, stage := range []string{"standard", "heif", "raw", "frame"} {
		DecodeStageDuration.WithLabelValues(stage)
		for _, status := range []string{"success", "error", "skipped", "timeout"} {
			DecodeStageTotal.WithLabelValues(stage, status)
		}
	}

	// --- Metadata extraction ---
	for _, kind := range []string{"image", "video"} {
		for _, status := range []string{"success", "partial", "error"} {
			MetadataExtractionsTotal.WithLabelValues(kind, status)
		}
	}

	// --- Frame extraction ---
	for _, status := range []string{"success", "error"} {
		FrameExtractionsTotal.WithLabelValues(status)
	}

	// --- Renditions per catalog class ---
	// On-demand renders outside the catalog report through the render
	// cache metrics instead.
	for _, sc := range mediatypes.DefaultCatalog {
		RenditionDuration.WithLabelValues(sc.Name)
		for _, status := range []string{"success", "error", "timeout"} {
			RenditionsGeneratedTotal.WithLabelValues(sc.Name, status)
		}
	}

	// --- Upload session lifecycle ---
	for _, event := range []string{"initiated", "completed", "aborted", "reaped"} {
		UploadSessionEventsTotal.WithLabelValues(event)
	}

	// --- Bundle builds ---
	for _, status := range []string{"success", "empty", "error", "cancelled"} {
		BundleBuildsTotal.WithLabelValues(status)
	}

	// --- Ingest jobs ---
	for _, status := range []string{"success", "timeout", "error"} {
		IngestJobsTotal.WithLabelValues(status)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "insert_session", "get_session",
		"transition_session", "record_part", "delete_session", "list_stale_sessions",
		"insert_asset", "get_asset", "list_assets", "update_asset", "upsert_rendition",
		"list_renditions", "count_stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	// --- Storage operations ---
	for _, op := range []string{"get", "get_stream", "put", "put_stream", "exists",
		"delete", "create_multipart", "presign_part", "upload_part",
		"complete_multipart", "abort_multipart"} {
		StorageOperationDuration.WithLabelValues(op)
		StorageOperationErrors.WithLabelValues(op)
	}

	// --- Asset gauges ---
	for _, status := range []string{string(mediatypes.DecodePending),
		string(mediatypes.DecodeOK), string(mediatypes.DecodeFailed)} {
		AssetsByStatus.WithLabelValues(status)
	}
}
