package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// metricsResponseWriter wraps http.ResponseWriter to capture the status
// code and, for streaming endpoints, the time to first byte.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode      int
	headerWritten   bool
	startTime       time.Time
	firstByteTime   time.Time
	isStreamingPath bool
}

func newMetricsResponseWriter(w http.ResponseWriter, startTime time.Time, isStreamingPath bool) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter:  w,
		statusCode:      http.StatusOK,
		startTime:       startTime,
		isStreamingPath: isStreamingPath,
	}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
		rw.headerWritten = true
		if rw.isStreamingPath && rw.firstByteTime.IsZero() {
			rw.firstByteTime = time.Now()
		}
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.headerWritten = true
		if rw.isStreamingPath && rw.firstByteTime.IsZero() {
			rw.firstByteTime = time.Now()
		}
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// GetDuration returns the duration to record for this request. Archive
// downloads are dominated by payload transfer, so their latency metric
// is time to first byte; everything else records total handler time.
func (rw *metricsResponseWriter) GetDuration() time.Duration {
	if rw.isStreamingPath && !rw.firstByteTime.IsZero() {
		return rw.firstByteTime.Sub(rw.startTime)
	}
	return time.Since(rw.startTime)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for certain paths
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Track in-flight requests
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			streaming := r.Method == http.MethodGet && isStreamingPath(r.URL.Path)
			wrapped := newMetricsResponseWriter(w, time.Now(), streaming)

			next.ServeHTTP(wrapped, r)

			duration := wrapped.GetDuration().Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// isStreamingPath reports whether the response is dominated by payload
// transfer rather than handler work. Bundle archive downloads can run
// to gigabytes, so recording total duration would just measure the
// client's bandwidth.
func isStreamingPath(path string) bool {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return len(parts) == 4 && parts[0] == "api" && parts[1] == "collections" && parts[3] == "bundle"
}

// normalizePath maps request paths onto their route templates so metric
// labels stay low-cardinality.
func normalizePath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 2 {
		// Fixed top-level paths: probes, version.
		return path
	}

	switch parts[1] {
	case "render":
		// Render keys are arbitrary-depth storage paths.
		return "/api/render/{key}"
	case "uploads", "assets", "collections":
		if len(parts) == 2 {
			return path
		}
		normalized := "/api/" + parts[1] + "/{id}"
		if len(parts) >= 4 {
			// Action segment: parts, complete, process, bundle.
			normalized += "/" + parts[3]
		}
		if len(parts) >= 5 {
			normalized += "/{part}"
		}
		return normalized
	default:
		if len(parts) > 2 {
			return "/api/" + parts[1] + "/{path}"
		}
		return path
	}
}
