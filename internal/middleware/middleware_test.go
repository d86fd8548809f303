package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw == nil {
		t.Fatal("Expected responseWriter to be created")
	}

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}

	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}

	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after WriteHeader")
	}

	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten to be %d, got %d", len(data), rw.bytesWritten)
	}

	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if len(config.SkipPaths) != 0 {
		t.Errorf("Expected empty SkipPaths, got %d items", len(config.SkipPaths))
	}

	if !config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to be true by default")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
	}{
		{
			name:   "Logs regular requests",
			path:   "/api/assets/abc123",
			config: DefaultLoggingConfig(),
		},
		{
			name:   "Skips configured path prefixes",
			path:   "/metrics",
			config: LoggingConfig{SkipPaths: []string{"/metrics"}},
		},
		{
			name:   "Logs health checks when enabled",
			path:   "/health",
			config: LoggingConfig{LogHealthChecks: true},
		},
		{
			name:   "Skips health checks when disabled",
			path:   "/health",
			config: LoggingConfig{LogHealthChecks: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})

			middleware := Logger(tt.config)
			wrappedHandler := middleware(handler)

			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		config   LoggingConfig
		expected bool
	}{
		{"Prefix match", "/metrics", LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, true},
		{"No match", "/api/uploads", LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, false},
		{"Health logged by default", "/healthz", LoggingConfig{LogHealthChecks: true}, false},
		{"Health skipped when disabled", "/healthz", LoggingConfig{LogHealthChecks: false}, true},
		{"Readiness skipped when disabled", "/readyz", LoggingConfig{LogHealthChecks: false}, true},
		{"Liveness skipped when disabled", "/livez", LoggingConfig{LogHealthChecks: false}, true},
		{"Non-probe path unaffected by health flag", "/version", LoggingConfig{LogHealthChecks: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldSkip(tt.path, tt.config)
			if result != tt.expected {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain string untouched", "GET /api/assets", "GET /api/assets"},
		{"Newline becomes space", "line1\nline2", "line1 line2"},
		{"Carriage return becomes space", "line1\rline2", "line1 line2"},
		{"CRLF becomes two spaces", "line1\r\nline2", "line1  line2"},
		{"Null byte stripped", "before\x00after", "beforeafter"},
		{"ANSI escape stripped", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"Tab preserved", "col1\tcol2", "col1\tcol2"},
		{"Other control characters stripped", "a\x01b\x02c", "abc"},
		{"Empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeLogField(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expected   string
	}{
		{
			name:       "RemoteAddr without proxy headers",
			remoteAddr: "203.0.113.5:41234",
			expected:   "203.0.113.5",
		},
		{
			name:       "X-Forwarded-For single entry",
			remoteAddr: "10.0.0.1:80",
			xff:        "198.51.100.7",
			expected:   "198.51.100.7",
		},
		{
			name:       "X-Forwarded-For takes first entry",
			remoteAddr: "10.0.0.1:80",
			xff:        "198.51.100.7, 10.0.0.2, 10.0.0.3",
			expected:   "198.51.100.7",
		},
		{
			name:       "X-Real-IP used when XFF absent",
			remoteAddr: "10.0.0.1:80",
			xRealIP:    "198.51.100.9",
			expected:   "198.51.100.9",
		},
		{
			name:       "XFF wins over X-Real-IP",
			remoteAddr: "10.0.0.1:80",
			xff:        "198.51.100.7",
			xRealIP:    "198.51.100.9",
			expected:   "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			result := getClientIP(req)
			if result != tt.expected {
				t.Errorf("getClientIP() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"No special characters", "curl/8.0", "curl/8.0"},
		{"Spaces get quoted", "Mozilla/5.0 (X11)", "\"Mozilla/5.0 (X11)\""},
		{"Quotes get doubled", `agent "quoted"`, `"agent ""quoted"""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := escapeW3CField(tt.input)
			if result != tt.expected {
				t.Errorf("escapeW3CField(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()

	if config.MinSize != 1024 {
		t.Errorf("Expected MinSize to be 1024, got %d", config.MinSize)
	}

	if config.Level != gzip.DefaultCompression {
		t.Errorf("Expected Level to be DefaultCompression (%d), got %d", gzip.DefaultCompression, config.Level)
	}

	if len(config.CompressibleTypes) == 0 {
		t.Error("Expected CompressibleTypes to have default values")
	}

	// API responses should compress
	expectedTypes := []string{
		"application/json",
		"text/plain",
	}

	for _, expected := range expectedTypes {
		found := false
		for _, ct := range config.CompressibleTypes {
			if ct == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %s in CompressibleTypes", expected)
		}
	}

	// Media payloads must never be in the compressible list
	for _, ct := range config.CompressibleTypes {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || ct == "application/zip" {
			t.Errorf("Media type %s must not be compressible", ct)
		}
	}
}

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		path              string
		responseBody      string
		contentType       string
		acceptEncoding    string
		expectCompression bool
		minSize           int
	}{
		{
			name:              "Compresses large JSON",
			path:              "/api/assets/abc123",
			responseBody:      strings.Repeat(`{"key":"value"}`, 200),
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: true,
			minSize:           1024,
		},
		{
			name:              "Doesn't compress small responses",
			path:              "/api/assets/abc123",
			responseBody:      `{"ok":true}`,
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: false,
			minSize:           1024,
		},
		{
			name:              "Doesn't compress images",
			path:              "/api/test",
			responseBody:      strings.Repeat("data", 500),
			contentType:       "image/jpeg",
			acceptEncoding:    "gzip",
			expectCompression: false,
			minSize:           1024,
		},
		{
			name:              "Doesn't compress zip archives",
			path:              "/api/test",
			responseBody:      strings.Repeat("data", 500),
			contentType:       "application/zip",
			acceptEncoding:    "gzip",
			expectCompression: false,
			minSize:           1024,
		},
		{
			name:              "Compresses plain text",
			path:              "/version",
			responseBody:      strings.Repeat("build info line\n", 100),
			contentType:       "text/plain",
			acceptEncoding:    "gzip",
			expectCompression: true,
			minSize:           1024,
		},
		{
			name:              "Respects client without gzip support",
			path:              "/api/assets/abc123",
			responseBody:      strings.Repeat(`{"key":"value"}`, 200),
			contentType:       "application/json",
			acceptEncoding:    "",
			expectCompression: false,
			minSize:           1024,
		},
		{
			name:              "Skips render paths entirely",
			path:              "/api/render/originals/c1/photo.jpg",
			responseBody:      strings.Repeat("pixeldata", 500),
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: false,
			minSize:           1024,
		},
		{
			name:              "Skips bundle download paths entirely",
			path:              "/api/collections/c1/bundle",
			responseBody:      strings.Repeat("zipdata", 500),
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: false,
			minSize:           1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.responseBody))
			})

			config := CompressionConfig{
				MinSize:           tt.minSize,
				Level:             gzip.DefaultCompression,
				CompressibleTypes: DefaultCompressionConfig().CompressibleTypes,
			}

			middleware := Compression(config)
			wrappedHandler := middleware(handler)

			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}

			isCompressed := w.Header().Get("Content-Encoding") == "gzip"
			if isCompressed != tt.expectCompression {
				t.Errorf("Expected compression=%v, got compression=%v", tt.expectCompression, isCompressed)
			}

			if tt.expectCompression {
				// Verify we can decompress
				gr, err := gzip.NewReader(w.Body)
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				defer gr.Close()

				decompressed, err := io.ReadAll(gr)
				if err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}

				if string(decompressed) != tt.responseBody {
					t.Error("Decompressed content doesn't match original")
				}
			}
		})
	}
}

func TestGzipResponseWriterBuffering(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultCompressionConfig()
	grw := newGzipResponseWriter(w, config)

	// Write small amount of data (less than MinSize)
	smallData := []byte("small")
	n, err := grw.Write(smallData)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n != len(smallData) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(smallData), n)
	}

	// Data should be buffered
	if len(grw.buffer) != len(smallData) {
		t.Errorf("Expected buffer length %d, got %d", len(smallData), len(grw.buffer))
	}

	if !bytes.Equal(grw.buffer, smallData) {
		t.Error("Buffer content doesn't match written data")
	}
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		// Multiple small writes that together exceed MinSize
		for i := 0; i < 50; i++ {
			w.Write([]byte(strings.Repeat(`{"n":1}`, 10)))
		}
	})

	config := DefaultCompressionConfig()
	middleware := Compression(config)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest("GET", "/api/test", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	// Should be compressed since total exceeds MinSize
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected response to be compressed")
	}
}

func BenchmarkLoggingMiddleware(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	config := DefaultLoggingConfig()
	middleware := Logger(config)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest("GET", "/api/test", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)
	}
}

func BenchmarkCompressionMiddleware(b *testing.B) {
	responseBody := strings.Repeat(`{"key":"value"}`, 200)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(responseBody))
	})

	config := DefaultCompressionConfig()
	middleware := Compression(config)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest("GET", "/api/test", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)
	}
}

// =============================================================================
// Metrics Middleware Tests
// =============================================================================

func TestNewMetricsResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	startTime := time.Now()
	mrw := newMetricsResponseWriter(w, startTime, false)

	if mrw == nil {
		t.Fatal("Expected metricsResponseWriter to be created")
	}

	if mrw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", mrw.statusCode)
	}

	if mrw.headerWritten {
		t.Error("Expected headerWritten to be false initially")
	}

	if mrw.isStreamingPath {
		t.Error("Expected isStreamingPath to be false for non-streaming")
	}

	// Test streaming version
	mrwStreaming := newMetricsResponseWriter(w, startTime, true)
	if !mrwStreaming.isStreamingPath {
		t.Error("Expected isStreamingPath to be true for streaming")
	}
}

func TestMetricsResponseWriterWriteHeader(t *testing.T) {
	t.Run("non-streaming", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		mrw := newMetricsResponseWriter(w, startTime, false)

		mrw.WriteHeader(http.StatusCreated)

		if mrw.statusCode != http.StatusCreated {
			t.Errorf("Expected status code 201, got %d", mrw.statusCode)
		}

		if !mrw.headerWritten {
			t.Error("Expected headerWritten to be true after WriteHeader")
		}

		if !mrw.firstByteTime.IsZero() {
			t.Error("Expected firstByteTime to be zero for non-streaming")
		}

		// Verify the underlying ResponseWriter also got the header
		if w.Code != http.StatusCreated {
			t.Errorf("Expected underlying writer to have status 201, got %d", w.Code)
		}
	})

	t.Run("streaming", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		time.Sleep(1 * time.Millisecond) // Small delay to ensure measurable time difference
		mrw := newMetricsResponseWriter(w, startTime, true)

		mrw.WriteHeader(http.StatusOK)

		if mrw.statusCode != http.StatusOK {
			t.Errorf("Expected status code 200, got %d", mrw.statusCode)
		}

		if !mrw.headerWritten {
			t.Error("Expected headerWritten to be true after WriteHeader")
		}

		if mrw.firstByteTime.IsZero() {
			t.Error("Expected firstByteTime to be set for streaming endpoint")
		}

		if mrw.firstByteTime.Before(startTime) {
			t.Error("firstByteTime should be after startTime")
		}

		// Verify the underlying ResponseWriter also got the header
		if w.Code != http.StatusOK {
			t.Errorf("Expected underlying writer to have status 200, got %d", w.Code)
		}
	})
}

func TestMetricsResponseWriterWrite(t *testing.T) {
	t.Run("non-streaming with implicit header", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		mrw := newMetricsResponseWriter(w, startTime, false)

		data := []byte("test data")
		n, err := mrw.Write(data)

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if n != len(data) {
			t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
		}

		if !mrw.headerWritten {
			t.Error("Expected headerWritten to be true after Write")
		}

		if !mrw.firstByteTime.IsZero() {
			t.Error("Expected firstByteTime to be zero for non-streaming")
		}
	})

	t.Run("streaming with implicit header", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		time.Sleep(1 * time.Millisecond)
		mrw := newMetricsResponseWriter(w, startTime, true)

		data := []byte("streaming data")
		n, err := mrw.Write(data)

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if n != len(data) {
			t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
		}

		if !mrw.headerWritten {
			t.Error("Expected headerWritten to be true after Write")
		}

		if mrw.firstByteTime.IsZero() {
			t.Error("Expected firstByteTime to be set for streaming endpoint")
		}

		if mrw.firstByteTime.Before(startTime) {
			t.Error("firstByteTime should be after startTime")
		}
	})

	t.Run("streaming with explicit header followed by write", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		time.Sleep(1 * time.Millisecond)
		mrw := newMetricsResponseWriter(w, startTime, true)

		mrw.WriteHeader(http.StatusOK)
		firstByteTimeFromHeader := mrw.firstByteTime

		time.Sleep(1 * time.Millisecond)

		data := []byte("streaming data")
		_, err := mrw.Write(data)

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		// firstByteTime should not change after initial WriteHeader
		if mrw.firstByteTime != firstByteTimeFromHeader {
			t.Error("firstByteTime should not change after initial WriteHeader")
		}
	})
}

func TestMetricsResponseWriterGetDuration(t *testing.T) {
	t.Run("non-streaming returns total duration", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		mrw := newMetricsResponseWriter(w, startTime, false)

		time.Sleep(5 * time.Millisecond)
		mrw.WriteHeader(http.StatusOK)

		time.Sleep(5 * time.Millisecond)
		duration := mrw.GetDuration()

		// Total duration should be at least 10ms
		if duration < 10*time.Millisecond {
			t.Errorf("Expected duration >= 10ms, got %v", duration)
		}
	})

	t.Run("streaming returns time to first byte", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		mrw := newMetricsResponseWriter(w, startTime, true)

		time.Sleep(5 * time.Millisecond)
		mrw.WriteHeader(http.StatusOK)

		time.Sleep(5 * time.Millisecond)
		duration := mrw.GetDuration()

		// TTFB should be around 5ms, definitely less than 8ms
		if duration >= 8*time.Millisecond {
			t.Errorf("Expected TTFB < 8ms, got %v (should measure time to first byte, not total duration)", duration)
		}

		if duration < 3*time.Millisecond {
			t.Errorf("Expected TTFB >= 3ms, got %v", duration)
		}
	})

	t.Run("streaming with Write instead of WriteHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		startTime := time.Now()
		mrw := newMetricsResponseWriter(w, startTime, true)

		time.Sleep(5 * time.Millisecond)
		mrw.Write([]byte("data"))

		time.Sleep(5 * time.Millisecond)
		duration := mrw.GetDuration()

		// TTFB should be around 5ms, definitely less than 8ms
		if duration >= 8*time.Millisecond {
			t.Errorf("Expected TTFB < 8ms, got %v", duration)
		}

		if duration < 3*time.Millisecond {
			t.Errorf("Expected TTFB >= 3ms, got %v", duration)
		}
	})
}

func TestIsStreamingPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"Bundle download", "/api/collections/abc123/bundle", true},
		{"Bundle download with trailing slash", "/api/collections/abc123/bundle/", true},
		{"Collection without action", "/api/collections/abc123", false},
		{"Collections root", "/api/collections", false},
		{"Render endpoint", "/api/render/originals/c1/photo.jpg", false},
		{"Upload parts endpoint", "/api/uploads/abc123/parts", false},
		{"Asset endpoint", "/api/assets/abc123", false},
		{"Root path", "/", false},
		{"Extra segment after bundle", "/api/collections/abc123/bundle/extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isStreamingPath(tt.path)
			if result != tt.expected {
				t.Errorf("isStreamingPath(%q) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	if len(config.SkipPaths) == 0 {
		t.Error("Expected SkipPaths to have default values")
	}

	// Check for common paths that should be skipped
	expectedPaths := []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"}
	for _, path := range expectedPaths {
		found := false
		for _, skip := range config.SkipPaths {
			if skip == path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %q to be in default SkipPaths", path)
		}
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	config := MetricsConfig{
		SkipPaths: []string{"/metrics", "/health"},
	}
	middleware := Metrics(config)
	wrappedHandler := middleware(handler)

	tests := []struct {
		name string
		path string
	}{
		{
			name: "Skip /metrics",
			path: "/metrics",
		},
		{
			name: "Skip /health",
			path: "/health",
		},
		{
			name: "Record /api/uploads",
			path: "/api/uploads",
		},
		{
			name: "Record /",
			path: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if !handlerCalled {
				t.Error("Expected handler to be called")
			}
			// Note: We can't easily verify if metrics were recorded without mocking
			// the Prometheus metrics, but we verify the handler behavior
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "Upload session path",
			path:     "/api/uploads/7f3c2a10-9f4e-4d2a-b1c8-03a97b2f5a61",
			expected: "/api/uploads/{id}",
		},
		{
			name:     "Upload parts acknowledgement path",
			path:     "/api/uploads/7f3c2a10/parts",
			expected: "/api/uploads/{id}/parts",
		},
		{
			name:     "Upload proxy part write path",
			path:     "/api/uploads/7f3c2a10/parts/12",
			expected: "/api/uploads/{id}/parts/{part}",
		},
		{
			name:     "Upload complete path",
			path:     "/api/uploads/7f3c2a10/complete",
			expected: "/api/uploads/{id}/complete",
		},
		{
			name:     "Uploads collection root",
			path:     "/api/uploads",
			expected: "/api/uploads",
		},
		{
			name:     "Asset path",
			path:     "/api/assets/9d2e1f00",
			expected: "/api/assets/{id}",
		},
		{
			name:     "Asset process path",
			path:     "/api/assets/9d2e1f00/process",
			expected: "/api/assets/{id}/process",
		},
		{
			name:     "Bundle path",
			path:     "/api/collections/summer-2025/bundle",
			expected: "/api/collections/{id}/bundle",
		},
		{
			name:     "Render path with nested key",
			path:     "/api/render/originals/c1/a1/photo.jpg",
			expected: "/api/render/{key}",
		},
		{
			name:     "Render path with shallow key",
			path:     "/api/render/photo.jpg",
			expected: "/api/render/{key}",
		},
		{
			name:     "Health check path",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "Version path",
			path:     "/version",
			expected: "/version",
		},
		{
			name:     "Root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "Unknown API group with depth gets collapsed",
			path:     "/api/unknown/a/b/c/d",
			expected: "/api/unknown/{path}",
		},
		{
			name:     "Unknown shallow API group passes through",
			path:     "/api/unknown",
			expected: "/api/unknown",
		},
		{
			name:     "Trailing slash ignored",
			path:     "/api/uploads/7f3c2a10/",
			expected: "/api/uploads/{id}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"200 OK", http.StatusOK},
		{"201 Created", http.StatusCreated},
		{"400 Bad Request", http.StatusBadRequest},
		{"404 Not Found", http.StatusNotFound},
		{"409 Conflict", http.StatusConflict},
		{"500 Internal Server Error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			config := MetricsConfig{SkipPaths: []string{}}
			middleware := Metrics(config)
			wrappedHandler := middleware(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/test", http.NoBody)
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if w.Code != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, w.Code)
			}
		})
	}
}

func TestMetricsMiddlewareHTTPMethods(t *testing.T) {
	methods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
		http.MethodHead,
		http.MethodOptions,
	}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			config := MetricsConfig{SkipPaths: []string{}}
			middleware := Metrics(config)
			wrappedHandler := middleware(handler)

			req := httptest.NewRequest(method, "/api/test", http.NoBody)
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200 for %s, got %d", method, w.Code)
			}
		})
	}
}

func TestNormalizePathCardinality(t *testing.T) {
	// Test that normalization prevents cardinality explosion
	// by verifying many different paths map to the same normalized path

	renderPaths := []string{
		"/api/render/originals/c1/a1/photo.jpg",
		"/api/render/originals/c2/a2/IMG_0042.heic",
		"/api/render/deep/nested/path/file.png",
	}

	for _, path := range renderPaths {
		normalized := normalizePath(path)
		if normalized != "/api/render/{key}" {
			t.Errorf("Expected all render paths to normalize to /api/render/{key}, got %q for %q", normalized, path)
		}
	}

	uploadPaths := []string{
		"/api/uploads/7f3c2a10-9f4e-4d2a-b1c8-03a97b2f5a61",
		"/api/uploads/e59b77aa-1c3d-4f00-8b2a-77cf01d20f11",
		"/api/uploads/session-42",
	}

	for _, path := range uploadPaths {
		normalized := normalizePath(path)
		if normalized != "/api/uploads/{id}" {
			t.Errorf("Expected all upload paths to normalize to /api/uploads/{id}, got %q for %q", normalized, path)
		}
	}

	// Verify part numbers are also collapsed
	partPaths := []string{
		"/api/uploads/s1/parts/1",
		"/api/uploads/s2/parts/9999",
	}

	for _, path := range partPaths {
		normalized := normalizePath(path)
		if normalized != "/api/uploads/{id}/parts/{part}" {
			t.Errorf("Expected part paths to normalize to /api/uploads/{id}/parts/{part}, got %q for %q", normalized, path)
		}
	}
}

func TestMetricsMiddlewareStreamingVsNonStreaming(t *testing.T) {
	t.Run("non-streaming endpoint uses total duration", func(t *testing.T) {
		handlerDuration := 10 * time.Millisecond
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			time.Sleep(handlerDuration)
			w.Write([]byte("response"))
		})

		config := MetricsConfig{SkipPaths: []string{}}
		middleware := Metrics(config)
		wrappedHandler := middleware(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/assets/abc123", http.NoBody)
		w := httptest.NewRecorder()

		start := time.Now()
		wrappedHandler.ServeHTTP(w, req)
		totalDuration := time.Since(start)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		// For non-streaming endpoints, metrics should track close to total duration
		if totalDuration < handlerDuration {
			t.Errorf("Total duration %v should be >= handler duration %v", totalDuration, handlerDuration)
		}
	})

	t.Run("bundle download tracks time to first byte", func(t *testing.T) {
		firstByteDelay := 5 * time.Millisecond
		streamingDuration := 20 * time.Millisecond

		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Simulate archive assembly before the first byte
			time.Sleep(firstByteDelay)

			// Send headers (first byte)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("first chunk"))

			// Simulate streaming more data
			time.Sleep(streamingDuration)
			w.Write([]byte("more data"))
		})

		config := MetricsConfig{SkipPaths: []string{}}
		middleware := Metrics(config)
		wrappedHandler := middleware(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/collections/c1/bundle", http.NoBody)
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		// For streaming endpoints, metrics should track TTFB, not total streaming duration
		// The actual metric recording is internal, but we verify the handler completed
		// and the wrapper correctly tracked timing
	})

	t.Run("bundle build POST is not treated as streaming", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"status":"building"}`))
		})

		config := MetricsConfig{SkipPaths: []string{}}
		middleware := Metrics(config)
		wrappedHandler := middleware(handler)

		req := httptest.NewRequest(http.MethodPost, "/api/collections/c1/bundle", http.NoBody)
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Errorf("Expected status 202, got %d", w.Code)
		}
	})
}

// =============================================================================
// Rate Limit Middleware Tests
// =============================================================================

func TestClientLimiterAllow(t *testing.T) {
	cl := NewClientLimiter(1, 2)

	if !cl.Allow("203.0.113.5") {
		t.Error("Expected first request to be allowed")
	}

	if !cl.Allow("203.0.113.5") {
		t.Error("Expected second request within burst to be allowed")
	}

	if cl.Allow("203.0.113.5") {
		t.Error("Expected third request to be denied once burst is spent")
	}
}

func TestClientLimiterPerClient(t *testing.T) {
	cl := NewClientLimiter(1, 1)

	if !cl.Allow("203.0.113.5") {
		t.Error("Expected first client to be allowed")
	}

	if cl.Allow("203.0.113.5") {
		t.Error("Expected first client to be rate limited")
	}

	// A different client has its own bucket
	if !cl.Allow("198.51.100.7") {
		t.Error("Expected second client to be allowed independently")
	}

	if cl.Len() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", cl.Len())
	}
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	cl := NewClientLimiter(10, 10)

	base := time.Now()
	current := base
	cl.now = func() time.Time { return current }

	cl.Allow("203.0.113.5")
	cl.Allow("198.51.100.7")

	if cl.Len() != 2 {
		t.Fatalf("Expected 2 tracked clients, got %d", cl.Len())
	}

	// Advance past the TTL; the next request sweeps the idle entries
	current = base.Add(visitorTTL + time.Minute)
	cl.Allow("192.0.2.99")

	if cl.Len() != 1 {
		t.Errorf("Expected idle clients to be swept, got %d tracked", cl.Len())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	limiter := NewClientLimiter(1, 1)
	middleware := RateLimit(limiter)
	wrappedHandler := middleware(handler)

	// First request passes
	req := httptest.NewRequest(http.MethodGet, "/api/render/photo.jpg", http.NoBody)
	w := httptest.NewRecorder()
	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass with 200, got %d", w.Code)
	}

	// Second request from the same client is rejected
	req = httptest.NewRequest(http.MethodGet, "/api/render/photo.jpg", http.NoBody)
	w = httptest.NewRecorder()
	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once burst is spent, got %d", w.Code)
	}

	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on 429 response")
	}
}

func TestRateLimitMiddlewareDistinctClients(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limiter := NewClientLimiter(1, 1)
	middleware := RateLimit(limiter)
	wrappedHandler := middleware(handler)

	for _, ip := range []string{"203.0.113.5", "198.51.100.7", "192.0.2.99"} {
		req := httptest.NewRequest(http.MethodGet, "/api/render/photo.jpg", http.NoBody)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected client %s to have its own bucket, got %d", ip, w.Code)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name     string
		limit    float64
		expected int
	}{
		{"Fast refill clamps to one second", 10, 1},
		{"One per second", 1, 1},
		{"Slow refill", 0.5, 2},
		{"Zero limit clamps to one second", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := NewClientLimiter(tt.limit, 1)
			result := retryAfterSeconds(cl.limit)
			if result != tt.expected {
				t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.limit, result, tt.expected)
			}
		})
	}
}

func BenchmarkMetricsMiddleware(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	config := DefaultMetricsConfig()
	middleware := Metrics(config)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/test", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)
	}
}

func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/api/render/originals/c1/a1/photo.jpg",
		"/api/uploads/7f3c2a10/parts/12",
		"/api/assets/9d2e1f00",
		"/",
		"/api/collections/summer-2025/bundle",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range paths {
			_ = normalizePath(path)
		}
	}
}

func BenchmarkClientLimiterAllow(b *testing.B) {
	cl := NewClientLimiter(1000000, 1000000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cl.Allow("203.0.113.5")
	}
}
