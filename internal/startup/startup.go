package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/frames"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/reaper"
	"github.com/zaitanabil/galerly-sub003/internal/resizecache"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
	"github.com/zaitanabil/galerly-sub003/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all pipeline configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Object storage backend: "s3" or "filesystem"
	StorageBackend string
	S3Region       string
	S3Bucket       string
	S3Endpoint     string
	DataDir        string

	DatabaseDir  string
	DatabasePath string

	// Upload session limits
	MaxFileSize       int64
	ChunkSize         int64
	PresignTTL        time.Duration
	ReapInterval      time.Duration
	SessionIdleWindow time.Duration

	// Decode and render budgets
	DecodeBudget  time.Duration
	RenderBudget  time.Duration
	MaxDimension  int
	MaxPixels     int
	IngestWorkers int
	IngestQueue   int
	IngestTimeout time.Duration
	FrameOffset   time.Duration

	// On-demand render endpoint. A nil RenderDimensions means the stock
	// allow-list.
	RenderDimensions []resizecache.Dimension
	RenderRateLimit  float64
	RenderRateBurst  int

	// Feature flags filled in by DetectCapabilities
	HeifEnabled  bool
	RawEnabled   bool
	VideoEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "filesystem")),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		DataDir:        getEnv("DATA_DIR", "/data"),

		DatabaseDir: getEnv("DATABASE_DIR", "/database"),

		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", upload.DefaultMaxFileSize),
		ChunkSize:         getEnvInt64("CHUNK_SIZE", upload.DefaultChunkSize),
		PresignTTL:        getEnvDuration("PRESIGN_TTL", upload.DefaultPresignTTL),
		ReapInterval:      getEnvDuration("REAP_INTERVAL", reaper.DefaultInterval),
		SessionIdleWindow: getEnvDuration("SESSION_IDLE_WINDOW", reaper.DefaultIdleWindow),

		DecodeBudget:  getEnvDuration("DECODE_BUDGET", 30*time.Second),
		RenderBudget:  getEnvDuration("RENDER_BUDGET", 20*time.Second),
		MaxDimension:  getEnvInt("MAX_DIMENSION", decode.DefaultMaxDimension),
		MaxPixels:     getEnvInt("MAX_PIXELS", decode.DefaultMaxPixels),
		IngestWorkers: workers.ForMixed(0),
		IngestQueue:   getEnvInt("INGEST_QUEUE_SIZE", 64),
		IngestTimeout: getEnvDuration("INGEST_TIMEOUT", 5*time.Minute),
		FrameOffset:   getEnvDuration("FRAME_OFFSET", frames.DefaultOffset),

		RenderDimensions: parseDimensions(getEnv("RENDER_DIMENSIONS", "")),
		RenderRateLimit:  getEnvFloat("RENDER_RATE_LIMIT", 10),
		RenderRateBurst:  getEnvInt("RENDER_RATE_BURST", 20),
	}

	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_PORT:         %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
	logging.Info("  STORAGE_BACKEND:      %s", config.StorageBackend)
	switch config.StorageBackend {
	case "s3":
		logging.Info("  S3_REGION:            %s", config.S3Region)
		logging.Info("  S3_BUCKET:            %s", config.S3Bucket)
		if config.S3Endpoint != "" {
			logging.Info("  S3_ENDPOINT:          %s", config.S3Endpoint)
		}
		if config.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	case "filesystem":
		logging.Info("  DATA_DIR:             %s", config.DataDir)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (expected s3 or filesystem)", config.StorageBackend)
	}
	logging.Info("  DATABASE_DIR:         %s", config.DatabaseDir)
	logging.Info("  MAX_FILE_SIZE:        %s", formatBytesStartup(config.MaxFileSize))
	logging.Info("  CHUNK_SIZE:           %s", formatBytesStartup(config.ChunkSize))
	logging.Info("  PRESIGN_TTL:          %v", config.PresignTTL)
	logging.Info("  REAP_INTERVAL:        %v", config.ReapInterval)
	logging.Info("  SESSION_IDLE_WINDOW:  %v", config.SessionIdleWindow)
	logging.Info("  DECODE_BUDGET:        %v", config.DecodeBudget)
	logging.Info("  RENDER_BUDGET:        %v", config.RenderBudget)
	logging.Info("  MAX_DIMENSION:        %d px", config.MaxDimension)
	logging.Info("  MAX_PIXELS:           %d", config.MaxPixels)
	logging.Info("  INGEST_WORKERS:       %d", config.IngestWorkers)
	logging.Info("  INGEST_QUEUE_SIZE:    %d", config.IngestQueue)
	logging.Info("  INGEST_TIMEOUT:       %v", config.IngestTimeout)
	logging.Info("  FRAME_OFFSET:         %v", config.FrameOffset)
	if config.RenderDimensions == nil {
		logging.Info("  RENDER_DIMENSIONS:    default allow-list (%d sizes)", len(resizecache.DefaultAllowList))
	} else {
		logging.Info("  RENDER_DIMENSIONS:    custom allow-list (%d sizes)", len(config.RenderDimensions))
	}
	logging.Info("  RENDER_RATE_LIMIT:    %.1f req/s (burst %d)", config.RenderRateLimit, config.RenderRateBurst)

	if config.ChunkSize <= 0 {
		logging.Warn("  Invalid CHUNK_SIZE, using default: %s", formatBytesStartup(upload.DefaultChunkSize))
		config.ChunkSize = upload.DefaultChunkSize
	}
	if config.MaxFileSize <= 0 {
		logging.Warn("  Invalid MAX_FILE_SIZE, using default: %s", formatBytesStartup(upload.DefaultMaxFileSize))
		config.MaxFileSize = upload.DefaultMaxFileSize
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "galerly.db")
	logging.Info("  Database directory (absolute): %s", databaseDir)

	// Database directory is required for session state and asset records.
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for session state): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// The filesystem backend stores originals and renditions locally, so
	// its root must exist and be writable. The S3 backend needs nothing
	// on local disk beyond scratch space.
	if config.StorageBackend == "filesystem" {
		dataDir, err := filepath.Abs(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
		}
		config.DataDir = dataDir
		logging.Info("  Data directory (absolute): %s", dataDir)

		if err := ensureDirectory(dataDir, "data"); err != nil {
			return nil, fmt.Errorf("data directory error: %w", err)
		}
		logging.Debug("  Testing data directory write access...")
		if err := testWriteAccess(dataDir); err != nil {
			return nil, fmt.Errorf("data directory is not writable (required for filesystem storage): %w", err)
		}
		logging.Info("  [OK] Data directory is writable")
	}

	return config, nil
}

// DetectCapabilities probes optional decode and video tooling and records
// what the pipeline can do. Call after decode.InitVips so the HEIF check
// reflects the initialized library, not a guess.
func (c *Config) DetectCapabilities() {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CAPABILITY DETECTION")
	logging.Info("------------------------------------------------------------")

	c.HeifEnabled = decode.IsVipsAvailable()
	if c.HeifEnabled {
		logging.Info("  [OK] libvips: HEIF/AVIF decode and WEBP encode available")
	} else {
		logging.Warn("  libvips unavailable: HEIF/AVIF originals will fail to decode")
		logging.Warn("  WEBP output disabled; JPEG will be used instead")
	}

	c.RawEnabled = decode.RawToolAvailable("")
	if c.RawEnabled {
		logging.Info("  [OK] dcraw: camera RAW decode available")
	} else {
		logging.Warn("  dcraw not found in PATH: RAW originals will exhaust the decode chain")
	}

	ffmpegOK := checkTool("ffmpeg") == nil
	ffprobeOK := checkTool("ffprobe") == nil
	c.VideoEnabled = ffmpegOK && ffprobeOK
	if c.VideoEnabled {
		logging.Info("  [OK] ffmpeg/ffprobe: video poster extraction available")
	} else {
		logging.Warn("  ffmpeg/ffprobe missing: video uploads will be stored but not processed")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    HEIF/AVIF decode: %s", enabledString(c.HeifEnabled))
	logging.Info("    RAW decode:       %s", enabledString(c.RawEnabled))
	logging.Info("    Video ingest:     %s", enabledString(c.VideoEnabled))
	logging.Info("    Metrics:          %s", enabledString(c.MetricsEnabled))
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogStorageInit logs which object-storage backend the pipeline runs on
func LogStorageInit(backend, detail string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORAGE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s storage ready (%s)", backend, detail)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogIngestInit logs ingest pipeline startup parameters
func LogIngestInit(workerCount, queueSize int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INGEST PIPELINE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Workers:    %d", workerCount)
	logging.Info("  Queue size: %d", queueSize)
	logging.Info("  Starting ingest workers...")
}

// LogIngestStarted logs successful ingest pipeline start
func LogIngestStarted() {
	logging.Info("  [OK] Ingest pipeline started")
}

// LogReaperInit logs session reaper configuration
func LogReaperInit(interval, idleWindow time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SESSION REAPER")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Sweep interval: %v", interval)
	logging.Info("  Idle window:    %v", idleWindow)
	logging.Info("  Starting reaper...")
}

// LogReaperStarted logs successful reaper start
func LogReaperStarted() {
	logging.Info("  [OK] Reaper started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., metrics handler)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    API:           http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ______      __          __
  / ____/___ _/ /__  _____/ /_  __
 / / __/ __ '/ / _ \/ ___/ / / / /
/ /_/ / /_/ / /  __/ /  / / /_/ /
\____/\__,_/_/\___/_/  /_/\__, /
                         /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "data" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

// checkTool verifies an external binary resolves on PATH and answers a
// version probe within a short deadline.
func checkTool(tool string) error {
	path, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	logging.Debug("  %s path: %s", tool, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", tool, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  %s version: %s", tool, strings.TrimSpace(lines[0]))
	}

	return nil
}

// parseDimensions reads a comma-separated "WxH,WxH" render allow-list.
// Invalid entries are skipped with a warning. An empty or all-invalid
// value yields nil, which callers treat as the stock allow-list.
func parseDimensions(raw string) []resizecache.Dimension {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var dims []resizecache.Dimension
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, h, ok := splitDimension(part)
		if !ok {
			logging.Warn("Invalid RENDER_DIMENSIONS entry %q, skipping", part)
			continue
		}
		dims = append(dims, resizecache.Dimension{Width: w, Height: h})
	}
	return dims
}

func splitDimension(s string) (int, int, bool) {
	i := strings.IndexAny(s, "xX")
	if i <= 0 || i == len(s)-1 {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(s[:i]))
	h, errH := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid numeric value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
