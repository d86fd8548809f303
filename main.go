package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/zaitanabil/galerly-sub003/internal/bundle"
	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/frames"
	"github.com/zaitanabil/galerly-sub003/internal/handlers"
	"github.com/zaitanabil/galerly-sub003/internal/ingest"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/memory"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/middleware"
	"github.com/zaitanabil/galerly-sub003/internal/reaper"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/resizecache"
	"github.com/zaitanabil/galerly-sub003/internal/startup"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
)

func main() {
	startTime := time.Now()

	// Memory limits first, before the pipeline allocates anything big.
	startup.LogMemoryConfig(startup.ConfigureMemory())

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// libvips precedes capability detection so the HEIF probe reflects
	// the initialized library.
	decode.InitVips()
	config.DetectCapabilities()

	ctx := context.Background()

	// Object storage backend
	var store storage.Storage
	switch config.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Region:   config.S3Region,
			Bucket:   config.S3Bucket,
			Endpoint: config.S3Endpoint,
		})
		if err != nil {
			startup.LogFatal("Failed to initialize S3 storage: %v", err)
		}
		store = s3Store
		startup.LogStorageInit("s3", config.S3Bucket)
	default:
		fileStore, err := storage.NewFileStorage(config.DataDir)
		if err != nil {
			startup.LogFatal("Failed to initialize filesystem storage: %v", err)
		}
		store = fileStore
		startup.LogStorageInit("filesystem", config.DataDir)
	}
	store = storage.WithObserver(store, metrics.NewStorageObserver())

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Decode chain: the cheap stdlib stage runs first, vips handles
	// HEIF/AVIF when present, and the RAW tool is the last resort.
	stages := []decode.Decoder{decode.NewStandardDecoder()}
	if config.HeifEnabled {
		stages = append(stages, decode.NewHeifDecoder())
	}
	if config.RawEnabled {
		stages = append(stages, decode.NewRawDecoder(""))
	}
	chain := decode.NewChain(decode.Limits{
		MaxDimension: config.MaxDimension,
		MaxPixels:    config.MaxPixels,
	}, config.DecodeBudget, stages...)

	engine := rendition.NewEngine(store, db, config.RenderBudget)

	coordinator := upload.NewCoordinator(db, store, upload.Config{
		MaxFileSize: config.MaxFileSize,
		ChunkSize:   config.ChunkSize,
		PresignTTL:  config.PresignTTL,
	})

	// Heap-pressure monitor, fed by the soft limit applied above
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	// Ingest pipeline
	startup.LogIngestInit(config.IngestWorkers, config.IngestQueue)
	pipeline := ingest.NewPipeline(store, db, chain, engine,
		frames.NewExtractor(""), frames.LogSubmitter{}, ingest.Config{
			QueueSize:   config.IngestQueue,
			Workers:     config.IngestWorkers,
			JobTimeout:  config.IngestTimeout,
			FrameOffset: config.FrameOffset,
			Throttle:    monitor,
		})
	startup.LogIngestStarted()

	cache := resizecache.New(store, chain, engine, config.RenderDimensions)
	archiver := bundle.NewArchiver(store, db)

	// Session reaper
	startup.LogReaperInit(config.ReapInterval, config.SessionIdleWindow)
	rpr := reaper.New(db, coordinator, config.ReapInterval, config.SessionIdleWindow)
	rpr.Start()
	startup.LogReaperStarted()

	// Initialize handlers
	h := handlers.New(db, store, coordinator, pipeline, cache, archiver, rpr, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Apply metrics middleware outermost so the in-flight gauge and
	// durations cover the full chain.
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	// Metrics server and collection loop
	var collector *metrics.Collector
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metrics.InitializeMetrics()

		collector = metrics.NewCollector(db, time.Minute)
		collector.Start()

		// SQLite file-size and pool gauges refresh on the same cadence.
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				db.UpdateDBMetrics()
			}
		}()

		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
		metricsRouter.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsRouter,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create server. WriteTimeout stays zero: bundle downloads are
	// bounded by client bandwidth, not by us.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, pipeline, rpr, monitor, collector)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Upload session lifecycle
	api.HandleFunc("/uploads", h.InitiateUpload).Methods("POST")
	api.HandleFunc("/uploads/{id}", h.GetUploadSession).Methods("GET")
	api.HandleFunc("/uploads/{id}", h.AbortUpload).Methods("DELETE")
	api.HandleFunc("/uploads/{id}/parts", h.AcknowledgeUploadPart).Methods("POST")
	api.HandleFunc("/uploads/{id}/parts/{part}", h.WriteUploadPart).Methods("PUT")
	api.HandleFunc("/uploads/{id}/complete", h.CompleteUpload).Methods("POST")

	// Assets
	api.HandleFunc("/assets/{id}", h.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id}/process", h.ProcessAsset).Methods("POST")

	// Collection bundles
	api.HandleFunc("/collections/{id}/bundle", h.BuildBundle).Methods("POST")
	api.HandleFunc("/collections/{id}/bundle", h.DownloadBundle).Methods("GET")

	// On-demand rendering is the one endpoint anonymous galleries hammer,
	// so it carries a per-client rate limit.
	renderLimiter := middleware.NewClientLimiter(config.RenderRateLimit, config.RenderRateBurst)
	api.Handle("/render/{key:.*}",
		middleware.RateLimit(renderLimiter)(http.HandlerFunc(h.RenderImage))).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, pipeline *ingest.Pipeline, rpr *reaper.Reaper, monitor *memory.Monitor, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping session reaper")
	rpr.Stop()
	startup.LogShutdownStepComplete("Session reaper stopped")

	// Stopping the monitor first releases any workers blocked on heap
	// pressure so the drain below can finish.
	monitor.Stop()

	startup.LogShutdownStep("Draining ingest pipeline")
	if err := pipeline.Shutdown(ctx); err != nil {
		logging.Warn("Ingest pipeline drain error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Ingest pipeline drained")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Releasing image decoder")
	decode.ShutdownVips()
	startup.LogShutdownStepComplete("Image decoder released")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
