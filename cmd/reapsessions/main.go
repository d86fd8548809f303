package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/reaper"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
)

const (
	// Default timeout for one sweep or status pass
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	// How many reapable sessions status lists before truncating
	statusListLimit = 20
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	// Get database directory from env or default
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "galerly.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "sweep":
		if !runSweep(ctx, db, idleWindowFromEnv()) {
			os.Exit(1)
		}
	case "status":
		if !showStatus(ctx, db, idleWindowFromEnv()) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display. Any character outside [a-zA-Z0-9_-] becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Galerly Upload Session Maintenance")
	fmt.Println("")
	fmt.Println("Usage: reapsessions <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  sweep   - Abort sessions idle beyond the inactivity window")
	fmt.Println("  status  - Show open sessions and which are reapable")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR        - Path to database directory (default: %s)\n", defaultDatabaseDir)
	fmt.Printf("  SESSION_IDLE_WINDOW - Inactivity window (default: %v)\n", reaper.DefaultIdleWindow)
	fmt.Println("  STORAGE_BACKEND     - s3 or filesystem (default: filesystem)")
}

// idleWindowFromEnv reads SESSION_IDLE_WINDOW, falling back to the
// service default on empty or unparseable values.
func idleWindowFromEnv() time.Duration {
	raw := os.Getenv("SESSION_IDLE_WINDOW")
	if raw == "" {
		return reaper.DefaultIdleWindow
	}
	window, err := time.ParseDuration(raw)
	if err != nil || window <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: invalid SESSION_IDLE_WINDOW %q, using %v\n", raw, reaper.DefaultIdleWindow)
		return reaper.DefaultIdleWindow
	}
	return window
}

// openStorage builds the object-storage backend from the same
// environment variables the service reads. Aborts must release
// provider-side partial uploads, so sweep cannot run database-only.
func openStorage(ctx context.Context) (storage.Storage, error) {
	backend := strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	switch backend {
	case "s3":
		region := os.Getenv("S3_REGION")
		if region == "" {
			region = "us-east-1"
		}
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:   region,
			Bucket:   os.Getenv("S3_BUCKET"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		})
	case "filesystem", "":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "/data"
		}
		return storage.NewFileStorage(dataDir)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (expected s3 or filesystem)", backend)
	}
}

func runSweep(ctx context.Context, db *database.Database, idleWindow time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	store, err := openStorage(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	coordinator := upload.NewCoordinator(db, store, upload.Config{})
	r := reaper.New(db, coordinator, 0, idleWindow)

	reaped, err := r.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: sweep failed after reaping %d session(s): %v\n", reaped, err)
		return false
	}

	if reaped == 0 {
		fmt.Printf("No sessions idle longer than %v.\n", idleWindow)
	} else {
		fmt.Printf("Reaped %d session(s) idle longer than %v.\n", reaped, idleWindow)
	}
	return true
}

func showStatus(ctx context.Context, db *database.Database, idleWindow time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := db.GetStats()
	stale, err := db.ListStaleSessions(ctx, time.Now().Add(-idleWindow), statusListLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list stale sessions: %v\n", err)
		return false
	}

	fmt.Printf("Open upload sessions:   %d\n", stats.OpenUploadSessions)
	fmt.Printf("Idle beyond %v:        %d\n", idleWindow, len(stale))
	for _, sess := range stale {
		fmt.Printf("  %s  state=%s  last activity %s\n",
			sess.ID, sess.State, sess.LastActivityAt.UTC().Format(time.RFC3339))
	}
	if len(stale) == statusListLimit {
		fmt.Println("  (list truncated; run sweep to clear in batches)")
	}
	return true
}
