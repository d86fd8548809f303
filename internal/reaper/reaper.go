package reaper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
)

const (
	// DefaultInterval is how often the background sweep runs.
	DefaultInterval = 5 * time.Minute

	// DefaultIdleWindow is how long a session may sit without part
	// activity before it is considered abandoned.
	DefaultIdleWindow = 30 * time.Minute

	// DefaultBatchLimit caps how many sessions one sweep aborts.
	DefaultBatchLimit = 100
)

// Reaper aborts upload sessions that have been inactive beyond the idle
// window, releasing their provider-side partial state. It runs the same
// Abort path a client would, so every invariant of the session state
// machine holds for reaped sessions too.
type Reaper struct {
	db          *database.Database
	coordinator *upload.Coordinator
	interval    time.Duration
	idleWindow  time.Duration
	batchLimit  int

	stopChan chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex
	lastRun     time.Time
	totalReaped int64
}

// New builds a reaper. Zero durations take the package defaults.
func New(db *database.Database, coordinator *upload.Coordinator, interval, idleWindow time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idleWindow <= 0 {
		idleWindow = DefaultIdleWindow
	}
	return &Reaper{
		db:          db,
		coordinator: coordinator,
		interval:    interval,
		idleWindow:  idleWindow,
		batchLimit:  DefaultBatchLimit,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (r *Reaper) Start() {
	go r.loop()
}

// Stop halts the background loop. Safe to call more than once; an
// in-flight sweep finishes first.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

func (r *Reaper) loop() {
	logging.Info("Session reaper started (interval %v, idle window %v)", r.interval, r.idleWindow)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			if _, err := r.RunOnce(ctx); err != nil {
				logging.Error("Reaper sweep failed: %v", err)
			}
			cancel()
		case <-r.stopChan:
			logging.Info("Session reaper stopped")
			return
		}
	}
}

// RunOnce performs a single sweep and reports how many sessions were
// aborted. Sessions that a concurrent client resolved first are skipped
// without counting as errors; there is no retry for sessions whose
// abort fails, the next sweep picks them up again.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.idleWindow)

	stale, err := r.db.ListStaleSessions(ctx, cutoff, r.batchLimit)
	if err != nil {
		metrics.ReaperErrorsTotal.Inc()
		return 0, err
	}

	reaped := 0
	for _, sess := range stale {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}

		err := r.coordinator.Abort(ctx, sess.ID)
		switch {
		case err == nil:
			reaped++
			metrics.ReaperSessionsReapedTotal.Inc()
			metrics.UploadSessionEventsTotal.WithLabelValues("reaped").Inc()
			logging.Info("Reaped upload session %s (idle since %s, state %s)",
				sess.ID, sess.LastActivityAt.Format(time.RFC3339), sess.State)
		case errors.Is(err, upload.ErrSessionNotFound),
			errors.Is(err, upload.ErrAlreadyCompleted),
			errors.Is(err, upload.ErrStateConflict):
			// A live client got there first; that resolves the session
			// just as well.
			logging.Debug("Session %s resolved concurrently during sweep: %v", sess.ID, err)
		default:
			metrics.ReaperErrorsTotal.Inc()
			logging.Error("Failed to reap session %s: %v", sess.ID, err)
		}
	}

	metrics.ReaperRunsTotal.Inc()
	metrics.ReaperLastRunTimestamp.SetToCurrentTime()

	r.mu.Lock()
	r.lastRun = time.Now()
	r.totalReaped += int64(reaped)
	r.mu.Unlock()

	if len(stale) > 0 {
		logging.Info("Reaper sweep aborted %d of %d stale sessions", reaped, len(stale))
	}
	return reaped, nil
}

// Status reports sweep bookkeeping for the health endpoint.
type Status struct {
	LastRun     time.Time `json:"last_run,omitempty"`
	TotalReaped int64     `json:"total_reaped"`
}

// GetStatus returns a snapshot of the reaper's bookkeeping.
func (r *Reaper) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{LastRun: r.lastRun, TotalReaped: r.totalReaped}
}
