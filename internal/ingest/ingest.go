package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/frames"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metadata"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/workers"
)

// ErrPipelineClosed is returned by Enqueue after Shutdown has started.
var ErrPipelineClosed = errors.New("ingest: pipeline closed")

// Throttler holds workers back while the process is under memory
// pressure. *memory.Monitor satisfies it.
type Throttler interface {
	// WaitIfPaused blocks while processing is paused. It returns false
	// when the throttler shut down while the caller was waiting.
	WaitIfPaused() bool
}

// Config controls the worker pool and per-job behavior.
type Config struct {
	// QueueSize bounds how many jobs may wait for a worker.
	QueueSize int
	// Workers is the pool size; zero sizes it from the host CPU count.
	Workers int
	// JobTimeout bounds one asset's full ingest, spanning decode,
	// metadata, and catalog generation.
	JobTimeout time.Duration
	// FrameOffset is where video poster frames are taken from.
	FrameOffset time.Duration
	// SpoolDir receives temporary video files for the external tools.
	SpoolDir string
	// Throttle, when set, gates each queued job on heap pressure.
	// Synchronous Process calls are not gated; those serve interactive
	// requests.
	Throttle Throttler
}

// Pipeline runs post-upload processing: fetch the original, decode it
// (or extract a poster frame for video), persist metadata and decode
// status, and generate the catalog renditions. Jobs arrive through a
// bounded queue served by a fixed worker pool; Process is the same path
// run synchronously.
type Pipeline struct {
	store     storage.Storage
	db        *database.Database
	chain     *decode.Chain
	engine    *rendition.Engine
	extractor *frames.Extractor
	submitter frames.TranscodeSubmitter
	throttle  Throttler

	jobTimeout  time.Duration
	frameOffset time.Duration
	spoolDir    string

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPipeline starts the worker pool. A nil submitter falls back to the
// logging stub so video ingest stays exercised without a transcoding
// backend.
func NewPipeline(store storage.Storage, db *database.Database, chain *decode.Chain, engine *rendition.Engine, extractor *frames.Extractor, submitter frames.TranscodeSubmitter, cfg Config) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForMixed(0)
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.FrameOffset <= 0 {
		cfg.FrameOffset = frames.DefaultOffset
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}
	if submitter == nil {
		submitter = frames.LogSubmitter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		store:       store,
		db:          db,
		chain:       chain,
		engine:      engine,
		extractor:   extractor,
		submitter:   submitter,
		throttle:    cfg.Throttle,
		jobTimeout:  cfg.JobTimeout,
		frameOffset: cfg.FrameOffset,
		spoolDir:    cfg.SpoolDir,
		jobs:        make(chan string, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// Enqueue schedules one asset for processing. It blocks while the queue
// is full until the caller's context expires or the pipeline closes.
func (p *Pipeline) Enqueue(ctx context.Context, assetID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPipelineClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPipelineClosed
	case p.jobs <- assetID:
		metrics.IngestQueueDepth.Inc()
		return nil
	}
}

// Shutdown stops intake and waits for in-flight jobs to finish, up to
// the caller's deadline.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		p.cancel()
		close(p.jobs)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case assetID, ok := <-p.jobs:
			if !ok {
				return
			}
			metrics.IngestQueueDepth.Dec()

			// The job still runs when the throttler stops mid-wait:
			// that only happens during shutdown, and Shutdown waits
			// for in-flight work anyway.
			if p.throttle != nil {
				p.throttle.WaitIfPaused()
			}

			ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
			if err := p.Process(ctx, assetID); err != nil {
				logging.Error("ingest failed for asset %s: %v", assetID, err)
			}
			cancel()
		}
	}
}

// Process ingests one asset end to end and records the outcome metrics.
// Safe to call repeatedly: decode status, metadata, and renditions are
// all idempotent writes.
func (p *Pipeline) Process(ctx context.Context, assetID string) error {
	start := time.Now()

	err := p.process(ctx, assetID)
	metrics.IngestJobDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.IngestJobsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, decode.ErrDecodeTimeout) || errors.Is(err, rendition.ErrResizeTimeout):
		metrics.IngestJobsTotal.WithLabelValues("timeout").Inc()
	default:
		metrics.IngestJobsTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (p *Pipeline) process(ctx context.Context, assetID string) error {
	asset, err := p.db.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("load asset %s: %w", assetID, err)
	}

	data, err := p.store.Get(ctx, asset.StorageKey)
	if err != nil {
		return fmt.Errorf("fetch original for asset %s: %w", assetID, err)
	}

	if asset.Kind == mediatypes.KindVideo {
		return p.processVideo(ctx, asset, data)
	}
	return p.processImage(ctx, asset, data)
}

func (p *Pipeline) processImage(ctx context.Context, asset *mediatypes.MediaAsset, data []byte) error {
	res, err := p.chain.Decode(ctx, data, asset.Extension)
	if err != nil {
		p.markFailed(asset.ID, err)
		return err
	}

	// Extraction tolerates malformed or missing tags; only persistence
	// problems are worth a log line.
	if meta := metadata.ExtractImageMetadata(data, asset.Extension); meta != nil {
		if err := p.db.SetAssetMetadata(ctx, asset.ID, meta, nil); err != nil {
			logging.Warn("persist metadata for asset %s: %v", asset.ID, err)
		}
	}

	if err := p.db.SetAssetDecodeResult(ctx, asset.ID, mediatypes.DecodeOK, res.Width, res.Height, ""); err != nil {
		return fmt.Errorf("record decode result for asset %s: %w", asset.ID, err)
	}

	generated, err := p.engine.GenerateCatalog(ctx, asset, res.Image)
	if err != nil {
		return fmt.Errorf("generate catalog for asset %s: %w", asset.ID, err)
	}

	logging.Info("Ingested image asset %s via %s stage: %dx%d, %d renditions",
		asset.ID, res.Stage, res.Width, res.Height, generated)
	return nil
}

func (p *Pipeline) processVideo(ctx context.Context, asset *mediatypes.MediaAsset, data []byte) error {
	path, cleanup, err := p.spool(asset, data)
	if err != nil {
		return err
	}
	defer cleanup()

	frame, err := p.extractor.ExtractFrame(ctx, path, p.frameOffset)
	if err != nil {
		p.markFailed(asset.ID, err)
		return fmt.Errorf("extract poster frame for asset %s: %w", asset.ID, err)
	}
	src := decode.ToNRGBA(frame)

	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	meta, err := metadata.ProbeVideo(ctx, path)
	if err != nil {
		logging.Warn("probe video for asset %s: %v", asset.ID, err)
	} else {
		if meta.Width > 0 && meta.Height > 0 {
			width, height = meta.Width, meta.Height
		}
		if err := p.db.SetAssetMetadata(ctx, asset.ID, nil, meta); err != nil {
			logging.Warn("persist metadata for asset %s: %v", asset.ID, err)
		}
	}

	if err := p.db.SetAssetDecodeResult(ctx, asset.ID, mediatypes.DecodeOK, width, height, ""); err != nil {
		return fmt.Errorf("record decode result for asset %s: %w", asset.ID, err)
	}

	generated, err := p.engine.GenerateCatalog(ctx, asset, src)
	if err != nil {
		return fmt.Errorf("generate catalog for asset %s: %w", asset.ID, err)
	}

	// ABR delivery is the transcoding service's job; a submission
	// failure degrades playback options, not the ingest.
	jobID, err := p.submitter.SubmitTranscode(ctx, frames.TranscodeJob{
		AssetID:     asset.ID,
		SourceKey:   asset.StorageKey,
		Profiles:    frames.DefaultProfiles,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		logging.Warn("submit transcode for asset %s: %v", asset.ID, err)
	}

	logging.Info("Ingested video asset %s: poster %dx%d, %d renditions, transcode job %s",
		asset.ID, width, height, generated, jobID)
	return nil
}

// markFailed records a terminal decode failure. It runs on its own
// short deadline so a timed-out job context cannot block the record.
func (p *Pipeline) markFailed(assetID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.db.SetAssetDecodeResult(ctx, assetID, mediatypes.DecodeFailed, 0, 0, cause.Error()); err != nil {
		logging.Error("record decode failure for asset %s: %v", assetID, err)
	}
}

// spool writes video bytes to a local file for the ffmpeg tools, which
// only read from paths.
func (p *Pipeline) spool(asset *mediatypes.MediaAsset, data []byte) (string, func(), error) {
	f, err := os.CreateTemp(p.spoolDir, "ingest-*"+asset.Extension)
	if err != nil {
		return "", nil, fmt.Errorf("spool original for asset %s: %w", asset.ID, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("spool original for asset %s: %w", asset.ID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("spool original for asset %s: %w", asset.ID, err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
