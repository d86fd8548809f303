package rendition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/workers"
)

// Rendered is one produced output: encoded bytes plus the dimensions
// and settings that went into them.
type Rendered struct {
	Data    []byte
	Width   int
	Height  int
	Format  mediatypes.OutputFormat
	Quality int
}

// Engine turns decoded bitmaps into encoded renditions and persists
// the fixed catalog.
type Engine struct {
	store       storage.Storage
	db          *database.Database
	budget      time.Duration
	parallelism int
	webp        bool
}

// NewEngine wires the rendition engine. budget bounds each individual
// render; zero disables the deadline. WEBP availability is probed once
// here so output format selection stays stable process-wide.
func NewEngine(store storage.Storage, db *database.Database, budget time.Duration) *Engine {
	return &Engine{
		store:       store,
		db:          db,
		budget:      budget,
		parallelism: workers.ForCPU(len(mediatypes.DefaultCatalog)),
		webp:        decode.IsVipsAvailable(),
	}
}

// WebpAvailable reports whether this engine can encode WEBP output.
func (e *Engine) WebpAvailable() bool { return e.webp }

// Render scales and encodes one output under the engine's time budget.
// The transform runs on its own goroutine; when the budget expires the
// work is abandoned and ErrResizeTimeout returned.
func (e *Engine) Render(ctx context.Context, src *image.NRGBA, spec Spec) (*Rendered, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.Format == mediatypes.FormatWEBP && !e.webp {
		return nil, fmt.Errorf("rendition: webp output not available")
	}

	if e.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.budget)
		defer cancel()
	}

	type renderResult struct {
		out *Rendered
		err error
	}
	done := make(chan renderResult, 1)
	go func() {
		resized := transform(src, spec.Width, spec.Height, spec.Fit)
		data, err := encode(resized, spec.Format, spec.Quality)
		if err != nil {
			done <- renderResult{err: err}
			return
		}
		done <- renderResult{out: &Rendered{
			Data:    data,
			Width:   resized.Bounds().Dx(),
			Height:  resized.Bounds().Dy(),
			Format:  spec.Format,
			Quality: spec.Quality,
		}}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		metrics.ResizeTimeoutsTotal.Inc()
		return nil, fmt.Errorf("%w: %dx%d %s", ErrResizeTimeout, spec.Width, spec.Height, spec.Fit)
	}
}

// GenerateCatalog produces every fixed catalog class for an asset from
// one decoded bitmap. Classes run in parallel; each writes its own
// storage key and records its own rendition row. A class failure is
// logged and counted but does not stop the other classes. Returns how
// many classes succeeded; the error is non-nil only when nothing could
// be generated at all.
func (e *Engine) GenerateCatalog(ctx context.Context, asset *mediatypes.MediaAsset, src *image.NRGBA) (int, error) {
	format := DeriveFormat(asset.Extension, e.webp)

	var g errgroup.Group
	g.SetLimit(e.parallelism)

	results := make([]error, len(mediatypes.DefaultCatalog))
	for i, class := range mediatypes.DefaultCatalog {
		g.Go(func() error {
			results[i] = e.generateClass(ctx, asset, src, class, format)
			return nil
		})
	}
	g.Wait()

	generated := 0
	var firstErr error
	for i, err := range results {
		if err == nil {
			generated++
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		logging.Warn("rendition class %s failed for asset %s: %v",
			mediatypes.DefaultCatalog[i].Name, asset.ID, err)
	}

	if generated == 0 && firstErr != nil {
		return 0, fmt.Errorf("all %d catalog classes failed: %w", len(mediatypes.DefaultCatalog), firstErr)
	}
	return generated, nil
}

func (e *Engine) generateClass(ctx context.Context, asset *mediatypes.MediaAsset, src *image.NRGBA, class mediatypes.SizeClass, format mediatypes.OutputFormat) error {
	start := time.Now()

	out, err := e.Render(ctx, src, Spec{
		Width:  class.Width,
		Height: class.Height,
		Fit:    class.Fit,
		Format: format,
	})
	metrics.RenditionDuration.WithLabelValues(class.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		status := "error"
		if errors.Is(err, ErrResizeTimeout) {
			status = "timeout"
		}
		metrics.RenditionsGeneratedTotal.WithLabelValues(class.Name, status).Inc()
		return err
	}

	key := storage.RenditionKey(asset.ID, class.Name, format.Extension())
	if err := e.store.Put(ctx, key, format.MimeType(), out.Data); err != nil {
		metrics.RenditionsGeneratedTotal.WithLabelValues(class.Name, "error").Inc()
		return fmt.Errorf("store rendition %s: %w", key, err)
	}

	if err := e.db.UpsertRendition(ctx, &mediatypes.Rendition{
		AssetID:    asset.ID,
		Class:      class.Name,
		StorageKey: key,
		Format:     format,
		Width:      out.Width,
		Height:     out.Height,
		Size:       int64(len(out.Data)),
	}); err != nil {
		metrics.RenditionsGeneratedTotal.WithLabelValues(class.Name, "error").Inc()
		return err
	}

	metrics.RenditionsGeneratedTotal.WithLabelValues(class.Name, "success").Inc()
	return nil
}
