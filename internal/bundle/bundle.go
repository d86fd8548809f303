package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/workers"
)

// Report summarizes one archive build. Deleted is set when the
// collection had no survivors and the previous archive was removed
// instead of publishing an empty one.
type Report struct {
	CollectionID   string    `json:"collection_id"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
	ArchiveSize    int64     `json:"archive_size,omitempty"`
	AssetsBundled  int       `json:"assets_bundled"`
	OrphansSkipped int       `json:"orphans_skipped"`
	GeneratedAt    time.Time `json:"generated_at"`
	Deleted        bool      `json:"deleted,omitempty"`
}

// Archiver assembles collection download archives from stored originals.
type Archiver struct {
	store    storage.Storage
	db       *database.Database
	spoolDir string
}

// NewArchiver wires the archiver. Spool files go to the OS temp dir.
func NewArchiver(store storage.Storage, db *database.Database) *Archiver {
	return &Archiver{store: store, db: db, spoolDir: os.TempDir()}
}

// Build regenerates the archive for one collection and publishes it at
// the collection's fixed bundle key. Assets whose backing object is
// missing are counted and skipped, never fatal. Originals are written
// with the store method, so archived bytes stay bit-identical to what
// was uploaded. The archive is spooled locally and published in a
// single write; a cancelled build publishes nothing.
func (a *Archiver) Build(ctx context.Context, collectionID string) (*Report, error) {
	start := time.Now()

	rep, err := a.build(ctx, collectionID)
	switch {
	case err == nil && rep.Deleted:
		metrics.BundleBuildsTotal.WithLabelValues("empty").Inc()
		metrics.BundleOrphansSkippedTotal.Add(float64(rep.OrphansSkipped))
	case err == nil:
		metrics.BundleBuildsTotal.WithLabelValues("success").Inc()
		metrics.BundleAssetsBundledTotal.Add(float64(rep.AssetsBundled))
		metrics.BundleOrphansSkippedTotal.Add(float64(rep.OrphansSkipped))
		metrics.BundleBuildDuration.Observe(time.Since(start).Seconds())
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.BundleBuildsTotal.WithLabelValues("cancelled").Inc()
	default:
		metrics.BundleBuildsTotal.WithLabelValues("error").Inc()
	}
	return rep, err
}

func (a *Archiver) build(ctx context.Context, collectionID string) (*Report, error) {
	assets, err := a.db.ListCollectionAssets(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collectionID, err)
	}

	survivors, orphans, err := a.verifyBacking(ctx, assets)
	if err != nil {
		return nil, err
	}
	if len(survivors) == 0 {
		return a.deletePrevious(ctx, collectionID, orphans)
	}

	spool, err := os.CreateTemp(a.spoolDir, "bundle-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	bundled, streamOrphans, err := a.assemble(ctx, spool, survivors)
	orphans += streamOrphans
	if err != nil {
		return nil, err
	}
	if bundled == 0 {
		return a.deletePrevious(ctx, collectionID, orphans)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := spool.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spool file: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spool file: %w", err)
	}

	key := storage.BundleKey(collectionID)
	if err := a.store.PutStream(ctx, key, "application/zip", spool, info.Size()); err != nil {
		return nil, fmt.Errorf("publish archive %s: %w", collectionID, err)
	}

	logging.Info("Bundled collection %s: %d assets, %d orphans skipped, %d bytes",
		collectionID, bundled, orphans, info.Size())

	return &Report{
		CollectionID:   collectionID,
		ArchiveKey:     key,
		ArchiveSize:    info.Size(),
		AssetsBundled:  bundled,
		OrphansSkipped: orphans,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// verifyBacking checks every asset's original against the store before
// any bytes move. A missing object marks the asset an orphan; a failed
// check is a storage-layer error and aborts the build.
func (a *Archiver) verifyBacking(ctx context.Context, assets []*mediatypes.MediaAsset) ([]*mediatypes.MediaAsset, int, error) {
	present := make([]bool, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForIO(len(assets)))
	for i, asset := range assets {
		g.Go(func() error {
			ok, err := a.store.Exists(gctx, asset.StorageKey)
			if err != nil {
				return fmt.Errorf("verify backing object for asset %s: %w", asset.ID, err)
			}
			present[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	survivors := make([]*mediatypes.MediaAsset, 0, len(assets))
	orphans := 0
	for i, asset := range assets {
		if !present[i] {
			orphans++
			logging.Warn("Skipping orphan asset %s: no backing object", asset.ID)
			continue
		}
		survivors = append(survivors, asset)
	}
	return survivors, orphans, nil
}

// assemble streams survivors into the spool as store-method zip entries.
// An object that vanished since verification is counted as one more
// orphan; any other read failure aborts.
func (a *Archiver) assemble(ctx context.Context, spool *os.File, survivors []*mediatypes.MediaAsset) (int, int, error) {
	zw := zip.NewWriter(spool)
	used := make(map[string]bool, len(survivors))
	bundled, orphans := 0, 0

	for _, asset := range survivors {
		if err := ctx.Err(); err != nil {
			return 0, orphans, err
		}

		rc, _, err := a.store.GetStream(ctx, asset.StorageKey)
		if errors.Is(err, storage.ErrNotExist) {
			orphans++
			logging.Warn("Skipping orphan asset %s: backing object vanished mid-build", asset.ID)
			continue
		}
		if err != nil {
			return 0, orphans, fmt.Errorf("read original for asset %s: %w", asset.ID, err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     archiveName(asset, used),
			Method:   zip.Store,
			Modified: asset.CreatedAt,
		})
		if err == nil {
			_, err = io.Copy(w, rc)
		}
		rc.Close()
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return 0, orphans, cerr
			}
			return 0, orphans, fmt.Errorf("archive asset %s: %w", asset.ID, err)
		}
		bundled++
	}

	if err := zw.Close(); err != nil {
		return 0, orphans, fmt.Errorf("finalize archive: %w", err)
	}
	return bundled, orphans, nil
}

// deletePrevious removes any existing archive instead of publishing a
// zero-entry one.
func (a *Archiver) deletePrevious(ctx context.Context, collectionID string, orphans int) (*Report, error) {
	if err := a.store.Delete(ctx, storage.BundleKey(collectionID)); err != nil {
		return nil, fmt.Errorf("delete stale archive for %s: %w", collectionID, err)
	}
	logging.Info("Collection %s has no bundleable assets; removed previous archive", collectionID)
	return &Report{
		CollectionID:   collectionID,
		OrphansSkipped: orphans,
		GeneratedAt:    time.Now().UTC(),
		Deleted:        true,
	}, nil
}

// archiveName picks the entry name for one asset, suffixing a counter
// before the extension when the plain name is already taken.
func archiveName(asset *mediatypes.MediaAsset, used map[string]bool) string {
	name := filepath.Base(asset.FileName)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = asset.ID + asset.Extension
	}
	if !used[name] {
		used[name] = true
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
