package resizecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// ErrDimensionNotPermitted rejects dimensions outside the allow-list.
// Checked before any decode work so hostile requests cannot grow the
// cache key space or burn CPU.
var ErrDimensionNotPermitted = errors.New("requested dimensions are not permitted")

// Cache-control directives handed to the edge layer. Hits are immutable
// forever (parameters are part of the key, so content at a key never
// changes); misses must not be cached while the entry is still settling.
const (
	HitCacheControl  = "public, max-age=31536000, immutable"
	MissCacheControl = "no-cache"
)

// Dimension is one permitted width/height pair.
type Dimension struct {
	Width  int
	Height int
}

// DefaultAllowList covers the fixed catalog bounds plus the common web
// display sizes. Deployments override it from configuration.
var DefaultAllowList = []Dimension{
	{400, 400},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1600, 1200},
	{1920, 1080},
	{2000, 2000},
	{4000, 4000},
}

// Params is one requested transform. Zero-value Fit, Format, and
// Quality take the same defaults the catalog uses.
type Params struct {
	Width   int
	Height  int
	Fit     mediatypes.FitPolicy
	Format  mediatypes.OutputFormat
	Quality int
}

// Result carries the resolved bytes plus the headers the edge needs.
type Result struct {
	Data         []byte
	ContentType  string
	CacheControl string
	Hit          bool
}

// Cache is the cache-aside layer in front of the rendition engine for
// sizes outside the fixed catalog. Entries are created lazily on first
// miss and never go stale on their own: a new parameter combination is
// a new key. Invalidate clears all of one source's entries wholesale,
// for when reprocessing makes previously rendered bytes unrepresentative.
type Cache struct {
	store   storage.Storage
	chain   *decode.Chain
	engine  *rendition.Engine
	allowed map[Dimension]bool
}

// New wires the cache. A nil allow-list takes DefaultAllowList.
func New(store storage.Storage, chain *decode.Chain, engine *rendition.Engine, allowed []Dimension) *Cache {
	if allowed == nil {
		allowed = DefaultAllowList
	}
	set := make(map[Dimension]bool, len(allowed))
	for _, d := range allowed {
		set[d] = true
	}
	return &Cache{store: store, chain: chain, engine: engine, allowed: set}
}

// Resolve returns the transformed bytes for one original, from cache
// when possible. Output is a pure function of (sourceKey, params), so
// concurrent misses on one key are safe to race: every writer produces
// byte-identical output and the last store wins with equivalent bytes.
func (c *Cache) Resolve(ctx context.Context, sourceKey string, p Params) (*Result, error) {
	if !c.allowed[Dimension{Width: p.Width, Height: p.Height}] {
		metrics.RenderCacheDeniedTotal.Inc()
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensionNotPermitted, p.Width, p.Height)
	}

	ext := strings.ToLower(filepath.Ext(sourceKey))
	p = c.normalize(p, ext)
	key := storage.CacheKey(sourceDigest(sourceKey), paramsDigest(p), p.Format.Extension())

	if data, err := c.store.Get(ctx, key); err == nil {
		metrics.RenderCacheHitsTotal.Inc()
		return &Result{
			Data:         data,
			ContentType:  p.Format.MimeType(),
			CacheControl: HitCacheControl,
			Hit:          true,
		}, nil
	} else if !errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	metrics.RenderCacheMissesTotal.Inc()
	start := time.Now()

	original, err := c.store.Get(ctx, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("fetch original %s: %w", sourceKey, err)
	}

	decoded, err := c.chain.Decode(ctx, original, ext)
	if err != nil {
		return nil, err
	}

	out, err := c.engine.Render(ctx, decoded.Image, rendition.Spec{
		Width:   p.Width,
		Height:  p.Height,
		Fit:     p.Fit,
		Format:  p.Format,
		Quality: p.Quality,
	})
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, key, p.Format.MimeType(), out.Data); err != nil {
		return nil, fmt.Errorf("store cache entry %s: %w", key, err)
	}

	metrics.RenderCachePopulateDuration.Observe(time.Since(start).Seconds())
	logging.Debug("render cache populated %s (%dx%d %s %s)", key, p.Width, p.Height, p.Fit, p.Format)

	return &Result{
		Data:         out.Data,
		ContentType:  p.Format.MimeType(),
		CacheControl: MissCacheControl,
	}, nil
}

// normalize fills parameter defaults before the key is computed, so an
// explicit default and an omitted one land on the same cache entry.
func (c *Cache) normalize(p Params, sourceExt string) Params {
	if p.Fit == "" {
		p.Fit = mediatypes.FitInside
	}
	if p.Format == "" {
		p.Format = rendition.DeriveFormat(sourceExt, c.engine.WebpAvailable())
	}
	if p.Quality <= 0 {
		switch p.Format {
		case mediatypes.FormatJPEG:
			p.Quality = rendition.DefaultJPEGQuality
		case mediatypes.FormatWEBP:
			p.Quality = rendition.DefaultWEBPQuality
		}
	}
	return p
}

// Invalidate removes every cached transform of one original and reports
// how many entries were dropped. The routine lifecycle never calls this;
// it backs asset reprocessing, where the pipeline itself changed and
// entries rendered by the old pipeline no longer represent it.
func (c *Cache) Invalidate(ctx context.Context, sourceKey string) (int, error) {
	n, err := c.store.DeletePrefix(ctx, storage.CachePrefix(sourceDigest(sourceKey)))
	if err != nil {
		return n, fmt.Errorf("invalidate cached renders of %s: %w", sourceKey, err)
	}
	if n > 0 {
		metrics.RenderCacheInvalidatedTotal.Add(float64(n))
		logging.Debug("render cache dropped %d entries for %s", n, sourceKey)
	}
	return n, nil
}

// sourceDigest names the per-source prefix all of one original's
// entries live under.
func sourceDigest(sourceKey string) string {
	sum := md5.Sum([]byte(sourceKey))
	return hex.EncodeToString(sum[:])
}

// paramsDigest folds every transform parameter into the deterministic
// entry identity.
func paramsDigest(p Params) string {
	sum := md5.Sum(fmt.Appendf(nil, "%d|%d|%s|%s|%d",
		p.Width, p.Height, p.Fit, p.Format, p.Quality))
	return hex.EncodeToString(sum[:])
}
