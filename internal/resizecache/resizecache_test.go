package resizecache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/decode"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/rendition"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// countingDecoder records invocations so tests can prove the allow-list
// gate runs before any decode work.
type countingDecoder struct {
	calls int
}

func (d *countingDecoder) Name() string          { return "counting" }
func (d *countingDecoder) Match(ext string) bool { return true }

func (d *countingDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	d.calls++
	return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
}

// setupCache wires a cache against in-memory object storage and a real
// engine. With no explicit stages the chain decodes via the stdlib.
func setupCache(t testing.TB, allowed []Dimension, stages ...decode.Decoder) (*Cache, *storage.MemoryStorage) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if len(stages) == 0 {
		stages = []decode.Decoder{decode.NewStandardDecoder()}
	}
	store := storage.NewMemoryStorage()
	engine := rendition.NewEngine(store, db, 0)
	chain := decode.NewChain(decode.DefaultLimits(), 0, stages...)
	return New(store, chain, engine, allowed), store
}

// seedOriginal stores a w-by-h JPEG under a realistic original key and
// returns that key.
func seedOriginal(t testing.TB, store *storage.MemoryStorage, w, h int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	key := storage.OriginalKey("coll-1", "asset-1", ".jpg")
	if err := store.Put(context.Background(), key, "image/jpeg", buf.Bytes()); err != nil {
		t.Fatalf("failed to seed original: %v", err)
	}
	return key
}

func TestResolveDeniedBeforeDecode(t *testing.T) {
	stage := &countingDecoder{}
	cache, store := setupCache(t, nil, stage)

	_, err := cache.Resolve(context.Background(), "originals/coll-1/asset-1.jpg", Params{Width: 37, Height: 41})
	if !errors.Is(err, ErrDimensionNotPermitted) {
		t.Fatalf("expected ErrDimensionNotPermitted, got %v", err)
	}
	if stage.calls != 0 {
		t.Errorf("decode stage invoked %d times for a denied request", stage.calls)
	}
	if store.Len() != 0 {
		t.Errorf("denied request touched storage: %d objects", store.Len())
	}
}

func TestResolveMissThenHit(t *testing.T) {
	cache, store := setupCache(t, nil)
	key := seedOriginal(t, store, 1600, 1200)

	first, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("cold resolve failed: %v", err)
	}
	if first.Hit {
		t.Error("cold resolve reported a hit")
	}
	if first.CacheControl != MissCacheControl {
		t.Errorf("cold CacheControl = %q, want %q", first.CacheControl, MissCacheControl)
	}
	if first.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", first.ContentType)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(first.Data))
	if err != nil {
		t.Fatalf("cold output is not a jpeg: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("cold output = %dx%d, want 800x600", cfg.Width, cfg.Height)
	}
	if store.Len() != 2 {
		t.Fatalf("expected original plus one cache entry, got %d objects", store.Len())
	}

	second, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("warm resolve failed: %v", err)
	}
	if !second.Hit {
		t.Error("warm resolve missed")
	}
	if second.CacheControl != HitCacheControl {
		t.Errorf("warm CacheControl = %q, want %q", second.CacheControl, HitCacheControl)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("warm bytes differ from cold bytes")
	}
	if store.Len() != 2 {
		t.Errorf("warm resolve grew storage to %d objects", store.Len())
	}
}

func TestResolveNormalizesEquivalentParams(t *testing.T) {
	cache, store := setupCache(t, nil)
	key := seedOriginal(t, store, 1600, 1200)

	if _, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600}); err != nil {
		t.Fatalf("implicit-defaults resolve failed: %v", err)
	}

	explicit := Params{
		Width:   800,
		Height:  600,
		Fit:     mediatypes.FitInside,
		Format:  mediatypes.FormatJPEG,
		Quality: rendition.DefaultJPEGQuality,
	}
	res, err := cache.Resolve(context.Background(), key, explicit)
	if err != nil {
		t.Fatalf("explicit-defaults resolve failed: %v", err)
	}
	if !res.Hit {
		t.Error("explicit defaults did not land on the implicit-defaults entry")
	}
	if store.Len() != 2 {
		t.Errorf("equivalent params created extra entries: %d objects", store.Len())
	}
}

func TestResolveDistinctParamsDistinctEntries(t *testing.T) {
	cache, store := setupCache(t, nil)
	key := seedOriginal(t, store, 1600, 1200)

	for i, p := range []Params{
		{Width: 800, Height: 600},
		{Width: 1024, Height: 768},
		{Width: 800, Height: 600, Fit: mediatypes.FitOutside},
	} {
		res, err := cache.Resolve(context.Background(), key, p)
		if err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
		if res.Hit {
			t.Errorf("resolve %d hit an entry it should not share", i)
		}
	}
	if store.Len() != 4 {
		t.Errorf("expected original plus three cache entries, got %d objects", store.Len())
	}
}

func TestResolveConcurrentColdMisses(t *testing.T) {
	cache, store := setupCache(t, nil)
	key := seedOriginal(t, store, 1600, 1200)
	params := Params{Width: 800, Height: 600, Fit: mediatypes.FitOutside, Format: mediatypes.FormatJPEG, Quality: 85}

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Resolve(context.Background(), key, params)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent resolve %d failed: %v", i, err)
		}
	}
	if !bytes.Equal(results[0].Data, results[1].Data) {
		t.Error("concurrent cold resolves produced different bytes")
	}
	if store.Len() != 2 {
		t.Errorf("concurrent cold resolves left %d objects, want 2", store.Len())
	}
}

func TestInvalidateDropsOneSourceOnly(t *testing.T) {
	cache, store := setupCache(t, nil)
	key := seedOriginal(t, store, 1600, 1200)

	// A second original with its own cached entry must survive.
	otherImg := image.NewNRGBA(image.Rect(0, 0, 1600, 1200))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, otherImg, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	other := storage.OriginalKey("coll-1", "asset-2", ".jpg")
	if err := store.Put(context.Background(), other, "image/jpeg", buf.Bytes()); err != nil {
		t.Fatalf("failed to seed original: %v", err)
	}

	for _, p := range []Params{{Width: 800, Height: 600}, {Width: 1024, Height: 768}} {
		if _, err := cache.Resolve(context.Background(), key, p); err != nil {
			t.Fatalf("populate %dx%d failed: %v", p.Width, p.Height, err)
		}
	}
	if _, err := cache.Resolve(context.Background(), other, Params{Width: 800, Height: 600}); err != nil {
		t.Fatalf("populate other source failed: %v", err)
	}

	n, err := cache.Invalidate(context.Background(), key)
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Invalidate dropped %d entries, want 2", n)
	}
	// Two originals plus the other source's entry remain.
	if store.Len() != 3 {
		t.Errorf("store holds %d objects, want 3", store.Len())
	}

	res, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("resolve after invalidate failed: %v", err)
	}
	if res.Hit {
		t.Error("invalidated entry still served as a hit")
	}

	otherRes, err := cache.Resolve(context.Background(), other, Params{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("resolve other source failed: %v", err)
	}
	if !otherRes.Hit {
		t.Error("invalidation of one source dropped a different source's entry")
	}

	// Nothing cached means nothing to drop.
	n, err = cache.Invalidate(context.Background(), storage.OriginalKey("coll-1", "ghost", ".jpg"))
	if err != nil || n != 0 {
		t.Errorf("Invalidate(uncached) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestResolveUnknownSource(t *testing.T) {
	cache, store := setupCache(t, nil)

	_, err := cache.Resolve(context.Background(), storage.OriginalKey("coll-1", "ghost", ".jpg"), Params{Width: 800, Height: 600})
	if err == nil {
		t.Fatal("expected error for missing original")
	}
	if !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("expected storage.ErrNotExist in chain, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed resolve left %d objects", store.Len())
	}
}

func TestResolveCustomAllowList(t *testing.T) {
	cache, store := setupCache(t, []Dimension{{Width: 123, Height: 45}})
	key := seedOriginal(t, store, 400, 300)

	if _, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600}); !errors.Is(err, ErrDimensionNotPermitted) {
		t.Errorf("default size should be denied under a custom list, got %v", err)
	}

	res, err := cache.Resolve(context.Background(), key, Params{Width: 123, Height: 45})
	if err != nil {
		t.Fatalf("custom size failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	// 400x300 fit inside 123x45 scales by 45/300.
	if cfg.Width != 60 || cfg.Height != 45 {
		t.Errorf("output = %dx%d, want 60x45", cfg.Width, cfg.Height)
	}
}

func TestResolveDerivesFormatFromSource(t *testing.T) {
	cache, store := setupCache(t, nil)

	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	key := storage.OriginalKey("coll-1", "asset-2", ".png")
	if err := store.Put(context.Background(), key, "image/png", buf.Bytes()); err != nil {
		t.Fatalf("failed to seed original: %v", err)
	}

	res, err := cache.Resolve(context.Background(), key, Params{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", res.ContentType)
	}
	if len(res.Data) < 4 || !bytes.Equal(res.Data[1:4], []byte("PNG")) {
		t.Error("output bytes are not a png")
	}
}
