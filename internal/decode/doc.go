// Package decode turns untrusted uploaded bytes into canonical 8-bit
// NRGBA bitmaps.
//
// Decoding runs through an ordered fallback chain: standard raster
// codecs first (JPEG/PNG/GIF/WEBP/TIFF/BMP), then HEIF/HEIC/AVIF via
// libvips, then camera RAW via an external dcraw-compatible tool. The
// later stages are gated on the declared extension; the first stage
// sniffs magic bytes and runs for everything. When every stage fails or
// is skipped the chain returns *DecodeError with the per-stage outcomes,
// and the asset is marked decode_failed without retry.
//
// Each invocation runs under a bounded time budget (ErrDecodeTimeout)
// and behind header-level size ceilings, so a hostile input cannot pin a
// worker or balloon memory.
package decode
