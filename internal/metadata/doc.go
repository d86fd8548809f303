// Package metadata extracts technical capture metadata from originals
// without requiring a successful bitmap decode.
//
// Image metadata comes from container-level EXIF parsing (JPEG, PNG,
// TIFF, WebP, and TIFF-framed camera RAW); video metadata from ffprobe.
// Extraction is best-effort by contract: malformed or absent tags
// reduce the field set, they never fail the ingest, and absent values
// stay nil so callers can tell "not recorded" from a genuine zero.
package metadata
