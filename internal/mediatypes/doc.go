// Package mediatypes provides the shared data model for the media
// ingestion and rendition pipeline.
//
// This package exists as a dependency-free foundation that can be imported
// by every other package without creating import cycles. It contains the
// core record types, enums, extension tables, and pure utility functions
// with no dependencies beyond the standard library.
//
// # Records
//
// Three records flow through the pipeline:
//
//	mediatypes.MediaAsset    // one uploaded original and its derived state
//	mediatypes.UploadSession // transient chunked-upload bookkeeping
//	mediatypes.Rendition     // one resized output written to storage
//
// MediaAsset records are created when an upload session completes and are
// mutated only by the ingest pipeline. UploadSession records are deleted
// on completion or abort. Rendition records are immutable.
//
// # Kinds and extensions
//
// Use KindForExtension to classify a file by its extension:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	switch mediatypes.KindForExtension(ext) {
//	case mediatypes.KindImage:
//	    // decode pipeline
//	case mediatypes.KindVideo:
//	    // frame extraction pipeline
//	}
//
// The per-stage extension tables (RasterExtensions, HeifExtensions,
// RawExtensions) gate which decoder stages may run for a given source;
// see the decode package for the fallback chain itself.
//
// # Session lifecycle
//
// SessionState models the upload state machine. Legality of a transition
// is queried with CanTransitionTo; the database layer additionally makes
// every state write conditional on the expected prior state, so two
// racing writers cannot both win.
//
// # Rendition catalog
//
// DefaultCatalog fixes the size classes generated for every decodable
// asset. All entries use FitInside so small originals are never upscaled.
package mediatypes
