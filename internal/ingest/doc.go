// Package ingest orchestrates post-upload processing of one asset:
// fetch the stored original, decode it through the format chain (or
// extract a poster frame and probe streams for video), persist
// technical metadata and the decode outcome, generate the catalog
// renditions, and for video hand an ABR transcode job to the external
// service.
//
// Work arrives on a bounded queue served by a fixed pool of workers;
// the same Process path also runs synchronously for the reprocess
// endpoint. Failures are terminal per invocation: a decode or frame
// failure marks the asset decode_failed with the stage detail, and
// nothing retries automatically.
package ingest
