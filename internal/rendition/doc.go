// Package rendition scales decoded bitmaps into delivery-ready encoded
// outputs.
//
// A Spec describes one output: target bounds, a fit policy (inside,
// outside, exact), and an encoding. Inside is the catalog default and
// never upscales; a source already within bounds is encoded as-is.
// JPEG output flattens any alpha onto white first. WEBP encoding rides
// on libvips and is disabled process-wide when it is absent.
//
// The Engine adds the operational half: each render runs under a time
// budget (ErrResizeTimeout), and GenerateCatalog fans the fixed size
// classes out across workers, persisting every output to object
// storage and the rendition table. Encoding is deterministic for a
// fixed input and settings, so writers racing on one key are safe.
package rendition
