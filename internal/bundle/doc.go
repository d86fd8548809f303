// Package bundle builds the single downloadable archive of a
// collection's originals.
//
// Every asset's backing object is verified against the store before
// assembly; database rows whose object is gone are orphans, counted
// and skipped rather than failing the build. Survivors are written as
// store-method (uncompressed) zip entries so the archived bytes stay
// bit-identical to the uploaded originals, with duplicate filenames
// disambiguated by a numeric suffix. The archive spools to a local
// temporary file and is published to the collection's fixed bundle key
// in one write, so readers never observe a partial archive and a
// cancelled build publishes nothing. A collection with no survivors
// has its previous archive deleted instead of being replaced by an
// empty one.
package bundle
