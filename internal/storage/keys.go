package storage

import "fmt"

// Key layout. Originals, derived renditions, and bundle archives live
// under separate prefixes so lifecycle rules can differ per prefix.

// OriginalKey is where an uploaded original is stored.
func OriginalKey(collectionID, assetID, ext string) string {
	return fmt.Sprintf("originals/%s/%s%s", collectionID, assetID, ext)
}

// RenditionKey is where a catalog rendition for an asset is stored.
func RenditionKey(assetID, class, ext string) string {
	return fmt.Sprintf("renditions/%s/%s%s", assetID, class, ext)
}

// CacheKey is where an on-demand rendition is stored. The source digest
// groups every transform of one original under a common prefix; the
// params digest must encode every parameter that influences the output
// bytes.
func CacheKey(sourceDigest, paramsDigest, ext string) string {
	return fmt.Sprintf("renditions/cache/%s/%s%s", sourceDigest, paramsDigest, ext)
}

// CachePrefix addresses every cached transform of one original, for
// wholesale invalidation.
func CachePrefix(sourceDigest string) string {
	return fmt.Sprintf("renditions/cache/%s/", sourceDigest)
}

// BundleKey is the fixed archive location for a collection. Rebuilding
// a collection's bundle overwrites this key.
func BundleKey(collectionID string) string {
	return fmt.Sprintf("bundles/%s.zip", collectionID)
}
