// Package resizecache serves on-demand transforms for sizes outside
// the fixed rendition catalog.
//
// Requests are gated by a dimension allow-list before any bytes are
// fetched or decoded, so an attacker enumerating sizes cannot inflate
// the cache or spend decode CPU. Permitted requests resolve
// cache-aside: parameters are normalized, folded into a digest key
// under the renditions cache prefix, and looked up in object storage.
// A hit is served with an immutable cache-control directive; a miss
// decodes the original, renders the transform, stores it at the digest
// key, and serves with no-cache so edges retry once the entry settles.
//
// There is no locking around population. The transform pipeline is
// deterministic, so concurrent misses on the same key write identical
// bytes and the race is harmless.
//
// Entries never go stale on their own; parameters are part of the key,
// so a new combination is a new entry, not an update. The one exception
// is reprocessing: Invalidate drops all of one source's entries by
// their shared key prefix so the next requests re-render through the
// current pipeline.
package resizecache
