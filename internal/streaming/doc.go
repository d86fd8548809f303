/*
Package streaming protects long-running HTTP responses from stalled
clients.

# Overview

Collection archives run to gigabytes, so the main HTTP server deliberately
runs without a global write timeout; one would cut off every slow but
healthy download. The cost of that choice is that a client which stops
reading, without disconnecting, would pin a handler goroutine and an open
storage stream forever.

TimeoutWriter restores the missing bound at the level where the right
budget is known. Each individual write gets WriteTimeout, gaps between
writes get IdleTimeout, and large writes are split into flushed chunks so
both clocks keep ticking on slow links. Client disconnects surface as
ErrClientGone through the request context.

# Usage

Handlers stream through Copy:

	rc, size, err := store.GetStream(r.Context(), key)
	...
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	n, err := streaming.Copy(r.Context(), w, rc, streaming.DefaultConfig())

A timeout terminates the response mid-body. With Content-Length set the
client sees the truncation; resuming is its job.
*/
package streaming
