/*
Package memory provides heap-pressure backpressure for the ingest
worker pool.

# Overview

Decoded bitmaps dominate this process's allocations. A 40-megapixel
original expands to roughly 160 MB of pixels, and a burst of completed
uploads can put several of those in flight at once. The Go runtime's
soft memory limit (GOMEMLIMIT, applied at startup) makes the garbage
collector work harder as the heap approaches the limit, but it cannot
stop the pipeline from starting the next decode.

The Monitor closes that gap. It samples heap usage on an interval and
compares it against two watermarks:

  - Above the critical watermark, processing pauses entirely. Workers
    block in WaitIfPaused until usage falls back under the high
    watermark.
  - Between the watermarks, ShouldThrottle reports true so callers can
    defer optional work.

The gap between the watermarks provides hysteresis: a pipeline that
pauses at 85% does not resume until usage drops below 70%, so it does
not flap at the boundary.

# Usage

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	// In each worker, before heavy work:
	monitor.WaitIfPaused()

A monitor with no resolvable limit (no GOMEMLIMIT and no explicit
configuration) disables itself: WaitIfPaused returns immediately and
ShouldThrottle always reports false.

# Metrics

The monitor exports the usage ratio, the paused flag, and a counter of
pause events through the metrics package.
*/
package memory
