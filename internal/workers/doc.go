/*
Package workers provides utilities for determining worker pool sizes
in containerized environments.

# Overview

When running in containers, the number of available CPUs may be limited
by cgroup constraints. Go 1.19+ automatically sets GOMAXPROCS based on
container CPU limits, but runtime.NumCPU() still returns the host
machine's CPU count. Sizing pools with NumCPU on a 64-core node whose
pod is limited to 2 cores produces 64 goroutines fighting over 2 CPUs.

This package sizes pools from GOMAXPROCS instead.

# Usage

The pipeline has three kinds of pools, each with a matching helper:

	// Rendition generation: decode + resize + encode, CPU-bound.
	n := workers.ForCPU(8)

	// Storage probes during bundle assembly: I/O-bound.
	n := workers.ForIO(16)

	// Full asset ingest (read original, decode, write renditions): mixed.
	n := workers.ForMixed(12)

For fine-grained control, use Count directly:

	n := workers.Count(3.0, 24) // 3 per CPU, max 24
	n := workers.Count(2.0, 0)  // no maximum

# Environment Variable Override

All functions respect the PIPELINE_WORKERS environment variable, allowing
operators to pin the worker count:

	env:
	- name: PIPELINE_WORKERS
	  value: "4"

The limit argument still applies to the override, so a caller that cannot
tolerate more than N workers keeps that guarantee.

# Thread Safety

All functions are safe for concurrent use. They read GOMAXPROCS and
environment variables only.
*/
package workers
