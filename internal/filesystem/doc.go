/*
Package filesystem wraps read-side file operations with retry logic for
NFS stale file handle errors.

# Purpose

Single-node deployments run the file storage backend on a mounted
volume, and in practice that volume is often NFS. When another client
renames or replaces a file, an NFS server may invalidate handles this
process has cached, and the next os.Stat or os.Open fails with ESTALE
even though the path is perfectly healthy. Without a retry, one stale
handle turns into a failed render or a 404 for an original that exists.

The wrappers here retry exactly that error, with exponential backoff,
and pass every other error through untouched on the first occurrence.
os.IsNotExist and errors.Is checks at the call site keep working.

# Usage

	info, err := filesystem.Stat(path, filesystem.DefaultRetryConfig())
	file, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	data, err := filesystem.ReadFile(path, filesystem.DefaultRetryConfig())

The retry loop reports attempts, recoveries, exhaustions, and raw
ESTALE sightings through the metrics package, labeled by operation.
*/
package filesystem
