package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

var (
	// ErrNotExist is returned when the requested object is not in the store.
	ErrNotExist = errors.New("storage: object does not exist")

	// ErrNoSuchUpload is returned for multipart operations against an
	// upload handle the backend does not know, typically because it was
	// already completed or aborted.
	ErrNoSuchUpload = errors.New("storage: no such multipart upload")

	// ErrPresignNotSupported is returned by backends that cannot issue
	// provider-presigned part URLs. Callers fall back to proxied part
	// writes via PartWriter.
	ErrPresignNotSupported = errors.New("storage: presigned part uploads not supported by this backend")

	// ErrPartProxyNotSupported is returned when part bytes are sent
	// through the service but the backend only accepts presigned writes.
	ErrPartProxyNotSupported = errors.New("storage: backend does not accept proxied part writes")
)

// Storage is the object-store boundary for originals, renditions, and
// bundle archives. Implementations must be safe for concurrent use.
//
// Writes are last-writer-wins. The pipeline only ever writes a given key
// with deterministic content, so concurrent writers racing on one key
// leave equivalent bytes behind regardless of ordering.
type Storage interface {
	// Get reads a whole object into memory.
	// Returns ErrNotExist if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetStream opens an object for streaming reads and reports its size.
	// Returns ErrNotExist if the key is absent. The caller closes the reader.
	GetStream(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Put writes a whole object.
	Put(ctx context.Context, key, contentType string, data []byte) error

	// PutStream writes an object from a reader. size may be -1 when
	// unknown; backends that need a length buffer or chunk as required.
	PutStream(ctx context.Context, key, contentType string, r io.Reader, size int64) error

	// Exists reports whether an object is present without fetching it.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object whose key starts with prefix and
	// reports how many were removed. An empty result is not an error.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// CreateMultipart starts a chunked upload targeting key and returns
	// the provider's upload handle.
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)

	// PresignPart issues a time-limited URL authorizing a direct write of
	// one part. Backends without presign support return ErrPresignNotSupported.
	PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error)

	// CompleteMultipart assembles the finished object from the listed
	// parts. Parts must be sorted by part number; each token must match
	// what the backend issued when the part was written.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []mediatypes.PartToken) error

	// AbortMultipart releases all partial state held for the upload.
	// Aborting an unknown upload is not an error.
	AbortMultipart(ctx context.Context, key, uploadID string) error
}

// PartWriter is implemented by backends that accept part bytes through
// the service instead of provider-presigned URLs. The returned token is
// the part's integrity token, later presented to CompleteMultipart.
type PartWriter interface {
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error)
}
