// Package storage provides the object-store boundary for the pipeline.
//
// Originals, renditions, and bundle archives are all objects behind the
// Storage interface. Three implementations exist:
//
//   - S3Storage: production backend for any S3-compatible service.
//     Multipart part bytes flow client-direct via presigned URLs.
//   - FileStorage: local filesystem backend for development. Parts are
//     proxied through the service (PartWriter) since there is no
//     provider to presign against.
//   - MemoryStorage: in-memory backend for tests, mirroring the S3
//     multipart token semantics.
//
// Key layout is centralized in keys.go; no other package builds storage
// key strings by hand.
package storage
