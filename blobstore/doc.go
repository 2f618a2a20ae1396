// Package blobstore provides read-only access to the objects backing a
// chunked-array dataset: the manifest documents and the chunk objects
// themselves.
//
// Implementations exist for local directories (mmap-backed), in-memory maps
// (testing), Amazon S3 (blobstore/s3) and MinIO or other S3-compatible
// endpoints (blobstore/minio). All stores are safe for concurrent use.
//
// Chunk objects are immutable for the lifetime of a dataset: two reads of the
// same key must observe identical content. Stores are not required to support
// key enumeration; List may return ErrListUnsupported.
package blobstore
