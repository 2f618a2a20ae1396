// Package minio implements blobstore.Store for MinIO and other S3-compatible
// object stores. Useful for self-hosted deployments and integration tests
// against a local MinIO container.
package minio
