// Package blobstore provides storage abstraction for memgo's snapshot blobs.
//
// BlobStore is the interface for reading and writing blobs (memory and graph
// snapshots). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with atomic renames
//   - MemoryStore: in-memory store for tests and ephemeral setups
//   - s3.Store: Amazon S3 with streaming multipart uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB-coordinated snapshot versions
//   - minio.Store: MinIO and other S3-compatible systems
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)           // Open for sequential reading
//	    Create(ctx, name) (WritableBlob, error) // Create for streaming writes
//	    Put(ctx, name, data) error              // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs are read front to back exactly once per load, so Blob is a sized
// io.ReadCloser rather than a random-access handle.
package blobstore
