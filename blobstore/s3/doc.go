// Package s3 provides an Amazon S3 implementation of the blobstore.BlobStore
// interface, plus a DynamoDB-backed commit store for atomic snapshot pointer
// updates.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    return err
//	}
//
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "memories/")
//
// Blobs are written with streaming multipart uploads and read back with a
// single GetObject, so snapshot save and load never buffer the whole payload
// in memory on the transport side.
//
// # Features
//
//   - Streaming multipart uploads for large snapshots
//   - CRC32C integrity checksums on upload
//   - Automatic pagination for listing
//   - Configurable key prefix for multi-tenant isolation
//   - Optional DynamoDB commit log with optimistic concurrency control
package s3
