// Package blobstore provides storage access for the files the quantizer
// exchanges with the outside world: used-index sets, feature dumps and
// codebooks.
//
// BlobStore is deliberately small: open-for-read and atomic put.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes via rename
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and managed uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	}
//
// Use ReadAll to fetch a whole blob:
//
//	data, err := blobstore.ReadAll(ctx, store, "used.npy")
package blobstore
