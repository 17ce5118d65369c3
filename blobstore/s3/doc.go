// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("vq/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	r, err := remap.Load(ctx, store, "used.npy", remap.UnknownExtra(), nil)
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C-checked single-part puts for small blobs
//   - Multipart uploads (feature/s3/manager) above the part size
//   - Configurable prefix for multi-tenant isolation
package s3
