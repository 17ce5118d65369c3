// Package minio provides a BlobStore implementation using the MinIO client.
//
// It serves used-index files, feature dumps and codebooks from MinIO or any
// other S3-compatible storage (Ceph, SeaweedFS, Garage) without pulling in
// the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.Dial("localhost:9000", "minioadmin", "minioadmin", false, "my-bucket", "vq/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := remap.Load(ctx, store, "used.npy", remap.UnknownRandom(), rng)
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
