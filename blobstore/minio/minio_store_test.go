package minio

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/vqlayer/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_Validation(t *testing.T) {
	_, err := Dial("", "a", "b", false, "bucket", "")
	assert.Error(t, err)
	_, err = Dial("localhost:9000", "a", "b", false, "", "")
	assert.Error(t, err)
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "vq/")
	assert.Equal(t, "vq/remap/used.npy", s.key("remap/used.npy"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "used.npy", s.key("used.npy"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	bucket := "test-vqlayer"
	store, err := Dial("localhost:9000", "minioadmin", "minioadmin", false, bucket, "test-prefix/")
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	client := store.client

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	blob, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	all, err := blobstore.ReadAll(ctx, store, "test.txt")
	require.NoError(t, err)
	assert.Equal(t, data, all)

	_, err = store.Open(ctx, "missing.txt")
	assert.True(t, blobstore.IsNotFound(err))
}
