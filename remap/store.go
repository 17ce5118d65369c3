package remap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"path"

	"github.com/hupe1980/vqlayer/blobstore"
	"github.com/hupe1980/vqlayer/internal/arrayio"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Load reads a used-index file from store and builds a Remapper over it.
//
// The file is a 1-D integer .npy array. Names ending in ".zst" or ".lz4" are
// decompressed first (e.g. "used.npy.zst").
func Load(ctx context.Context, store blobstore.BlobStore, name string, policy UnknownPolicy, rng *rand.Rand) (*Remapper, error) {
	used, err := ReadUsed(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return New(used, policy, rng)
}

// ReadUsed reads the used-index array stored under name.
func ReadUsed(ctx context.Context, store blobstore.BlobStore, name string) ([]int64, error) {
	raw, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("remap: read %s: %w", name, err)
	}

	r, closeFn, err := decompressor(name, raw)
	if err != nil {
		return nil, fmt.Errorf("remap: decompress %s: %w", name, err)
	}
	defer closeFn()

	used, shape, err := arrayio.ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("remap: decode %s: %w", name, err)
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("remap: %s: used set must be 1-D, got shape %v", name, shape)
	}
	return used, nil
}

// Save writes used as a 1-D '<i8' .npy array, compressed according to the
// name's extension like Load.
func Save(ctx context.Context, store blobstore.BlobStore, name string, used []int64) error {
	var buf bytes.Buffer
	if err := arrayio.WriteInt64(&buf, used); err != nil {
		return err
	}
	data, err := compress(name, buf.Bytes())
	if err != nil {
		return fmt.Errorf("remap: compress %s: %w", name, err)
	}
	return store.Put(ctx, name, data)
}

func decompressor(name string, raw []byte) (io.Reader, func(), error) {
	switch path.Ext(name) {
	case ".zst":
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case ".lz4":
		return lz4.NewReader(bytes.NewReader(raw)), func() {}, nil
	default:
		return bytes.NewReader(raw), func() {}, nil
	}
}

func compress(name string, data []byte) ([]byte, error) {
	switch path.Ext(name) {
	case ".zst":
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case ".lz4":
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}
