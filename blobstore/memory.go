package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
)

// MemoryStore keeps blobs in a map. It is safe for concurrent use and is
// meant for tests and for wiring quantizers without a filesystem.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Open implements BlobStore. Stored bytes are never mutated, so the blob
// reads them without copying.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return memoryBlob{bytes.NewReader(data)}, nil
}

// Put implements BlobStore. data is copied.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	owned := slices.Clone(data)
	m.mu.Lock()
	m.blobs[name] = owned
	m.mu.Unlock()
	return nil
}

type memoryBlob struct {
	r *bytes.Reader
}

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

func (b memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("blobstore: invalid range off=%d length=%d", off, length)
	}
	return io.NopCloser(io.NewSectionReader(b.r, off, length)), nil
}

func (b memoryBlob) Size() int64 { return b.r.Size() }

func (memoryBlob) Close() error { return nil }
