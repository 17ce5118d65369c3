package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hupe1980/vqlayer/blobstore"
	"github.com/hupe1980/vqlayer/blobstore/minio"
	"github.com/hupe1980/vqlayer/blobstore/s3"
	"github.com/hupe1980/vqlayer/internal/arrayio"
	"github.com/kelseyhightower/envconfig"
)

// minioEnv holds MINIO_* credentials for minio:// stores.
type minioEnv struct {
	AccessKey string `envconfig:"ACCESS_KEY" required:"true"`
	SecretKey string `envconfig:"SECRET_KEY" required:"true"`
	Secure    bool   `envconfig:"SECURE" default:"true"`
}

type storeLocation struct {
	scheme   string
	endpoint string
	bucket   string
	prefix   string
	dir      string
}

func parseStoreURI(uri string) (storeLocation, error) {
	if !strings.Contains(uri, "://") {
		if uri == "" {
			uri = "."
		}
		return storeLocation{scheme: "file", dir: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return storeLocation{}, fmt.Errorf("store %q: %w", uri, err)
	}
	rest := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "file":
		return storeLocation{scheme: "file", dir: u.Path}, nil
	case "s3":
		if u.Host == "" {
			return storeLocation{}, fmt.Errorf("store %q: missing bucket", uri)
		}
		return storeLocation{scheme: "s3", bucket: u.Host, prefix: rest}, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if u.Host == "" || bucket == "" {
			return storeLocation{}, fmt.Errorf("store %q: want minio://endpoint/bucket[/prefix]", uri)
		}
		return storeLocation{scheme: "minio", endpoint: u.Host, bucket: bucket, prefix: prefix}, nil
	default:
		return storeLocation{}, fmt.Errorf("store %q: unsupported scheme %q", uri, u.Scheme)
	}
}

func (g *globalFlags) openStore(ctx context.Context) (blobstore.BlobStore, error) {
	loc, err := parseStoreURI(g.store)
	if err != nil {
		return nil, err
	}
	switch loc.scheme {
	case "s3":
		return s3.New(ctx, loc.bucket, s3.WithPrefix(loc.prefix), s3.WithRegion(g.region))
	case "minio":
		var env minioEnv
		if err := envconfig.Process("MINIO", &env); err != nil {
			return nil, err
		}
		return minio.Dial(loc.endpoint, env.AccessKey, env.SecretKey, env.Secure, loc.bucket, loc.prefix)
	default:
		return blobstore.NewLocalStore(loc.dir), nil
	}
}

func readFloat32(ctx context.Context, store blobstore.BlobStore, name string) ([]float32, []int, error) {
	raw, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	data, shape, err := arrayio.ReadFloat32(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return data, shape, nil
}

func readInt64(ctx context.Context, store blobstore.BlobStore, name string) ([]int64, []int, error) {
	raw, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	data, shape, err := arrayio.ReadInt64(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return data, shape, nil
}

func writeFloat32(ctx context.Context, store blobstore.BlobStore, name string, data []float32, rows, cols int) error {
	var buf bytes.Buffer
	if err := arrayio.WriteFloat32(&buf, data, rows, cols); err != nil {
		return err
	}
	return store.Put(ctx, name, buf.Bytes())
}

// writeInt64 stores data flattened to 1-D.
func writeInt64(ctx context.Context, store blobstore.BlobStore, name string, data []int64) error {
	var buf bytes.Buffer
	if err := arrayio.WriteInt64(&buf, data); err != nil {
		return err
	}
	return store.Put(ctx, name, buf.Bytes())
}
