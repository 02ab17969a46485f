/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

func init() {
	Register("gcs", func(location string) (Spiller, error) { return NewGCS(location) })
}

type gcsStore struct {
	client *storage.Client
	bucket string
}

// NewGCS builds a Spiller backed by a Google Cloud Storage bucket.
// location is "bucket/prefix"; credentials come from the default
// application-credentials lookup performed by storage.NewClient.
func NewGCS(location string) (Spiller, error) {
	bucket, prefix, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "spill: creating GCS client")
	}
	store := &gcsStore{client: client, bucket: bucket}
	return newObjectSpiller(store, prefix), nil
}

func (g *gcsStore) put(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *gcsStore) get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *gcsStore) name() string { return "gcs://" + g.bucket }
