/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"
	"golang.org/x/sync/errgroup"
)

// objectStore is the minimal put/get surface each cloud backend needs;
// everything else (framing, compression, manifest bookkeeping) is
// shared by objectSpiller so the S3/Azure/GCS backends only have to
// implement this pair.
type objectStore interface {
	put(ctx context.Context, key string, data []byte) error
	get(ctx context.Context, key string) ([]byte, error)
	name() string
}

// objectSpiller buffers a partition's batches in memory and uploads the
// lz4-compressed, msgp-framed concatenation as a single object on
// FinalizeSpill - the cloud analogue of Local's scratch-file-then-
// compress pattern, without assuming the backend can append to an
// existing object.
type objectSpiller struct {
	store  objectStore
	prefix string

	mu   sync.Mutex
	open map[string]*bytes.Buffer
}

func newObjectSpiller(store objectStore, prefix string) *objectSpiller {
	return &objectSpiller{store: store, prefix: prefix, open: make(map[string]*bytes.Buffer)}
}

func (o *objectSpiller) key(partition string) string {
	return fmt.Sprintf("%s/%s.spill.lz4", o.prefix, partition)
}

func (o *objectSpiller) Spill(partition string, b Batch) error {
	frame := msgp.AppendArrayHeader(nil, 2)
	frame = msgp.AppendInt64(frame, b.NumRows)
	frame = msgp.AppendBytes(frame, b.Bytes)

	var lenPrefix [8]byte
	binary.BigEndian.PutUint64(lenPrefix[:], uint64(len(frame)))

	o.mu.Lock()
	defer o.mu.Unlock()
	buf, ok := o.open[partition]
	if !ok {
		buf = &bytes.Buffer{}
		o.open[partition] = buf
	}
	buf.Write(lenPrefix[:])
	buf.Write(frame)
	return nil
}

func (o *objectSpiller) FinalizeSpill(partition string) (Manifest, error) {
	o.mu.Lock()
	buf, ok := o.open[partition]
	delete(o.open, partition)
	o.mu.Unlock()
	if !ok {
		return Manifest{Partition: partition}, nil
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return Manifest{}, errors.Wrapf(err, "spill: compressing partition %s for %s", partition, o.store.name())
	}
	if err := zw.Close(); err != nil {
		return Manifest{}, errors.WithStack(err)
	}

	key := o.key(partition)
	if err := o.store.put(context.Background(), key, compressed.Bytes()); err != nil {
		return Manifest{}, errors.Wrapf(err, "spill: uploading %s to %s", key, o.store.name())
	}
	return Manifest{
		Partition: partition,
		Entries: []ManifestEntry{{
			Path:       key,
			NumBytes:   int64(compressed.Len()),
			Compressed: true,
		}},
	}, nil
}

// StartMerge fetches every manifest entry concurrently - the cloud
// backends' get() is network-bound, and entries belong to the same
// partition so their relative order only matters within each entry's
// own decoded batch slice, not across entries.
func (o *objectSpiller) StartMerge(m Manifest) (MergeStream, error) {
	decoded := make([][]Batch, len(m.Entries))
	group, ctx := errgroup.WithContext(context.Background())
	for i, e := range m.Entries {
		i, e := i, e
		group.Go(func() error {
			data, err := o.store.get(ctx, e.Path)
			if err != nil {
				return errors.Wrapf(err, "spill: downloading %s from %s", e.Path, o.store.name())
			}
			zr := lz4.NewReader(bytes.NewReader(data))
			batches, err := decodeBatches(zr)
			if err != nil {
				return errors.Wrapf(err, "spill: decoding %s", e.Path)
			}
			decoded[i] = batches
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var batches []Batch
	for _, b := range decoded {
		batches = append(batches, b...)
	}
	return &sliceMergeStream{batches: batches}, nil
}

func (o *objectSpiller) Close() error { return nil }

func decodeBatches(r io.Reader) ([]Batch, error) {
	var out []Batch
	for {
		var lenPrefix [8]byte
		if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.WithStack(err)
		}
		n := binary.BigEndian.Uint64(lenPrefix[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, errors.WithStack(err)
		}
		_, frame, err := msgp.ReadArrayHeaderBytes(frame)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		numRows, frame, err := msgp.ReadInt64Bytes(frame)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		data, _, err := msgp.ReadBytesBytes(frame, nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, Batch{NumRows: numRows, Bytes: data})
	}
	return out, nil
}

type sliceMergeStream struct {
	batches []Batch
	idx     int
}

func (s *sliceMergeStream) Next() (Batch, error) {
	if s.idx >= len(s.batches) {
		return Batch{}, io.EOF
	}
	b := s.batches[s.idx]
	s.idx++
	return b, nil
}

func (s *sliceMergeStream) Close() error { return nil }
