// Package spill implements the persisted-state seam a reclaim client
// spills through: spec.md §1's Spiller abstraction, opaque to the
// arbitration protocol itself. A Spiller accumulates row batches under a
// single partition, finalizes them into an immutable manifest, and hands
// back a MergeStream that reads the manifest back in the same order.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Batch is one length-delimited chunk of already-serialized row data.
// The sort buffer hands Spill raw bytes; the encoding of those bytes is
// the caller's business, not the Spiller's.
type Batch struct {
	Bytes   []byte
	NumRows int64
}

// ManifestEntry records where one finalized partition file or object
// landed; it holds every batch spilled to that partition.
type ManifestEntry struct {
	Path       string
	NumRows    int64
	NumBytes   int64
	Compressed bool
}

// Manifest is the persisted description of everything a Spiller wrote
// for one partition. It is the only state a MergeStream needs to read a
// spill back, independent of backend.
type Manifest struct {
	Partition string
	Entries   []ManifestEntry
}

func (m *Manifest) TotalBytes() int64 {
	var n int64
	for _, e := range m.Entries {
		n += e.NumBytes
	}
	return n
}

// MergeStream reads spilled batches back in the order they were
// written. Real k-way merging across partitions is the caller's job
// (the sort buffer merges rows out of one stream per partition plus its
// own in-memory residual); MergeStream only guarantees per-partition
// order.
type MergeStream interface {
	// Next returns the next batch, io.EOF when the stream is exhausted.
	Next() (Batch, error)
	Close() error
}

// Spiller is the persisted-state contract of spec.md §1: spill() writes
// one batch, finalizeSpill() seals the partition into a durable
// manifest, startMerge() opens a MergeStream over that manifest.
type Spiller interface {
	Spill(partition string, b Batch) error
	FinalizeSpill(partition string) (Manifest, error)
	StartMerge(m Manifest) (MergeStream, error)
	// Close releases any resources (open files, client handles) the
	// Spiller itself owns, distinct from any one partition's state.
	Close() error
}

// ErrUnknownKind is returned by Create for an unregistered backend kind.
type ErrUnknownKind struct{ Kind string }

func (e *ErrUnknownKind) Error() string { return "spill: unknown backend kind " + e.Kind }

// Factory builds a Spiller from a backend-specific directory/prefix
// string (a filesystem path for "local", a bucket/prefix URL for the
// cloud backends).
type Factory func(location string) (Spiller, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a named backend factory, mirroring the arbitrator
// registry's register/create split (spec.md §6). Returns false if kind
// is already registered.
func Register(kind string, factory Factory) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		return false
	}
	registry[kind] = factory
	return true
}

func Unregister(kind string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, kind)
}

// Create instantiates the named backend. An empty kind defaults to
// "local".
func Create(kind, location string) (Spiller, error) {
	if kind == "" {
		kind = "local"
	}
	registryMu.RLock()
	factory, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.WithStack(&ErrUnknownKind{Kind: kind})
	}
	return factory(location)
}
