/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/cascadedb/memarb/cmn/nlog"
)

func init() {
	Register("local", func(location string) (Spiller, error) { return NewLocal(location) })
}

// Local is the default Spiller: each partition's batches are appended
// to its own file under dir, msgp-framed one record per batch.
// FinalizeSpill rewrites the file through an lz4 writer and returns a
// manifest pointing at the compressed copy; the uncompressed scratch
// file is removed.
type Local struct {
	dir string
	mu  sync.Mutex
	// open holds the still-accumulating scratch file per partition,
	// created lazily on the first Spill call for that partition.
	open map[string]*os.File
}

// NewLocal opens (creating if absent) dir as a spill root and sweeps
// any *.scratch files left behind by a previous crashed process - spec §4.9's
// orphan sweep, via karrick/godirwalk for its allocation-light
// directory walk.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "spill: mkdir %s", dir)
	}
	l := &Local{dir: dir, open: make(map[string]*os.File)}
	if err := l.sweepOrphans(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Local) sweepOrphans() error {
	var removed int
	err := godirwalk.Walk(l.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || path == l.dir {
				return nil
			}
			if filepath.Ext(path) == ".scratch" {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
				removed++
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return errors.Wrapf(err, "spill: sweeping orphans under %s", l.dir)
	}
	if removed > 0 {
		nlog.Infof("spill: removed %d orphaned scratch file(s) under %s", removed, l.dir)
	}
	return nil
}

func (l *Local) scratchPath(partition string) string {
	return filepath.Join(l.dir, partition+".scratch")
}

func (l *Local) finalPath(partition string) string {
	return filepath.Join(l.dir, partition+".spill.lz4")
}

// Spill appends one msgp-framed batch to the partition's scratch file.
// The frame is: array-header(2), numRows (int64), bytes (bin).
func (l *Local) Spill(partition string, b Batch) error {
	l.mu.Lock()
	f, ok := l.open[partition]
	if !ok {
		var err error
		f, err = os.OpenFile(l.scratchPath(partition), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.mu.Unlock()
			return errors.Wrapf(err, "spill: open scratch for %s", partition)
		}
		l.open[partition] = f
	}
	l.mu.Unlock()

	frame := msgp.AppendArrayHeader(nil, 2)
	frame = msgp.AppendInt64(frame, b.NumRows)
	frame = msgp.AppendBytes(frame, b.Bytes)

	var lenPrefix [8]byte
	binary.BigEndian.PutUint64(lenPrefix[:], uint64(len(frame)))
	if _, err := f.Write(lenPrefix[:]); err != nil {
		return errors.Wrapf(err, "spill: write frame length for %s", partition)
	}
	if _, err := f.Write(frame); err != nil {
		return errors.Wrapf(err, "spill: write frame for %s", partition)
	}
	return nil
}

// FinalizeSpill closes the scratch file, lz4-compresses it into the
// final path, and removes the scratch copy.
func (l *Local) FinalizeSpill(partition string) (Manifest, error) {
	l.mu.Lock()
	f, ok := l.open[partition]
	delete(l.open, partition)
	l.mu.Unlock()
	if !ok {
		return Manifest{Partition: partition}, nil
	}
	if err := f.Close(); err != nil {
		return Manifest{}, errors.Wrapf(err, "spill: close scratch for %s", partition)
	}

	src, err := os.Open(l.scratchPath(partition))
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "spill: reopen scratch for %s", partition)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Manifest{}, errors.WithStack(err)
	}

	dst, err := os.Create(l.finalPath(partition))
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "spill: create final file for %s", partition)
	}
	zw := lz4.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		return Manifest{}, errors.Wrapf(err, "spill: compressing %s", partition)
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return Manifest{}, errors.WithStack(err)
	}
	if err := dst.Close(); err != nil {
		return Manifest{}, errors.WithStack(err)
	}
	if err := os.Remove(l.scratchPath(partition)); err != nil && !os.IsNotExist(err) {
		return Manifest{}, errors.WithStack(err)
	}

	return Manifest{
		Partition: partition,
		Entries: []ManifestEntry{{
			Path:       l.finalPath(partition),
			NumBytes:   info.Size(),
			Compressed: true,
		}},
	}, nil
}

// StartMerge opens the manifest's entries for sequential frame-by-frame
// read, decompressing each with lz4 as it reads.
func (l *Local) StartMerge(m Manifest) (MergeStream, error) {
	readers := make([]*os.File, 0, len(m.Entries))
	for _, e := range m.Entries {
		f, err := os.Open(e.Path)
		if err != nil {
			for _, r := range readers {
				r.Close()
			}
			return nil, errors.Wrapf(err, "spill: open %s for merge", e.Path)
		}
		readers = append(readers, f)
	}
	return &localMergeStream{entries: m.Entries, files: readers}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for part, f := range l.open {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(l.open, part)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

type localMergeStream struct {
	entries []ManifestEntry
	files   []*os.File
	idx     int
	zr      *lz4.Reader
}

func (m *localMergeStream) Next() (Batch, error) {
	for {
		if m.idx >= len(m.files) {
			return Batch{}, io.EOF
		}
		if m.zr == nil {
			m.zr = lz4.NewReader(m.files[m.idx])
		}
		var lenPrefix [8]byte
		if _, err := io.ReadFull(m.zr, lenPrefix[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				m.files[m.idx].Close()
				m.zr = nil
				m.idx++
				continue
			}
			return Batch{}, errors.WithStack(err)
		}
		n := binary.BigEndian.Uint64(lenPrefix[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(m.zr, frame); err != nil {
			return Batch{}, errors.Wrapf(err, "spill: reading frame body")
		}
		_, frame, err = msgp.ReadArrayHeaderBytes(frame)
		if err != nil {
			return Batch{}, errors.WithStack(err)
		}
		numRows, frame, err := msgp.ReadInt64Bytes(frame)
		if err != nil {
			return Batch{}, errors.WithStack(err)
		}
		data, _, err := msgp.ReadBytesBytes(frame, nil)
		if err != nil {
			return Batch{}, errors.WithStack(err)
		}
		return Batch{NumRows: numRows, Bytes: data}, nil
	}
}

func (m *localMergeStream) Close() error {
	var errs []error
	for _, f := range m.files[m.idx:] {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
