/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSpillAndMergeRoundtrip(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	want := []Batch{
		{NumRows: 3, Bytes: []byte("abc")},
		{NumRows: 5, Bytes: []byte("defgh")},
		{NumRows: 0, Bytes: nil},
	}
	for _, b := range want {
		if err := l.Spill("p0", b); err != nil {
			t.Fatalf("Spill: %v", err)
		}
	}

	manifest, err := l.FinalizeSpill("p0")
	if err != nil {
		t.Fatalf("FinalizeSpill: %v", err)
	}
	if len(manifest.Entries) != 1 {
		t.Fatalf("expected 1 manifest entry, got %d", len(manifest.Entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "p0.scratch")); !os.IsNotExist(err) {
		t.Fatalf("expected scratch file removed, stat err=%v", err)
	}

	stream, err := l.StartMerge(manifest)
	if err != nil {
		t.Fatalf("StartMerge: %v", err)
	}
	defer stream.Close()

	var got []Batch
	for {
		b, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, b)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d batches back, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].NumRows != want[i].NumRows || !bytes.Equal(got[i].Bytes, want[i].Bytes) {
			t.Fatalf("batch %d mismatch: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLocalFinalizeSpillWithoutSpillIsNoop(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer l.Close()

	m, err := l.FinalizeSpill("never-spilled")
	if err != nil {
		t.Fatalf("FinalizeSpill: %v", err)
	}
	if len(m.Entries) != 0 {
		t.Fatalf("expected no entries for a partition that never spilled, got %d", len(m.Entries))
	}
}

func TestLocalSweepsOrphanedScratchFiles(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "stale.scratch")
	if err := os.WriteFile(orphan, []byte("leftover"), 0o644); err != nil {
		t.Fatalf("seeding orphan file: %v", err)
	}

	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphaned scratch file to be removed, stat err=%v", err)
	}
}
