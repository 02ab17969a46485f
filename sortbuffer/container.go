/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sortbuffer

import (
	"bytes"
	"sort"
)

// rowSlotOverheadBytes is the fixed per-row accounting cost the
// heuristic in ensureInputFits assumes, standing in for the real
// row-container's fixed-width column layout (out of scope here per
// spec.md §1).
const rowSlotOverheadBytes = 32

// Row is one already-serialized record. The concrete sort algorithm
// and row layout are out of scope; Row is opaque bytes compared with a
// caller-supplied comparator.
type Row []byte

// Vector is one unit of input handed to AddInput.
type Vector struct {
	Rows []Row
	// FlatVarlenBytes is the estimated size of any variable-length
	// payload carried by Rows, tracked separately from row-slot
	// accounting per the heuristic in spec.md §4.5 step 4.
	FlatVarlenBytes int64
}

func (v Vector) numRows() int { return len(v.Rows) }

// rowContainer is the in-memory accumulation buffer a Buffer spills
// from or sorts in place.
type rowContainer struct {
	rows            []Row
	usedVarlenBytes int64

	capacityRows        int64
	capacityVarlenBytes int64

	less func(a, b Row) bool
}

func newRowContainer(less func(a, b Row) bool) *rowContainer {
	if less == nil {
		less = func(a, b Row) bool { return bytes.Compare(a, b) < 0 }
	}
	return &rowContainer{less: less}
}

func (rc *rowContainer) freeRows() int64        { return rc.capacityRows - int64(len(rc.rows)) }
func (rc *rowContainer) freeVarlenBytes() int64 { return rc.capacityVarlenBytes - rc.usedVarlenBytes }

// sizeIncrement estimates the extra bytes numRows more rows (with
// flatBytes of variable-length payload) would cost.
func (rc *rowContainer) sizeIncrement(numRows int, flatBytes int64) int64 {
	return int64(numRows)*rowSlotOverheadBytes + flatBytes
}

// growCapacity enlarges the container's row/varlen headroom in
// proportion to a capacity grant of n bytes, split evenly between
// fixed row slots and variable-length headroom.
func (rc *rowContainer) growCapacity(n int64) {
	rc.capacityRows += n / (2 * rowSlotOverheadBytes)
	rc.capacityVarlenBytes += n / 2
}

func (rc *rowContainer) append(v Vector) {
	rc.rows = append(rc.rows, v.Rows...)
	rc.usedVarlenBytes += v.FlatVarlenBytes
}

func (rc *rowContainer) totalRowBytes() int64 {
	var n int64
	for _, r := range rc.rows {
		n += int64(len(r))
	}
	return n
}

func (rc *rowContainer) numRows() int { return len(rc.rows) }

func (rc *rowContainer) sort() {
	sort.Slice(rc.rows, func(i, j int) bool { return rc.less(rc.rows[i], rc.rows[j]) })
}

func (rc *rowContainer) reset() {
	rc.rows = nil
	rc.usedVarlenBytes = 0
}
