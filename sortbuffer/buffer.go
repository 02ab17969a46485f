// Package sortbuffer implements the SortBuffer reclaim client of
// spec.md §4.5: an operator that accumulates rows for a sort, reports
// itself to the arbitrator as reclaimable via spill, and attaches to
// its own leaf pool as that pool's Reclaimer.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sortbuffer

import (
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/teris-io/shortid"

	"github.com/cascadedb/memarb/cmn/nlog"
	"github.com/cascadedb/memarb/memory"
	"github.com/cascadedb/memarb/reclaim"
	"github.com/cascadedb/memarb/spill"
)

// State is the buffer's lifecycle position.
type State int

const (
	Initialized State = iota
	Running
	Closed
	Aborted
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Closed:
		return "closed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config gathers the operator-level spill gates of spec.md §6:
// spillEnabled, orderBySpillMemoryThreshold, spillableReservationGrowthPct,
// testSpillPct, plus the output chunking size and which Spiller backend
// to spill through.
type Config struct {
	SpillEnabled                  bool
	SpillMemoryThreshold          int64
	SpillableReservationGrowthPct int
	TestSpillPct                  int
	OutputBatchSize               int
	SpillBackendKind              string
	SpillLocation                 string
}

// Buffer is the SortBuffer reclaim client.
type Buffer struct {
	name  string
	pool  *memory.Pool
	guard *ReclaimGuard
	cfg   Config

	mu            sync.Mutex
	state         State
	rc            *rowContainer
	outputStarted bool
	outputIdx     int

	counter   int64
	spiller   spill.Spiller
	partition string
	spilled   bool
	merge     spill.MergeStream

	stats reclaim.Stats
}

// New constructs a Buffer over pool (which must be a Leaf) and attaches
// the buffer to pool as its Reclaimer, so the arbitrator's reclaim pass
// reaches it the same way it reaches any other spillable operator.
func New(name string, pool *memory.Pool, cfg Config, less func(a, b Row) bool) *Buffer {
	b := &Buffer{
		name:  name,
		pool:  pool,
		guard: NewReclaimGuard(),
		cfg:   cfg,
		rc:    newRowContainer(less),
	}
	pool.SetReclaimer(b)
	return b
}

// Start transitions Initialized -> Running.
func (b *Buffer) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Initialized {
		return errors.Errorf("sortbuffer: %s: Start called in state %s", b.name, b.state)
	}
	b.state = Running
	return nil
}

func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// AddInput appends vector's rows after ensureInputFits has, if needed,
// spilled or grown capacity to make room for them.
func (b *Buffer) AddInput(v Vector) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Running {
		return errors.Errorf("sortbuffer: %s: AddInput called in state %s", b.name, b.state)
	}
	if err := b.ensureInputFits(v); err != nil {
		return err
	}
	b.guard.Enter()
	b.rc.append(v)
	b.pool.SetUsed(b.rc.totalRowBytes())
	b.guard.Exit()
	return nil
}

// ensureInputFits is the 8-step spill decision of spec.md §4.5,
// invoked only when spilling is configured for this operator.
func (b *Buffer) ensureInputFits(v Vector) error {
	if !b.cfg.SpillEnabled {
		return nil
	}
	numRows := v.numRows()
	if numRows == 0 {
		return nil
	}

	b.counter++
	if b.cfg.TestSpillPct > 0 {
		h := xxhash.Sum64(counterBytes(b.counter))
		if h%100 < uint64(b.cfg.TestSpillPct) {
			nlog.Infof("sortbuffer: %s spilling (testSpillPct injection)", b.name)
			return b.spillLocked()
		}
	}

	if b.cfg.SpillMemoryThreshold > 0 && b.pool.CurrentBytes() > b.cfg.SpillMemoryThreshold {
		nlog.Infof("sortbuffer: %s spilling (spillMemoryThreshold exceeded)", b.name)
		return b.spillLocked()
	}

	hasVarlen := v.FlatVarlenBytes > 0
	if b.rc.freeRows() >= int64(numRows) && (!hasVarlen || b.rc.freeVarlenBytes() >= v.FlatVarlenBytes) {
		return nil
	}

	estimatedIncrementalBytes := b.rc.sizeIncrement(numRows, v.FlatVarlenBytes)
	if b.pool.AvailableReservation() >= 2*estimatedIncrementalBytes {
		if err := b.pool.Reserve(2 * estimatedIncrementalBytes); err != nil {
			nlog.Infof("sortbuffer: %s spilling (reserve failed despite headroom: %v)", b.name, err)
			return b.spillLocked()
		}
		b.rc.growCapacity(2 * estimatedIncrementalBytes)
		return nil
	}

	growTarget := 2 * estimatedIncrementalBytes
	if pct := int64(b.cfg.SpillableReservationGrowthPct); pct > 0 {
		if alt := b.pool.CurrentBytes() * pct / 100; alt > growTarget {
			growTarget = alt
		}
	}

	// The row container holds no half-written state at this point, so
	// this call may block on arbitration without the guard marking us
	// busy. b.mu is released for the duration of the call, so that an
	// arbitration (for this pool or a peer) can enter Reclaim or
	// ReclaimableBytes on this buffer and spill it meanwhile.
	b.mu.Unlock()
	err := b.pool.MaybeReserve(growTarget)
	b.mu.Lock()
	if b.state != Running {
		return errors.Errorf("sortbuffer: %s: state changed to %s while reserving", b.name, b.state)
	}
	if err == nil {
		b.rc.growCapacity(growTarget)
		return nil
	}

	nlog.Infof("sortbuffer: %s spilling (reservation growth failed: %v)", b.name, err)
	return b.spillLocked()
}

func counterBytes(i int64) []byte {
	return []byte(fmt.Sprintf("%d", i))
}

// spillLocked creates the partition's Spiller lazily, writes the
// current row container as one batch, and clears it. Caller must hold
// b.mu.
func (b *Buffer) spillLocked() error {
	if b.rc.numRows() == 0 {
		return nil
	}
	if b.spiller == nil {
		sp, err := spill.Create(b.cfg.SpillBackendKind, b.cfg.SpillLocation)
		if err != nil {
			return errors.Wrapf(err, "sortbuffer: %s: creating spiller", b.name)
		}
		b.spiller = sp
		id, err := shortid.Generate()
		if err != nil {
			id = fmt.Sprintf("%d", b.counter)
		}
		b.partition = b.name + "-" + id
	}

	batch := spill.Batch{NumRows: int64(b.rc.numRows()), Bytes: encodeRows(b.rc.rows)}
	if err := b.spiller.Spill(b.partition, batch); err != nil {
		return errors.Wrapf(err, "sortbuffer: %s: spilling partition %s", b.name, b.partition)
	}
	b.rc.reset()
	b.pool.SetUsed(0)
	b.spilled = true
	return nil
}

// NoMoreInput finalizes accumulation: either sorts the in-memory rows,
// or - if any spilling happened - spills the residual and opens a
// merge reader over the finalized manifest.
func (b *Buffer) NoMoreInput() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Running {
		return errors.Errorf("sortbuffer: %s: NoMoreInput called in state %s", b.name, b.state)
	}
	if !b.spilled {
		b.rc.sort()
		return nil
	}
	if err := b.spillLocked(); err != nil {
		return err
	}
	manifest, err := b.spiller.FinalizeSpill(b.partition)
	if err != nil {
		return errors.Wrapf(err, "sortbuffer: %s: finalizing spill", b.name)
	}
	stream, err := b.spiller.StartMerge(manifest)
	if err != nil {
		return errors.Wrapf(err, "sortbuffer: %s: starting merge", b.name)
	}
	b.merge = stream
	return nil
}

// GetOutput produces the next output batch, capped at
// cfg.OutputBatchSize rows when reading the in-memory path. When
// reading from a merge stream, one call returns one spilled batch's
// worth of rows - a coarser granularity than OutputBatchSize, since a
// spill batch is the smallest unit a backend hands back. Idempotent
// after exhaustion: returns (nil, nil).
func (b *Buffer) GetOutput() ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputStarted = true

	if b.merge != nil {
		batch, err := b.merge.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "sortbuffer: %s: reading merge stream", b.name)
		}
		return decodeRows(batch.Bytes)
	}

	if b.outputIdx >= b.rc.numRows() {
		return nil, nil
	}
	end := b.outputIdx + b.cfg.OutputBatchSize
	if b.cfg.OutputBatchSize <= 0 || end > b.rc.numRows() {
		end = b.rc.numRows()
	}
	out := b.rc.rows[b.outputIdx:end]
	b.outputIdx = end
	return out, nil
}

// Close releases the row container, the merge stream if one was opened,
// and the Spiller if one was created. Flushes nothing further: FinalizeSpill
// already happened in NoMoreInput.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Closed || b.state == Aborted {
		return nil
	}
	b.state = Closed
	var err error
	if b.merge != nil {
		err = b.merge.Close()
	}
	if b.spiller != nil {
		if cerr := b.spiller.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	b.rc.reset()
	return err
}

// --- memory.Reclaimer ---

func (b *Buffer) canReclaimLocked() bool {
	return b.cfg.SpillEnabled && b.state == Running && !b.outputStarted && b.rc.numRows() > 0 && !b.guard.Busy()
}

func (b *Buffer) ReclaimableBytes(*memory.Pool) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canReclaimLocked() {
		return 0, false
	}
	return b.pool.CurrentBytes(), true
}

func (b *Buffer) Reclaim(_ *memory.Pool, target int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canReclaimLocked() {
		b.stats.NumNonReclaimableAttempts++
		return 0
	}
	// Spilling is all-or-nothing per spec.md §4.5 ("spills all rows in
	// the container"): target is advisory only, unlike the aggregate
	// reclaimer's per-child pass-through.
	_ = target
	before := b.pool.CurrentBytes()
	if err := b.spillLocked(); err != nil {
		nlog.Warningf("sortbuffer: %s: reclaim-triggered spill failed: %v", b.name, err)
		return 0
	}
	freed := before - b.pool.CurrentBytes()
	b.stats.ReclaimedBytes += freed
	return freed
}

func (b *Buffer) Abort(_ *memory.Pool, cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Aborted {
		return nil
	}
	b.state = Aborted
	b.rc.reset()
	if b.spiller != nil {
		_ = b.spiller.Close()
	}
	_ = cause
	return nil
}

func (b *Buffer) Stats() reclaim.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("SORTBUFFER[%s state=%s rows=%d spilled=%v]", b.name, b.state, b.rc.numRows(), b.spilled)
}
