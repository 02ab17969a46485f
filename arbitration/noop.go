// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"fmt"
	"sync"

	"github.com/cascadedb/memarb/memory"
)

// Noop is the fixed-isolation arbitrator variant of spec.md §4.3
// Variant A: no global limit, no sharing. reserveMemory grows a new
// leaf straight to its maxCapacity; growMemory always fails, since a
// pool under Noop never needs more than the max it was already given.
type Noop struct {
	mu    sync.Mutex
	stats Stats
}

// NewNoop constructs a Noop arbitrator. capacity is recorded only for
// Stats().MaxCapacityBytes; Noop never enforces a node-wide ceiling of
// its own (each pool is capped independently by its own maxCapacity).
func NewNoop(capacity int64) *Noop {
	return &Noop{stats: Stats{MaxCapacityBytes: capacity}}
}

func (n *Noop) ReserveMemory(pool *memory.Pool, want int64) bool {
	n.mu.Lock()
	n.stats.NumReserveRequest++
	n.mu.Unlock()

	max := pool.MaxCapacity()
	grant := want
	if grant > max {
		grant = max
	}
	if grant <= 0 {
		return false
	}
	if err := pool.Grow(grant); err != nil {
		return false
	}
	return true
}

func (n *Noop) ReleaseMemory(pool *memory.Pool) {
	n.mu.Lock()
	n.stats.NumReleaseRequest++
	n.mu.Unlock()
	pool.Shrink(pool.Capacity())
}

// GrowMemory always fails: under fixed per-query isolation a pool was
// already granted up to its maxCapacity on join, so there is nothing
// more to give.
func (n *Noop) GrowMemory(requestor *memory.Pool, _ []*memory.Pool, _ int64) bool {
	n.mu.Lock()
	n.stats.NumRequests++
	n.stats.NumFailures++
	n.mu.Unlock()
	_ = requestor
	return false
}

func (n *Noop) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

func (n *Noop) String() string {
	s := n.Stats()
	return fmt.Sprintf("ARBITRATOR[noop CAPACITY[max=%d]]", s.MaxCapacityBytes)
}
