// Package reclaim implements the default (aggregate) Reclaimer - the
// policy a pool falls back to when it owns no specialized reclaim logic
// of its own: sum and logical-OR over children, reclaim largest first.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package reclaim

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/cascadedb/memarb/cmn/cos"
	"github.com/cascadedb/memarb/cmn/debug"
	"github.com/cascadedb/memarb/cmn/nlog"
	"github.com/cascadedb/memarb/memory"
)

// ErrUnsupported is returned by Abort when called against a leaf pool:
// leaves own their reclaim policy directly and are never routed through
// the aggregate forwarding path.
var ErrUnsupported = errors.New("reclaim: abort is unsupported on a leaf pool")

// Aggregate is the default Reclaimer every non-leaf pool gets unless an
// operator attaches a specialized one (see package sortbuffer). It owns
// no bytes itself: it only sums and forwards to children.
type Aggregate struct {
	mu    sync.Mutex
	stats Stats
}

// New constructs an Aggregate reclaimer. Aggregates are stateless aside
// from their Stats accumulator, so one instance may be shared by every
// non-leaf pool in a tree, or a fresh one may be attached per pool -
// both are safe.
func New() *Aggregate { return &Aggregate{} }

// ReclaimableBytes sums children's reclaimable bytes and logical-ORs
// their reclaimability. Always false for a leaf (leaves report through
// their own specialized reclaimer, never this one).
func (a *Aggregate) ReclaimableBytes(pool *memory.Pool) (int64, bool) {
	if pool.Kind() == memory.Leaf {
		return 0, false
	}
	var (
		sum         int64
		reclaimable bool
	)
	for _, child := range pool.Children() {
		b, ok := child.ReclaimableBytes()
		if ok {
			reclaimable = true
			sum += b
		}
	}
	debug.Assert(reclaimable || sum == 0)
	return sum, reclaimable
}

// Reclaim gathers live children under the pool's lock, sorts them
// descending by reserved bytes, and reclaims from the largest first
// until cumulative freed reaches target (target<=0 means "as much as
// possible").
func (a *Aggregate) Reclaim(pool *memory.Pool, target int64) int64 {
	children := pool.Children()
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].ReservedBytes() > children[j].ReservedBytes()
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.run(func() int64 {
		var freed int64
		for _, child := range children {
			if target > 0 && freed >= target {
				break
			}
			remaining := int64(0)
			if target > 0 {
				remaining = target - freed
			}
			freed += child.Reclaim(remaining)
		}
		return freed
	})
}

// Abort is forbidden on leaves and forwards directly to every child's
// own reclaimer (not via the child pool's Abort, which would re-route
// back up through this same aggregate on the way to its root).
func (a *Aggregate) Abort(pool *memory.Pool, cause error) error {
	if pool.Kind() == memory.Leaf {
		return ErrUnsupported
	}
	errs := cos.NewErrs()
	for _, child := range pool.Children() {
		r := child.GetReclaimer()
		if r == nil {
			continue
		}
		if err := r.Abort(child, cause); err != nil {
			nlog.Warningf("reclaim: abort of %s: %v", child.Name(), err)
			errs.Add(err)
		}
	}
	if errs.Cnt() > 0 {
		_, joined := errs.JoinErr()
		return joined
	}
	return nil
}

// Stats returns a snapshot of this reclaimer's accumulated counters.
func (a *Aggregate) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// NonReclaimableAttempt records a reclaim request that arrived while
// the subtree could not honor it, per spec §7's NonReclaimable policy:
// logged, counted, zero bytes returned.
func (a *Aggregate) NonReclaimableAttempt() {
	a.mu.Lock()
	a.stats.NumNonReclaimableAttempts++
	a.mu.Unlock()
}
