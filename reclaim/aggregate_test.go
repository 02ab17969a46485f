// Package reclaim implements the default (aggregate) Reclaimer - the
// policy a pool falls back to when it owns no specialized reclaim logic
// of its own: sum and logical-OR over children, reclaim largest first.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package reclaim

import (
	"errors"
	"testing"

	"github.com/cascadedb/memarb/memory"
)

// fakeLeafReclaimer stands in for a specialized operator reclaimer
// (e.g. sortbuffer.Reclaimer) without pulling in that package, which
// would make reclaim depend on sortbuffer instead of the other way
// around.
type fakeLeafReclaimer struct {
	bytes       int64
	reclaimable bool
	aborted     bool
}

func (f *fakeLeafReclaimer) ReclaimableBytes(*memory.Pool) (int64, bool) {
	return f.bytes, f.reclaimable
}

func (f *fakeLeafReclaimer) Reclaim(_ *memory.Pool, target int64) int64 {
	if !f.reclaimable {
		return 0
	}
	freed := f.bytes
	if target > 0 && target < freed {
		freed = target
	}
	f.bytes -= freed
	if f.bytes == 0 {
		f.reclaimable = false
	}
	return freed
}

func (f *fakeLeafReclaimer) Abort(*memory.Pool, error) error {
	f.aborted = true
	return nil
}

func newTestTree() (root, q1, q2 *memory.Pool, r1, r2 *fakeLeafReclaimer) {
	agg := New()
	root = memory.NewRoot("root", 0, nil)
	root.SetReclaimer(agg)

	r1, r2 = &fakeLeafReclaimer{bytes: 10, reclaimable: true}, &fakeLeafReclaimer{bytes: 30, reclaimable: true}
	q1 = root.NewChild("q1", memory.Leaf, 0, r1)
	q2 = root.NewChild("q2", memory.Leaf, 0, r2)
	return
}

func TestAggregateReclaimableBytesSumsAndOrs(t *testing.T) {
	root, _, _, _, _ := newTestTree()
	agg := root.GetReclaimer().(*Aggregate)

	bytes, ok := agg.ReclaimableBytes(root)
	if !ok || bytes != 40 {
		t.Fatalf("expected (40, true), got (%d, %v)", bytes, ok)
	}
}

func TestAggregateReclaimableBytesFalseWhenNoChildReclaimable(t *testing.T) {
	agg := New()
	root := memory.NewRoot("root", 0, nil)
	root.SetReclaimer(agg)
	root.NewChild("q1", memory.Leaf, 0, &fakeLeafReclaimer{bytes: 0, reclaimable: false})

	bytes, ok := agg.ReclaimableBytes(root)
	if ok || bytes != 0 {
		t.Fatalf("expected (0, false), got (%d, %v)", bytes, ok)
	}
}

func TestAggregateReclaimLargestFirst(t *testing.T) {
	root, q1, q2, r1, r2 := newTestTree()
	agg := root.GetReclaimer().(*Aggregate)
	// Reclaim orders children by reserved bytes; reserve in proportion to
	// each child's reclaimable bytes so q2 is the larger one.
	_ = q1.Grow(10)
	_ = q1.Reserve(10)
	_ = q2.Grow(30)
	_ = q2.Reserve(30)

	freed := agg.Reclaim(root, 25)
	if freed < 25 {
		t.Fatalf("expected at least 25 bytes freed, got %d", freed)
	}
	// q2 (30 bytes, larger) must be drained before q1 (10 bytes) is touched.
	if r2.bytes != 5 {
		t.Errorf("expected q2 (the larger child) to be reclaimed first, residual=%d", r2.bytes)
	}
	if r1.bytes != 10 {
		t.Errorf("expected q1 untouched while q2 alone satisfied target, residual=%d", r1.bytes)
	}
	_ = q2
}

func TestAggregateReclaimAsMuchAsPossible(t *testing.T) {
	root, _, _, r1, r2 := newTestTree()
	agg := root.GetReclaimer().(*Aggregate)

	freed := agg.Reclaim(root, 0)
	if freed != 40 {
		t.Fatalf("expected target=0 to drain everything (40), got %d", freed)
	}
	if r1.bytes != 0 || r2.bytes != 0 {
		t.Errorf("expected both children drained, got r1=%d r2=%d", r1.bytes, r2.bytes)
	}
}

func TestAggregateAbortForbiddenOnLeaf(t *testing.T) {
	agg := New()
	root := memory.NewRoot("root", 0, nil)
	leaf := root.NewChild("q1", memory.Leaf, 0, nil)

	if err := agg.Abort(leaf, errors.New("victim")); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestAggregateAbortForwardsToChildren(t *testing.T) {
	root, _, _, r1, r2 := newTestTree()
	agg := root.GetReclaimer().(*Aggregate)

	cause := errors.New("query killed")
	if err := agg.Abort(root, cause); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r1.aborted || !r2.aborted {
		t.Errorf("expected both children aborted, got r1=%v r2=%v", r1.aborted, r2.aborted)
	}
}

func TestAggregateStatsAccumulate(t *testing.T) {
	root, _, _, _, _ := newTestTree()
	agg := root.GetReclaimer().(*Aggregate)

	before := agg.Stats()
	agg.Reclaim(root, 5)
	after := agg.Stats()

	if !before.Less(after) {
		t.Fatalf("expected stats to have strictly advanced: before=%v after=%v", before, after)
	}
	if after.ReclaimedBytes < 5 {
		t.Errorf("expected ReclaimedBytes >= 5, got %d", after.ReclaimedBytes)
	}
}
