// Package memory implements the hierarchical memory-pool tree that
// accounts for a query's reservations, and the error kinds surfaced by
// reservation, arbitration, and reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package memory

import (
	"errors"
	"testing"
)

// fixedArb grants every ReserveMemory request up to a fixed total and
// never grows anyone - it stands in for the Noop arbitrator variant
// without importing package arbitration (which imports memory).
type fixedArb struct {
	total int64
	used  int64
}

func (a *fixedArb) ReserveMemory(pool *Pool, n int64) bool {
	if a.used+n > a.total {
		n = a.total - a.used
	}
	if n <= 0 {
		return false
	}
	a.used += n
	_ = pool.Grow(n)
	return true
}

func (a *fixedArb) ReleaseMemory(pool *Pool) {
	a.used -= pool.Capacity()
}

func (a *fixedArb) GrowMemory(*Pool, []*Pool, int64) bool { return false }

func TestNewChildReservesFromArbitrator(t *testing.T) {
	arb := &fixedArb{total: 100}
	root := NewRoot("root", 0, arb)
	leaf := root.NewChild("q1", Leaf, 40, nil)

	if got := leaf.Capacity(); got != 40 {
		t.Fatalf("expected capacity 40, got %d", got)
	}
	if got := arb.used; got != 40 {
		t.Fatalf("expected arbitrator used 40, got %d", got)
	}
}

func TestReserveRespectsCapacity(t *testing.T) {
	arb := &fixedArb{total: 100}
	root := NewRoot("root", 0, arb)
	leaf := root.NewChild("q1", Leaf, 10, nil)

	if err := leaf.Reserve(10); err != nil {
		t.Fatalf("expected reservation within capacity to succeed: %v", err)
	}
	err := leaf.Reserve(1)
	if err == nil {
		t.Fatal("expected capacity-exceeded error")
	}
	var ce *ErrCapacityExceeded
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ErrCapacityExceeded, got %T: %v", err, err)
	}
	if ce.Wanted != 1 {
		t.Errorf("expected Wanted=1, got %d", ce.Wanted)
	}
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	root := NewRoot("root", 0, nil)
	leaf := root.NewChild("q1", Leaf, 10, nil)
	_ = leaf.Grow(10)
	_ = leaf.Reserve(5)

	leaf.Release(100)
	if got := leaf.ReservedBytes(); got != 0 {
		t.Fatalf("expected reservedBytes to clamp at 0, got %d", got)
	}
}

func TestMaybeReserveGrowsThenRetries(t *testing.T) {
	grown := false
	arb := &stubGrowArb{grow: func(requestor *Pool, _ []*Pool, target int64) bool {
		grown = true
		return requestor.Grow(target) == nil
	}}
	root := NewRoot("root", 0, arb)
	// The stub grants the whole 20-byte max at join; shrink back to 5 so
	// that MaybeReserve(10) has to grow, and can, under that max.
	leaf := root.NewChild("q1", Leaf, 20, nil)
	leaf.Shrink(15)
	_ = leaf.Reserve(5)

	if err := leaf.MaybeReserve(10); err != nil {
		t.Fatalf("expected MaybeReserve to succeed after growing: %v", err)
	}
	if !grown {
		t.Fatal("expected arbitrator.GrowMemory to be invoked")
	}
}

type stubGrowArb struct {
	grow func(requestor *Pool, peers []*Pool, target int64) bool
}

func (s *stubGrowArb) ReserveMemory(pool *Pool, n int64) bool { return pool.Grow(n) == nil }
func (s *stubGrowArb) ReleaseMemory(*Pool)             {}
func (s *stubGrowArb) GrowMemory(requestor *Pool, peers []*Pool, target int64) bool {
	return s.grow(requestor, peers, target)
}

func TestAbortIsIdempotentAndBlocksReservation(t *testing.T) {
	root := NewRoot("root", 0, nil)
	leaf := root.NewChild("q1", Leaf, 0, nil)
	_ = leaf.Grow(100)

	cause := errors.New("arbitration victim")
	if err := leaf.Abort(cause); err != nil {
		t.Fatalf("first Abort should succeed: %v", err)
	}
	if err := leaf.Abort(errors.New("second cause")); err != nil {
		t.Fatalf("second Abort must be a no-op, got: %v", err)
	}

	err := leaf.Reserve(1)
	if err == nil {
		t.Fatal("expected reservation against an aborted pool to fail")
	}
	var ae *ErrAborted
	if !errors.As(err, &ae) {
		t.Fatalf("expected *ErrAborted, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected aborted error to unwrap to original cause")
	}
}

func TestDestroyRemovesFromParentAndReleasesCapacity(t *testing.T) {
	arb := &fixedArb{total: 100}
	root := NewRoot("root", 0, arb)
	leaf := root.NewChild("q1", Leaf, 30, nil)

	if len(root.Children()) != 1 {
		t.Fatalf("expected one child before Destroy")
	}
	leaf.Destroy()
	if len(root.Children()) != 0 {
		t.Fatalf("expected Destroy to remove leaf from root's children")
	}
	if arb.used != 0 {
		t.Fatalf("expected ReleaseMemory to zero arbitrator usage, got %d", arb.used)
	}
}

func TestInvariantReservedNeverExceedsCapacity(t *testing.T) {
	root := NewRoot("root", 0, nil)
	leaf := root.NewChild("q1", Leaf, 0, nil)
	_ = leaf.Grow(64)

	for i := 0; i < 10; i++ {
		_ = leaf.Reserve(10) // some of these must fail once capacity is hit
	}
	if leaf.ReservedBytes() > leaf.Capacity() {
		t.Fatalf("invariant violated: reserved=%d capacity=%d", leaf.ReservedBytes(), leaf.Capacity())
	}
}
