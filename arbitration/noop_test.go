// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"errors"
	"testing"

	"github.com/cascadedb/memarb/memory"
)

const mib = 1 << 20

// TestFixedCapacityIsolation is spec §8 end-to-end scenario 1: Noop
// arbitrator, maxCapacity=1MiB, a reservation past the max fails with
// CapacityExceeded and the arbitrator never records a request.
func TestFixedCapacityIsolation(t *testing.T) {
	arb := NewNoop(0)
	root := memory.NewRoot("root", 0, arb)
	leaf := root.NewChild("q1", memory.Leaf, 1*mib, nil)

	if got := leaf.Capacity(); got != 1*mib {
		t.Fatalf("expected Noop to grant the full maxCapacity on join, got %d", got)
	}

	err := leaf.Reserve(1*mib + 1)
	if err == nil {
		t.Fatal("expected reservation past maxCapacity to fail")
	}
	var ce *memory.ErrCapacityExceeded
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ErrCapacityExceeded, got %T: %v", err, err)
	}

	if got := arb.Stats().NumRequests; got != 0 {
		t.Fatalf("expected NumRequests=0 (Reserve never calls growMemory), got %d", got)
	}
}

func TestNoopGrowMemoryAlwaysFails(t *testing.T) {
	arb := NewNoop(0)
	root := memory.NewRoot("root", 0, arb)
	leaf := root.NewChild("q1", memory.Leaf, 10, nil)

	if arb.GrowMemory(leaf, nil, 1) {
		t.Fatal("expected Noop.GrowMemory to always fail")
	}
	if got := arb.Stats().NumFailures; got != 1 {
		t.Fatalf("expected NumFailures=1, got %d", got)
	}
}
