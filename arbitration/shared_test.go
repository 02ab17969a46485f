// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"sync"
	"testing"

	"github.com/cascadedb/memarb/config"
	"github.com/cascadedb/memarb/memory"
)

// fakeReclaimer is a minimal spillable-leaf stand-in, grounded the same
// way reclaim's own tests stand in for package sortbuffer: a fixed pool
// of reclaimable bytes drained on demand.
type fakeReclaimer struct {
	mu          sync.Mutex
	bytes       int64
	reclaimable bool
	aborted     bool
}

func (f *fakeReclaimer) ReclaimableBytes(*memory.Pool) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes, f.reclaimable
}

func (f *fakeReclaimer) Reclaim(_ *memory.Pool, target int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func (f *fakeReclaimer) Abort(*memory.Pool, error) error {
	f.mu.Lock()
	f.aborted = true
	f.mu.Unlock()
	return nil
}

func mustGrow(t *testing.T, p *memory.Pool, n int64) {
	t.Helper()
	if err := p.Grow(n); err != nil {
		t.Fatalf("Grow(%d) on %s: %v", n, p.Name(), err)
	}
}

// TestSuccessfulDynamicGrant is spec §8 scenario 2.
func TestSuccessfulDynamicGrant(t *testing.T) {
	arb := NewShared(config.Config{Capacity: 100 * mib})
	t.Cleanup(func() { arb.Close() })
	// Nothing is free while the leaves join, so ReserveMemory grants them
	// no initial capacity and Q1/Q2 end up at exactly 40MiB each.
	arb.freeCapacity = 0
	root := memory.NewRoot("root", 100*mib, arb)
	q1 := root.NewChild("q1", memory.Leaf, 0, nil)
	q2 := root.NewChild("q2", memory.Leaf, 0, nil)
	mustGrow(t, q1, 40*mib)
	mustGrow(t, q2, 40*mib)
	arb.freeCapacity = 20 * mib // 100 - 40 - 40 already granted to Q1/Q2

	ok := arb.GrowMemory(q1, []*memory.Pool{q2}, 20*mib)
	if !ok {
		t.Fatal("expected grant to succeed")
	}
	if got := q1.Capacity(); got != 60*mib {
		t.Fatalf("expected q1.capacity=60MiB, got %d", got)
	}
	if got := q2.Capacity(); got != 40*mib {
		t.Fatalf("expected q2 untouched at 40MiB, got %d", got)
	}
	if arb.Stats().NumSucceeded != 1 {
		t.Fatalf("expected NumSucceeded=1, got %d", arb.Stats().NumSucceeded)
	}
	if got := arb.Stats().FreeCapacityBytes; got != 0 {
		t.Fatalf("expected freeCapacity to be fully debited to 0, got %d", got)
	}
}

// TestReclaimBySpill is spec §8 scenario 3.
func TestReclaimBySpill(t *testing.T) {
	arb := NewShared(config.Config{Capacity: 100 * mib})
	t.Cleanup(func() { arb.Close() })
	arb.freeCapacity = 0
	root := memory.NewRoot("root", 100*mib, arb)
	q1 := root.NewChild("q1", memory.Leaf, 0, nil)
	r2 := &fakeReclaimer{bytes: 10 * mib, reclaimable: true}
	q2 := root.NewChild("q2", memory.Leaf, 0, r2)
	mustGrow(t, q1, 40*mib)
	mustGrow(t, q2, 40*mib)
	// q2 has no unused free capacity: it is entirely reserved, forcing
	// the arbitration into the reclaim (spill) pass rather than the
	// free-capacity pass.
	if err := q2.Reserve(40 * mib); err != nil {
		t.Fatalf("q2.Reserve: %v", err)
	}

	ok := arb.GrowMemory(q1, []*memory.Pool{q2}, 10*mib)
	if !ok {
		t.Fatal("expected grant to succeed via spill reclaim")
	}
	if arb.Stats().NumReclaimedBytes < 10*mib {
		t.Fatalf("expected NumReclaimedBytes >= 10MiB, got %d", arb.Stats().NumReclaimedBytes)
	}
	if r2.bytes != 0 {
		t.Fatalf("expected q2's reclaimer fully drained, got %d bytes left", r2.bytes)
	}
}

// TestOOMWithAbort is spec §8 scenario 4.
func TestOOMWithAbort(t *testing.T) {
	arb := NewShared(config.Config{Capacity: 100 * mib})
	t.Cleanup(func() { arb.Close() })
	arb.freeCapacity = 0
	root := memory.NewRoot("root", 100*mib, arb)
	q1 := root.NewChild("q1", memory.Leaf, 0, nil)
	r2 := &fakeReclaimer{bytes: 0, reclaimable: false}
	q2 := root.NewChild("q2", memory.Leaf, 0, r2)
	mustGrow(t, q1, 50*mib)
	mustGrow(t, q2, 50*mib)
	_ = q1.Reserve(50 * mib)
	_ = q2.Reserve(50 * mib)

	ok := arb.GrowMemory(q1, []*memory.Pool{q2}, 1*mib)
	if !ok {
		t.Fatal("expected grant to succeed after aborting q2")
	}
	if !r2.aborted {
		t.Fatal("expected q2 (equal/larger capacity) to be selected as OOM victim")
	}
	if !q2.Aborted() {
		t.Fatal("expected q2.Aborted() to be true")
	}
	if arb.Stats().NumAborted != 1 {
		t.Fatalf("expected NumAborted=1, got %d", arb.Stats().NumAborted)
	}
}

// TestRequestorAsVictim is spec §8 scenario 5.
func TestRequestorAsVictim(t *testing.T) {
	arb := NewShared(config.Config{Capacity: 100 * mib})
	t.Cleanup(func() { arb.Close() })
	arb.freeCapacity = 0
	root := memory.NewRoot("root", 100*mib, arb)
	q1 := root.NewChild("q1", memory.Leaf, 0, nil)
	mustGrow(t, q1, 90*mib)
	_ = q1.Reserve(90 * mib)

	ok := arb.GrowMemory(q1, nil, 20*mib)
	if ok {
		t.Fatal("expected arbitration to fail: requestor is the largest candidate")
	}
	if got := q1.Capacity(); got != 90*mib {
		t.Fatalf("expected requestor untouched at 90MiB, got %d", got)
	}
	if arb.Stats().NumFailures != 1 {
		t.Fatalf("expected NumFailures=1, got %d", arb.Stats().NumFailures)
	}
}

// TestSerializationUnderContention is spec §8 scenario 6: N goroutines
// call GrowMemory concurrently; a test hook counts concurrent
// executions inside arbitrate and must never observe more than one.
func TestSerializationUnderContention(t *testing.T) {
	arb := NewShared(config.Config{Capacity: 1000 * mib})
	t.Cleanup(func() { arb.Close() })
	root := memory.NewRoot("root", 1000*mib, arb)

	var (
		mu         sync.Mutex
		concurrent int
		maxSeen    int
	)
	arb.OnArbitrateStart = func() {
		mu.Lock()
		concurrent++
		if concurrent > maxSeen {
			maxSeen = concurrent
		}
		mu.Unlock()
	}
	arb.OnArbitrateEnd = func() {
		mu.Lock()
		concurrent--
		mu.Unlock()
	}

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			leaf := root.NewChild("q", memory.Leaf, 0, nil)
			arb.GrowMemory(leaf, nil, 1*mib)
		}(i)
	}
	wg.Wait()

	if maxSeen > 1 {
		t.Fatalf("observed %d concurrent arbitrations, want <=1", maxSeen)
	}
	s := arb.Stats()
	if got := s.NumSucceeded + s.NumFailures + s.NumAborted; got != s.NumRequests {
		t.Fatalf("invariant 7 violated: succeeded+failures+aborted=%d != numRequests=%d", got, s.NumRequests)
	}
}
