/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cascadedb/memarb/arbitration"
	"github.com/cascadedb/memarb/reclaim"
	"github.com/cascadedb/memarb/sys"
)

type fakeArbStatser struct{ st arbitration.Stats }

func (f fakeArbStatser) Stats() arbitration.Stats { return f.st }

type fakeProcSnapshotter struct{ snap sys.ProcessSnapshot }

func (f fakeProcSnapshotter) ProcessSnapshot() sys.ProcessSnapshot { return f.snap }

func TestCollectorEmitsArbitrationCounters(t *testing.T) {
	arb := fakeArbStatser{st: arbitration.Stats{
		NumRequests:       7,
		NumSucceeded:      5,
		NumAborted:        1,
		NumFailures:       1,
		NumReclaimedBytes: 4096,
		MaxCapacityBytes:  1 << 30,
		FreeCapacityBytes: 1 << 20,
		ArbitrationTime:   2 * time.Second,
	}}
	c := NewCollector(arb, nil)

	if got := testutil.CollectAndCount(c); got != 14 {
		t.Fatalf("expected 14 metrics (proc snapshot absent), got %d", got)
	}
}

func TestCollectorIncludesProcessGaugesWhenAvailable(t *testing.T) {
	arb := fakeArbStatser{st: arbitration.Stats{NumRequests: 1}}
	proc := fakeProcSnapshotter{snap: sys.ProcessSnapshot{ResidentBytes: 123456, CPUPercent: 12.5}}
	c := NewCollector(arb, proc)

	if got := testutil.CollectAndCount(c); got != 16 {
		t.Fatalf("expected 16 metrics including process gauges, got %d", got)
	}
}

func TestReclaimCollectorEmitsReclaimCounters(t *testing.T) {
	rc := fakeReclaimStatser{st: reclaim.Stats{
		NumNonReclaimableAttempts: 3,
		ReclaimedBytes:            2048,
		ReclaimExecTime:           500 * time.Millisecond,
		ReclaimWaitTime:           100 * time.Millisecond,
	}}
	c := NewReclaimCollector(rc)

	if got := testutil.CollectAndCount(c); got != 4 {
		t.Fatalf("expected 4 metrics, got %d", got)
	}
}

type fakeReclaimStatser struct{ st reclaim.Stats }

func (f fakeReclaimStatser) Stats() reclaim.Stats { return f.st }
