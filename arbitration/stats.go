// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"fmt"
	"time"
)

// Stats accumulates the counters, durations and gauges spec.md §3
// assigns to an Arbitrator. Counter and duration fields are
// monotonically increasing within one arbitrator's lifetime; the gauge
// fields (MaxCapacityBytes, FreeCapacityBytes) are instantaneous and
// taken from the receiver on Sub/difference, matching §4.6.
type Stats struct {
	NumRequests               int64
	NumSucceeded              int64
	NumAborted                int64
	NumFailures               int64
	NumReserveRequest         int64
	NumReleaseRequest         int64
	NumShrunkBytes            int64
	NumReclaimedBytes         int64
	NumNonReclaimableAttempts int64

	QueueTime       time.Duration
	ArbitrationTime time.Duration
	ReclaimTime     time.Duration

	MaxCapacityBytes  int64
	FreeCapacityBytes int64
}

// Sub returns the coordinate-wise difference a-b for every counter and
// duration field; the gauge fields are taken from a, per spec §4.6.
func (a Stats) Sub(b Stats) Stats {
	d := Stats{
		NumRequests:               a.NumRequests - b.NumRequests,
		NumSucceeded:              a.NumSucceeded - b.NumSucceeded,
		NumAborted:                a.NumAborted - b.NumAborted,
		NumFailures:               a.NumFailures - b.NumFailures,
		NumReserveRequest:         a.NumReserveRequest - b.NumReserveRequest,
		NumReleaseRequest:         a.NumReleaseRequest - b.NumReleaseRequest,
		NumShrunkBytes:            a.NumShrunkBytes - b.NumShrunkBytes,
		NumReclaimedBytes:         a.NumReclaimedBytes - b.NumReclaimedBytes,
		NumNonReclaimableAttempts: a.NumNonReclaimableAttempts - b.NumNonReclaimableAttempts,
		QueueTime:                 a.QueueTime - b.QueueTime,
		ArbitrationTime:           a.ArbitrationTime - b.ArbitrationTime,
		ReclaimTime:               a.ReclaimTime - b.ReclaimTime,
	}
	d.MaxCapacityBytes = a.MaxCapacityBytes
	d.FreeCapacityBytes = a.FreeCapacityBytes
	return d
}

func (a Stats) Equal(b Stats) bool { return a == b }

// Less is the documented non-total-order from spec.md §9: strictly less
// in at least one counter or duration field and not greater in any
// other; the gauge fields (MaxCapacityBytes, FreeCapacityBytes) are not
// compared. It is never used
// to sort arbitration candidates - Shared sorts on explicit FreeBytes /
// ReclaimableBytes fields instead (see candidate.go).
func (a Stats) Less(b Stats) bool {
	type pair struct{ x, y int64 }
	pairs := []pair{
		{a.NumRequests, b.NumRequests},
		{a.NumSucceeded, b.NumSucceeded},
		{a.NumAborted, b.NumAborted},
		{a.NumFailures, b.NumFailures},
		{a.NumReserveRequest, b.NumReserveRequest},
		{a.NumReleaseRequest, b.NumReleaseRequest},
		{a.NumShrunkBytes, b.NumShrunkBytes},
		{a.NumReclaimedBytes, b.NumReclaimedBytes},
		{a.NumNonReclaimableAttempts, b.NumNonReclaimableAttempts},
	}
	durPairs := []struct{ x, y time.Duration }{
		{a.QueueTime, b.QueueTime},
		{a.ArbitrationTime, b.ArbitrationTime},
		{a.ReclaimTime, b.ReclaimTime},
	}
	var lessSomewhere, greaterSomewhere bool
	for _, p := range pairs {
		if p.x < p.y {
			lessSomewhere = true
		}
		if p.x > p.y {
			greaterSomewhere = true
		}
	}
	for _, p := range durPairs {
		if p.x < p.y {
			lessSomewhere = true
		}
		if p.x > p.y {
			greaterSomewhere = true
		}
	}
	return lessSomewhere && !greaterSomewhere
}

func (a Stats) String() string {
	return fmt.Sprintf("ARBITRATOR.STATS[req=%d ok=%d aborted=%d failed=%d reclaimed=%d free=%d max=%d]",
		a.NumRequests, a.NumSucceeded, a.NumAborted, a.NumFailures,
		a.NumReclaimedBytes, a.FreeCapacityBytes, a.MaxCapacityBytes)
}
