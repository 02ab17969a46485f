// Package reclaim implements the default (aggregate) Reclaimer - the
// policy a pool falls back to when it owns no specialized reclaim logic
// of its own: sum and logical-OR over children, reclaim largest first.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package reclaim

import (
	"fmt"
	"time"
)

// Stats accumulates per-reclaimer counters. Every field is monotonically
// increasing; Sub computes a coordinate-wise difference against an
// earlier snapshot.
type Stats struct {
	NumNonReclaimableAttempts int64
	ReclaimedBytes            int64
	ReclaimExecTime           time.Duration
	ReclaimWaitTime           time.Duration
}

// Sub returns a-b, coordinate-wise. Negative results indicate the
// receiver was not actually taken after b (caller bug), and are
// returned as-is rather than clamped, so a test can catch the mistake.
func (a Stats) Sub(b Stats) Stats {
	return Stats{
		NumNonReclaimableAttempts: a.NumNonReclaimableAttempts - b.NumNonReclaimableAttempts,
		ReclaimedBytes:            a.ReclaimedBytes - b.ReclaimedBytes,
		ReclaimExecTime:           a.ReclaimExecTime - b.ReclaimExecTime,
		ReclaimWaitTime:           a.ReclaimWaitTime - b.ReclaimWaitTime,
	}
}

func (a Stats) Equal(b Stats) bool { return a == b }

// Less reports whether a is strictly less than b in at least one field
// and not greater in any other - the same documented-non-total-order
// used by Arbitrator.Stats. Never used to sort reclaimers.
func (a Stats) Less(b Stats) bool {
	lessSomewhere := a.NumNonReclaimableAttempts < b.NumNonReclaimableAttempts ||
		a.ReclaimedBytes < b.ReclaimedBytes ||
		a.ReclaimExecTime < b.ReclaimExecTime ||
		a.ReclaimWaitTime < b.ReclaimWaitTime
	greaterSomewhere := a.NumNonReclaimableAttempts > b.NumNonReclaimableAttempts ||
		a.ReclaimedBytes > b.ReclaimedBytes ||
		a.ReclaimExecTime > b.ReclaimExecTime ||
		a.ReclaimWaitTime > b.ReclaimWaitTime
	return lessSomewhere && !greaterSomewhere
}

func (a Stats) String() string {
	return fmt.Sprintf("RECLAIM[nonReclaimable=%d reclaimed=%d exec=%s wait=%s]",
		a.NumNonReclaimableAttempts, a.ReclaimedBytes, a.ReclaimExecTime, a.ReclaimWaitTime)
}

// run times f, adding its elapsed duration to execTime and its return
// value to ReclaimedBytes on s. Mirrors the teacher's habit of timing
// wrapper helpers living next to the struct they instrument (see
// cmn/cos time helpers) rather than open-coding time.Since at each call
// site.
func (s *Stats) run(f func() int64) int64 {
	start := time.Now()
	freed := f()
	s.ReclaimExecTime += time.Since(start)
	s.ReclaimedBytes += freed
	return freed
}
