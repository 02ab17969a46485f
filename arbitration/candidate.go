// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import "github.com/cascadedb/memarb/memory"

// candidate is the transient view spec.md §3 calls
// Arbitrator.Candidate: a snapshot of one peer pool's reclaim profile
// taken once at the start of an arbitration round. Sorting and
// selection operate on this snapshot, not on the live pool, so a peer
// racing to reserve/release mid-round cannot perturb candidate order.
type candidate struct {
	pool             *memory.Pool
	reclaimable      bool
	reclaimableBytes int64
	freeBytes        int64
}

func snapshotCandidates(peers []*memory.Pool) []candidate {
	out := make([]candidate, 0, len(peers))
	for _, p := range peers {
		bytes, ok := p.ReclaimableBytes()
		out = append(out, candidate{
			pool:             p,
			reclaimable:      ok,
			reclaimableBytes: bytes,
			freeBytes:        p.AvailableReservation(),
		})
	}
	return out
}
