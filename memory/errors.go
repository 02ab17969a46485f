// Package memory implements the hierarchical memory-pool tree that
// accounts for a query's reservations, and the error kinds surfaced by
// reservation, arbitration, and reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package memory

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCapacityExceeded is returned when a reservation would push
// reservedBytes past the pool's current capacity and no grow was
// attempted (or the grow itself failed).
type ErrCapacityExceeded struct {
	Pool     string
	Capacity int64
	Wanted   int64
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("pool %q: capacity %d exceeded by request for %d more bytes", e.Pool, e.Capacity, e.Wanted)
}

// ErrAborted is returned by any accounting call against a pool that has
// been forcibly aborted by the arbitrator. It wraps the cause recorded
// by Abort so the query's final surfaced error preserves it.
type ErrAborted struct {
	Pool  string
	Cause error
}

func (e *ErrAborted) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("pool %q: aborted", e.Pool)
	}
	return fmt.Sprintf("pool %q: aborted: %v", e.Pool, e.Cause)
}

func (e *ErrAborted) Unwrap() error { return e.Cause }

// NewCapacityExceeded wraps construction with a stack trace, matching the
// "stored error object" contract §7 asks callers to preserve across abort
// propagation.
func NewCapacityExceeded(pool string, capacity, wanted int64) error {
	return errors.WithStack(&ErrCapacityExceeded{Pool: pool, Capacity: capacity, Wanted: wanted})
}

func NewAborted(pool string, cause error) error {
	return errors.WithStack(&ErrAborted{Pool: pool, Cause: cause})
}
