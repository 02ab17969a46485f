/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sortbuffer

import "sync/atomic"

// ReclaimGuard is the "shared nonReclaimableSection flag" of spec.md
// §4.5: true while an operator's row container is mid-mutation and
// therefore not in a state a concurrent Reclaim call could safely
// observe. A Buffer enters the guard only around the append that
// grows its row slice; everywhere else - including while blocked
// inside MaybeReserve waiting on arbitration - the container is
// already in a consistent, spillable shape.
type ReclaimGuard struct {
	busy atomic.Bool
}

func NewReclaimGuard() *ReclaimGuard { return &ReclaimGuard{} }

func (g *ReclaimGuard) Enter() { g.busy.Store(true) }
func (g *ReclaimGuard) Exit()  { g.busy.Store(false) }
func (g *ReclaimGuard) Busy() bool { return g.busy.Load() }
