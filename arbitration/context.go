// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"context"

	"github.com/cascadedb/memarb/memory"
)

// ctxKey is the key under which a context carries {requestor}: present
// on ctx exactly while an arbitration is executing on the call path that
// produced ctx. Go has no per-thread storage the way the original's
// thread-local does, so the idiomatic translation threads the marker
// through context.Context instead of reaching for goroutine-local-storage
// tricks. The marker reaches only code that is handed such a context:
// GrowMemory and the memory.Reclaimer methods take no context.Context.
type ctxKey struct{}

// WithArbitration returns a derived context marked as "currently
// arbitrating for requestor". It is the scope-entry half of the
// source's RAII guard; scope-exit is implicit once the derived context
// falls out of scope - Go has no destructors, so nothing needs undoing.
func WithArbitration(parent context.Context, requestor *memory.Pool) context.Context {
	return context.WithValue(parent, ctxKey{}, requestor)
}

// UnderArbitration reports the requestor pool of the arbitration
// currently in progress on ctx's call path, if any. A reclaim
// implementation that itself needs more memory on the same call path
// consults this to decide between a reclaimable-section guarded
// maybeReserve and failing fast with NonReclaimable (spec §4.4).
func UnderArbitration(ctx context.Context) (*memory.Pool, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	return v.(*memory.Pool), true
}
