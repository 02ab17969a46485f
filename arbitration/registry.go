// Package arbitration implements the global capacity distributors - the
// Noop and Shared arbitrator variants - plus the arbitration marker
// pools consult to detect re-entrant allocation during reclaim.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arbitration

import (
	"sync"

	"github.com/cascadedb/memarb/cmn/debug"
	"github.com/cascadedb/memarb/config"
	"github.com/cascadedb/memarb/memory"
)

// Factory builds an Arbitrator from a Config. Custom arbitrator kinds
// register one at process init via Register.
type Factory func(cfg config.Config) memory.Arbitrator

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds factory under kind. Returns false (and does not
// overwrite) if kind is already registered, matching spec §6's
// register/unregister/create trivial process-wide registry contract.
func Register(kind string, factory Factory) bool {
	debug.Assert(kind != "", "arbitrator kind must not be empty")
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		return false
	}
	registry[kind] = factory
	return true
}

// Unregister removes kind from the registry, if present.
func Unregister(kind string) {
	registryMu.Lock()
	delete(registry, kind)
	registryMu.Unlock()
}

// Create builds the arbitrator named by cfg.Kind. An empty Kind yields
// the Noop variant (spec §6: "config.kind == "" yields the Noop
// arbitrator").
func Create(cfg config.Config) (memory.Arbitrator, error) {
	if cfg.Kind == "" {
		return NewNoop(cfg.EffectiveCapacity()), nil
	}
	registryMu.RLock()
	factory, ok := registry[cfg.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, &ErrUnknownKind{Kind: cfg.Kind}
	}
	return factory(cfg), nil
}

// ErrUnknownKind is returned by Create when cfg.Kind names no
// registered factory.
type ErrUnknownKind struct{ Kind string }

func (e *ErrUnknownKind) Error() string { return "arbitration: unknown arbitrator kind " + e.Kind }

func init() {
	Register("shared", func(cfg config.Config) memory.Arbitrator { return NewShared(cfg) })
}
