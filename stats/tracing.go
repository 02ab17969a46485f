/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider builds a bare OpenTelemetry TracerProvider with no
// exporter attached, per SPEC_FULL §4.10 ("OpenTelemetry spans ...
// ScopedArbitration"). A host process that wants spans to go somewhere
// registers an exporter-backed span processor on the returned provider
// before calling otel.SetTracerProvider. Without a registered span
// processor the spans arbitration.Shared starts are still created and
// ended (so attributes/status set on them are real work, not dead
// code) but are simply discarded rather than exported anywhere.
func NewTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider()
}
