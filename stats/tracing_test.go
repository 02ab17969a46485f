/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"context"
	"testing"
)

func TestNewTracerProviderReturnsUsableTracer(t *testing.T) {
	tp := NewTracerProvider()
	if tp == nil {
		t.Fatal("expected a non-nil TracerProvider")
	}
	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop")
	if span == nil {
		t.Fatal("expected a non-nil span")
	}
	span.End()
}
