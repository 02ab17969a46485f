// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package mono

// Since returns the elapsed nanoseconds since a NanoTime() reading.
// Shared by both the linkname-based ("mono" build tag) and the
// stdlib-based NanoTime implementations.
func Since(started int64) int64 { return NanoTime() - started }
