//go:build !mono

package mono

import "time"

var start = time.Now()

// NanoTime returns a monotonic timestamp in nanoseconds. Values are only
// meaningful relative to each other; they carry no wall-clock meaning.
func NanoTime() int64 { return int64(time.Since(start)) }
