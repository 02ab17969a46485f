// Package sys provides methods to read system information
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"os"
	"runtime"
	"testing"
)

func TestNumCPU(t *testing.T) {
	numReal := runtime.NumCPU()
	numVirt := NumCPU()
	if numVirt < 1 || numVirt > numReal {
		t.Errorf("number of CPUs must be between 1 and %d, got %d", numReal, numVirt)
	}
}

func TestLoadAvg(t *testing.T) {
	avg, err := LoadAverage()
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("load average: %.2f, %.2f, %.2f", avg.One, avg.Five, avg.Fifteen)
	if avg.One < 0 || avg.Five < 0 || avg.Fifteen < 0 {
		t.Errorf("load averages must be non-negative, got %+v", avg)
	}
}

func TestMaxLoad(t *testing.T) {
	if load := MaxLoad(); load < 0 {
		t.Errorf("MaxLoad must be non-negative, got %f", load)
	}
}

func TestProcessStats(t *testing.T) {
	stats, err := ProcessStats(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Mem.Resident == 0 {
		t.Errorf("expected a non-zero resident set size for the current process")
	}
}
