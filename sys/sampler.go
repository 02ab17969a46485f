/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"os"
	"sync"
	"time"

	"github.com/cascadedb/memarb/cmn/nlog"
)

// ProcessSnapshot is the most recent ProcessStats sample a
// ProcessSampler has taken.
type ProcessSnapshot struct {
	ResidentBytes int64
	CPUPercent    float64
}

// ProcessSampler periodically samples ProcessStats for the current
// process on a background ticker, exposing the latest result without
// blocking callers on /proc I/O.
type ProcessSampler struct {
	pid      int
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup

	mu   sync.RWMutex
	snap ProcessSnapshot
}

// NewProcessSampler constructs a sampler for the current process. It
// does not start sampling until Start is called.
func NewProcessSampler(interval time.Duration) *ProcessSampler {
	return &ProcessSampler{pid: os.Getpid(), interval: interval, stop: make(chan struct{})}
}

// Start begins the background sampling loop. Safe to call at most once.
func (s *ProcessSampler) Start() {
	s.sampleOnce()
	s.wg.Add(1)
	go s.run()
}

func (s *ProcessSampler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *ProcessSampler) sampleOnce() {
	st, err := ProcessStats(s.pid)
	if err != nil {
		nlog.Warningf("sys: sampling process stats for pid %d: %v", s.pid, err)
		return
	}
	s.mu.Lock()
	s.snap = ProcessSnapshot{ResidentBytes: int64(st.Mem.Resident), CPUPercent: st.CPU.Percent}
	s.mu.Unlock()
}

// Snapshot returns the most recent sample taken.
func (s *ProcessSampler) Snapshot() ProcessSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Stop ends the background loop and waits for it to exit.
func (s *ProcessSampler) Stop() {
	close(s.stop)
	s.wg.Wait()
}
