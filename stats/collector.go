// Package stats exposes Arbitrator/Reclaimer counters as a
// prometheus.Collector, grounded on the teacher's stats package's habit
// of wrapping its own Stats records for Prometheus Collect() - here via
// the standard prometheus.Collector interface directly rather than the
// teacher's registered-named-metric framework, since this module's
// metric set is a small, fixed set of already-typed Go struct fields
// rather than a cluster's open-ended, string-keyed metric registry.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cascadedb/memarb/arbitration"
	"github.com/cascadedb/memarb/reclaim"
	"github.com/cascadedb/memarb/sys"
)

// ArbitratorStatser is the subset of arbitration.Shared/arbitration.Noop
// the Collector needs.
type ArbitratorStatser interface {
	Stats() arbitration.Stats
}

// ProcessSnapshotter is satisfied by *arbitration.Shared, which owns a
// background sys.ProcessSampler per SPEC_FULL §4.11.
type ProcessSnapshotter interface {
	ProcessSnapshot() sys.ProcessSnapshot
}

// Collector adapts one arbitrator's Stats (and, if it exposes one, its
// process-memory snapshot) to Prometheus's pull model.
type Collector struct {
	arb  ArbitratorStatser
	proc ProcessSnapshotter // nil for arbitrators without a sampler (e.g. Noop)

	numRequests     *prometheus.Desc
	numSucceeded    *prometheus.Desc
	numAborted      *prometheus.Desc
	numFailures     *prometheus.Desc
	numReserve      *prometheus.Desc
	numRelease      *prometheus.Desc
	numReclaimed    *prometheus.Desc
	numShrunk       *prometheus.Desc
	numNonReclaim   *prometheus.Desc
	queueSeconds    *prometheus.Desc
	arbitSeconds    *prometheus.Desc
	reclaimSeconds  *prometheus.Desc
	maxCapacity     *prometheus.Desc
	freeCapacity    *prometheus.Desc
	processResident *prometheus.Desc
	processCPU      *prometheus.Desc
}

// NewCollector builds a Collector for arb. proc may be nil.
func NewCollector(arb ArbitratorStatser, proc ProcessSnapshotter) *Collector {
	ns := "memarb_arbitrator"
	return &Collector{
		arb:  arb,
		proc: proc,

		numRequests:     prometheus.NewDesc(ns+"_requests_total", "Total arbitration requests.", nil, nil),
		numSucceeded:    prometheus.NewDesc(ns+"_succeeded_total", "Arbitrations that granted the requested capacity.", nil, nil),
		numAborted:      prometheus.NewDesc(ns+"_aborted_total", "Arbitrations that resolved by aborting a victim pool.", nil, nil),
		numFailures:     prometheus.NewDesc(ns+"_failures_total", "Arbitrations that failed outright.", nil, nil),
		numReserve:      prometheus.NewDesc(ns+"_reserve_requests_total", "Calls to ReserveMemory.", nil, nil),
		numRelease:      prometheus.NewDesc(ns+"_release_requests_total", "Calls to ReleaseMemory.", nil, nil),
		numReclaimed:    prometheus.NewDesc(ns+"_reclaimed_bytes_total", "Bytes reclaimed via spill across all arbitrations.", nil, nil),
		numShrunk:       prometheus.NewDesc(ns+"_shrunk_bytes_total", "Bytes reclaimed from unused reserved capacity.", nil, nil),
		numNonReclaim:   prometheus.NewDesc(ns+"_non_reclaimable_attempts_total", "Reclaim attempts against a non-reclaimable pool.", nil, nil),
		queueSeconds:    prometheus.NewDesc(ns+"_queue_seconds_total", "Cumulative time requests spent waiting for the FIFO arbitration slot.", nil, nil),
		arbitSeconds:    prometheus.NewDesc(ns+"_arbitration_seconds_total", "Cumulative time spent executing arbitration (queue time excluded).", nil, nil),
		reclaimSeconds:  prometheus.NewDesc(ns+"_reclaim_seconds_total", "Cumulative time spent inside reclaimer callbacks.", nil, nil),
		maxCapacity:     prometheus.NewDesc(ns+"_max_capacity_bytes", "Node-wide capacity ceiling.", nil, nil),
		freeCapacity:    prometheus.NewDesc(ns+"_free_capacity_bytes", "Capacity not currently granted to any pool.", nil, nil),
		processResident: prometheus.NewDesc("memarb_process_resident_bytes", "Resident set size of this process, as last sampled.", nil, nil),
		processCPU:      prometheus.NewDesc("memarb_process_cpu_percent", "CPU percent of this process, as last sampled.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.numRequests
	ch <- c.numSucceeded
	ch <- c.numAborted
	ch <- c.numFailures
	ch <- c.numReserve
	ch <- c.numRelease
	ch <- c.numReclaimed
	ch <- c.numShrunk
	ch <- c.numNonReclaim
	ch <- c.queueSeconds
	ch <- c.arbitSeconds
	ch <- c.reclaimSeconds
	ch <- c.maxCapacity
	ch <- c.freeCapacity
	ch <- c.processResident
	ch <- c.processCPU
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.arb.Stats()
	ch <- prometheus.MustNewConstMetric(c.numRequests, prometheus.CounterValue, float64(st.NumRequests))
	ch <- prometheus.MustNewConstMetric(c.numSucceeded, prometheus.CounterValue, float64(st.NumSucceeded))
	ch <- prometheus.MustNewConstMetric(c.numAborted, prometheus.CounterValue, float64(st.NumAborted))
	ch <- prometheus.MustNewConstMetric(c.numFailures, prometheus.CounterValue, float64(st.NumFailures))
	ch <- prometheus.MustNewConstMetric(c.numReserve, prometheus.CounterValue, float64(st.NumReserveRequest))
	ch <- prometheus.MustNewConstMetric(c.numRelease, prometheus.CounterValue, float64(st.NumReleaseRequest))
	ch <- prometheus.MustNewConstMetric(c.numReclaimed, prometheus.CounterValue, float64(st.NumReclaimedBytes))
	ch <- prometheus.MustNewConstMetric(c.numShrunk, prometheus.CounterValue, float64(st.NumShrunkBytes))
	ch <- prometheus.MustNewConstMetric(c.numNonReclaim, prometheus.CounterValue, float64(st.NumNonReclaimableAttempts))
	ch <- prometheus.MustNewConstMetric(c.queueSeconds, prometheus.CounterValue, st.QueueTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.arbitSeconds, prometheus.CounterValue, st.ArbitrationTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.reclaimSeconds, prometheus.CounterValue, st.ReclaimTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxCapacity, prometheus.GaugeValue, float64(st.MaxCapacityBytes))
	ch <- prometheus.MustNewConstMetric(c.freeCapacity, prometheus.GaugeValue, float64(st.FreeCapacityBytes))

	if c.proc != nil {
		snap := c.proc.ProcessSnapshot()
		ch <- prometheus.MustNewConstMetric(c.processResident, prometheus.GaugeValue, float64(snap.ResidentBytes))
		ch <- prometheus.MustNewConstMetric(c.processCPU, prometheus.GaugeValue, snap.CPUPercent)
	}
}

// ReclaimerStatser is the subset of reclaim.Aggregate/sortbuffer.Buffer
// the ReclaimCollector needs.
type ReclaimerStatser interface {
	Stats() reclaim.Stats
}

// ReclaimCollector adapts one Reclaimer's Stats to Prometheus's pull
// model. A process can register one per named pool/reclaimer instance
// via a labeled wrapper at the registration site; the Collector itself
// stays label-free, mirroring Collector above.
type ReclaimCollector struct {
	rc ReclaimerStatser

	numNonReclaimable *prometheus.Desc
	reclaimedBytes    *prometheus.Desc
	execSeconds       *prometheus.Desc
	waitSeconds       *prometheus.Desc
}

// NewReclaimCollector builds a ReclaimCollector for rc.
func NewReclaimCollector(rc ReclaimerStatser) *ReclaimCollector {
	ns := "memarb_reclaimer"
	return &ReclaimCollector{
		rc: rc,

		numNonReclaimable: prometheus.NewDesc(ns+"_non_reclaimable_attempts_total", "Reclaim attempts that found nothing reclaimable.", nil, nil),
		reclaimedBytes:    prometheus.NewDesc(ns+"_reclaimed_bytes_total", "Bytes freed by this reclaimer.", nil, nil),
		execSeconds:       prometheus.NewDesc(ns+"_exec_seconds_total", "Cumulative time spent executing Reclaim.", nil, nil),
		waitSeconds:       prometheus.NewDesc(ns+"_wait_seconds_total", "Cumulative time spent waiting to acquire the reclaim guard.", nil, nil),
	}
}

func (c *ReclaimCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.numNonReclaimable
	ch <- c.reclaimedBytes
	ch <- c.execSeconds
	ch <- c.waitSeconds
}

func (c *ReclaimCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.rc.Stats()
	ch <- prometheus.MustNewConstMetric(c.numNonReclaimable, prometheus.CounterValue, float64(st.NumNonReclaimableAttempts))
	ch <- prometheus.MustNewConstMetric(c.reclaimedBytes, prometheus.CounterValue, float64(st.ReclaimedBytes))
	ch <- prometheus.MustNewConstMetric(c.execSeconds, prometheus.CounterValue, st.ReclaimExecTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, st.ReclaimWaitTime.Seconds())
}
