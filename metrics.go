package memgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    addCounter     prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAdd(duration time.Duration, err error) {
//	    p.addCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordQuery is called after each memory query.
	RecordQuery(duration time.Duration, err error)

	// RecordCacheLookup is called for each result cache consultation
	// on a frozen store.
	RecordCacheLookup(hit bool)

	// RecordAttend is called after each attention pass.
	// nodes is the number of graph nodes scored.
	RecordAttend(nodes int, duration time.Duration, err error)

	// RecordIntegrate is called after each rule integration pass.
	RecordIntegrate(duration time.Duration, err error)

	// RecordProcess is called after each full pipeline pass.
	RecordProcess(duration time.Duration, err error)

	// RecordFinalize is called after finalization.
	// records is the number of consolidated records indexed.
	RecordFinalize(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)           {}
func (NoopMetricsCollector) RecordQuery(time.Duration, error)         {}
func (NoopMetricsCollector) RecordCacheLookup(bool)                   {}
func (NoopMetricsCollector) RecordAttend(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordIntegrate(time.Duration, error)     {}
func (NoopMetricsCollector) RecordProcess(time.Duration, error)       {}
func (NoopMetricsCollector) RecordFinalize(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
	AttendCount     atomic.Int64
	AttendErrors    atomic.Int64
	AttendNodes     atomic.Int64
	IntegrateCount  atomic.Int64
	IntegrateErrors atomic.Int64
	ProcessCount    atomic.Int64
	ProcessErrors   atomic.Int64
	FinalizeCount   atomic.Int64
	FinalizeErrors  atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordCacheLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordAttend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAttend(nodes int, duration time.Duration, err error) {
	b.AttendCount.Add(1)
	b.AttendNodes.Add(int64(nodes))
	if err != nil {
		b.AttendErrors.Add(1)
	}
}

// RecordIntegrate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIntegrate(duration time.Duration, err error) {
	b.IntegrateCount.Add(1)
	if err != nil {
		b.IntegrateErrors.Add(1)
	}
}

// RecordProcess implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProcess(duration time.Duration, err error) {
	b.ProcessCount.Add(1)
	if err != nil {
		b.ProcessErrors.Add(1)
	}
}

// RecordFinalize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFinalize(records int, duration time.Duration, err error) {
	b.FinalizeCount.Add(1)
	if err != nil {
		b.FinalizeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:        b.AddCount.Load(),
		AddErrors:       b.AddErrors.Load(),
		AddAvgNanos:     b.getAvgAddNanos(),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryAvgNanos:   b.getAvgQueryNanos(),
		CacheHits:       b.CacheHits.Load(),
		CacheMisses:     b.CacheMisses.Load(),
		AttendCount:     b.AttendCount.Load(),
		AttendErrors:    b.AttendErrors.Load(),
		AttendNodes:     b.AttendNodes.Load(),
		IntegrateCount:  b.IntegrateCount.Load(),
		IntegrateErrors: b.IntegrateErrors.Load(),
		ProcessCount:    b.ProcessCount.Load(),
		ProcessErrors:   b.ProcessErrors.Load(),
		FinalizeCount:   b.FinalizeCount.Load(),
		FinalizeErrors:  b.FinalizeErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAddNanos() int64 {
	count := b.AddCount.Load()
	if count == 0 {
		return 0
	}
	return b.AddTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount        int64
	AddErrors       int64
	AddAvgNanos     int64
	QueryCount      int64
	QueryErrors     int64
	QueryAvgNanos   int64
	CacheHits       int64
	CacheMisses     int64
	AttendCount     int64
	AttendErrors    int64
	AttendNodes     int64
	IntegrateCount  int64
	IntegrateErrors int64
	ProcessCount    int64
	ProcessErrors   int64
	FinalizeCount   int64
	FinalizeErrors  int64
}
