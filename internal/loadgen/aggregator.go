// Package loadgen provides the generic load-generation engine: the
// virtual-user scheduler, the concurrency-safe metrics aggregator and
// the summary calculator that reduces a finished run into statistics.
package loadgen

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMinMicros = 1
	histMaxMicros = 3600000000
	histSigFigs   = 3
)

// Aggregator collects the outcomes produced by every worker in a run.
//
// Counters use atomic operations so that concurrent workers never lose
// an update. The raw latency samples (used for the final nearest-rank
// percentiles) and the HDR histogram (used for cheap live percentile
// views while the run is in flight) are guarded by a mutex.
//
// Aggregator is safe for concurrent use by any number of workers
// without external locking.
type Aggregator struct {
	successCount atomic.Int64
	errorCount   atomic.Int64
	totalBytes   atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	hist      *hdrhistogram.Histogram
}

// NewAggregator creates an empty aggregator ready for one run.
func NewAggregator() *Aggregator {
	return &Aggregator{
		hist: hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs),
	}
}

// RecordSuccess folds one successful outcome: the latency sample is
// appended and the byte count added. Latency may be zero for workloads
// where per-message timing is not meaningful (push streams).
func (a *Aggregator) RecordSuccess(latency time.Duration, bytes int64) {
	a.mu.Lock()
	a.latencies = append(a.latencies, latency)
	micros := latency.Microseconds()
	if micros < histMinMicros {
		micros = histMinMicros
	}
	if micros > histMaxMicros {
		micros = histMaxMicros
	}
	a.hist.RecordValue(micros)
	a.mu.Unlock()

	a.successCount.Add(1)
	a.totalBytes.Add(bytes)
}

// RecordError folds one failed outcome. Errors never contribute a
// latency sample.
func (a *Aggregator) RecordError() {
	a.errorCount.Add(1)
}

// Snapshot is a frozen copy of the aggregator state. Once taken, no
// further mutation of the source is reflected in it.
type Snapshot struct {
	SuccessCount int64
	ErrorCount   int64
	TotalBytes   int64
	Latencies    []time.Duration
}

// Snapshot returns a frozen copy of all counters and latency samples.
// Call it only after every worker has been joined; the summary is
// computed from this copy.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.Lock()
	samples := make([]time.Duration, len(a.latencies))
	copy(samples, a.latencies)
	a.mu.Unlock()

	return &Snapshot{
		SuccessCount: a.successCount.Load(),
		ErrorCount:   a.errorCount.Load(),
		TotalBytes:   a.totalBytes.Load(),
		Latencies:    samples,
	}
}

// LiveStats is a cheap point-in-time view for progress display while
// workers are still running.
type LiveStats struct {
	Requests int64
	Errors   int64
	Bytes    int64
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
}

// Live returns current counters and histogram percentiles. Unlike
// Snapshot it does not copy the sample set, so it is safe to call
// every tick.
func (a *Aggregator) Live() LiveStats {
	a.mu.Lock()
	p50 := time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
	p95 := time.Duration(a.hist.ValueAtQuantile(95)) * time.Microsecond
	p99 := time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	a.mu.Unlock()

	return LiveStats{
		Requests: a.successCount.Load() + a.errorCount.Load(),
		Errors:   a.errorCount.Load(),
		Bytes:    a.totalBytes.Load(),
		P50:      p50,
		P95:      p95,
		P99:      p99,
	}
}
