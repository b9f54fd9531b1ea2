package loadgen

import (
	"math"
	"sort"
	"time"
)

// Summary holds the final statistics of one run. It is computed exactly
// once, from a frozen snapshot, and is immutable afterwards.
//
// Latency fields are reported in milliseconds; throughput counts
// successful operations only (errors are not useful work and get their
// own rate instead).
type Summary struct {
	TotalRequests  int64   `json:"totalRequests"`
	SuccessCount   int64   `json:"successCount"`
	ErrorCount     int64   `json:"errorCount"`
	ErrorRate      float64 `json:"errorRate"`
	Throughput     float64 `json:"throughput"`
	AvgMs          float64 `json:"avgMs"`
	P50Ms          float64 `json:"p50Ms"`
	P95Ms          float64 `json:"p95Ms"`
	P99Ms          float64 `json:"p99Ms"`
	TotalBytes     int64   `json:"totalBytes"`
	Bandwidth      float64 `json:"bandwidth"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// Summarize reduces a frozen snapshot into a Summary.
//
// Percentiles use the nearest-rank method: the sample at index
// ceil(f*count)-1 of the ascending-sorted set, clamped into range.
// An empty sample set yields zero percentiles and average, not an
// error, and elapsed <= 0 yields zero throughput and bandwidth rather
// than a division fault.
func Summarize(snap *Snapshot, elapsed time.Duration) Summary {
	s := Summary{
		TotalRequests:  snap.SuccessCount + snap.ErrorCount,
		SuccessCount:   snap.SuccessCount,
		ErrorCount:     snap.ErrorCount,
		TotalBytes:     snap.TotalBytes,
		ElapsedSeconds: elapsed.Seconds(),
	}

	if s.TotalRequests > 0 {
		s.ErrorRate = float64(snap.ErrorCount) / float64(s.TotalRequests)
	}

	if secs := elapsed.Seconds(); secs > 0 {
		s.Throughput = float64(snap.SuccessCount) / secs
		s.Bandwidth = float64(snap.TotalBytes) / secs
	}

	if len(snap.Latencies) > 0 {
		sorted := make([]time.Duration, len(snap.Latencies))
		copy(sorted, snap.Latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var total time.Duration
		for _, l := range sorted {
			total += l
		}
		s.AvgMs = millis(total / time.Duration(len(sorted)))
		s.P50Ms = millis(nearestRank(sorted, 0.50))
		s.P95Ms = millis(nearestRank(sorted, 0.95))
		s.P99Ms = millis(nearestRank(sorted, 0.99))
	}

	return s
}

// nearestRank selects the order statistic at fraction f from an
// ascending-sorted sample set.
func nearestRank(sorted []time.Duration, f float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(f*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
