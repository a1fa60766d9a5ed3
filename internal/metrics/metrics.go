// Package metrics provides pure derivations over fetched platform data.
//
// This package is internal to fnpulse. Everything here is a deterministic
// transformation of already-fetched records: percentile computation, time
// bucketing, rate calculations, and threshold classification. Nothing in
// this package performs I/O or holds state.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/fnpulse/fnpulse/internal/api"
)

// Percentile returns the q-th percentile (0 < q <= 100) of samples using
// the nearest-rank method on a sorted copy. ok is false for an empty input
// or out-of-range q.
func Percentile(samples []float64, q float64) (v float64, ok bool) {
	if len(samples) == 0 || q <= 0 || q > 100 {
		return 0, false
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	rank := int(math.Ceil(q / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1], true
}

// LatencySummary holds the standard latency percentiles displayed on the
// dashboard, in the unit of the input samples.
type LatencySummary struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Latency computes the standard percentile set. ok is false for an empty
// input.
func Latency(samples []float64) (LatencySummary, bool) {
	if len(samples) == 0 {
		return LatencySummary{}, false
	}
	var s LatencySummary
	s.P50, _ = Percentile(samples, 50)
	s.P90, _ = Percentile(samples, 90)
	s.P95, _ = Percentile(samples, 95)
	s.P99, _ = Percentile(samples, 99)
	return s, true
}

// Bucket is one aligned time bucket of an aggregated series.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
	Sum   float64   `json:"sum"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
}

// Avg returns the mean of the bucket's samples, or 0 for an empty bucket.
func (b Bucket) Avg() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

// Bucketize groups points into buckets of the given width, aligned to the
// epoch. Buckets are returned oldest-first; empty buckets between occupied
// ones are included so charts render gaps honestly.
func Bucketize(points []api.Point, width time.Duration) []Bucket {
	if len(points) == 0 || width <= 0 {
		return nil
	}

	w := width.Milliseconds()
	byStart := make(map[int64]*Bucket)
	minStart, maxStart := int64(math.MaxInt64), int64(math.MinInt64)

	for _, p := range points {
		start := p.TimeMs - mod64(p.TimeMs, w)
		if start < minStart {
			minStart = start
		}
		if start > maxStart {
			maxStart = start
		}
		b, ok := byStart[start]
		if !ok {
			b = &Bucket{Start: time.UnixMilli(start), Min: p.Value, Max: p.Value}
			byStart[start] = b
		}
		b.Count++
		b.Sum += p.Value
		if p.Value < b.Min {
			b.Min = p.Value
		}
		if p.Value > b.Max {
			b.Max = p.Value
		}
	}

	out := make([]Bucket, 0, (maxStart-minStart)/w+1)
	for start := minStart; start <= maxStart; start += w {
		if b, ok := byStart[start]; ok {
			out = append(out, *b)
		} else {
			out = append(out, Bucket{Start: time.UnixMilli(start)})
		}
	}
	return out
}

// mod64 is a floored modulo for epoch arithmetic; negative timestamps align
// to the bucket below zero rather than above it.
func mod64(v, m int64) int64 {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

// Ratio returns part/total as a percentage, guarding division by zero.
func Ratio(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// FailureRate returns the percentage of failed executions.
func FailureRate(failed, total int64) float64 {
	return Ratio(float64(failed), float64(total))
}

// CacheHitRate returns the percentage of cache lookups that hit.
func CacheHitRate(hits, lookups int64) float64 {
	return Ratio(float64(hits), float64(lookups))
}

// RequestRate returns requests per second over the window. Zero window
// yields zero.
func RequestRate(count int64, window time.Duration) float64 {
	secs := window.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(count) / secs
}

// LagSummary summarizes scheduler lag over a window.
type LagSummary struct {
	// Current is the most recent sample's value.
	Current float64 `json:"current"`

	// Mean is the average over the window.
	Mean float64 `json:"mean"`

	// Max is the worst sample in the window.
	Max float64 `json:"max"`
}

// SchedulerLag summarizes a scheduler-lag series. Points need not be
// ordered; the most recent sample is Current. ok is false for an empty
// series.
func SchedulerLag(points []api.Point) (LagSummary, bool) {
	if len(points) == 0 {
		return LagSummary{}, false
	}

	var s LagSummary
	var sum float64
	latest := points[0]
	for _, p := range points {
		sum += p.Value
		if p.Value > s.Max {
			s.Max = p.Value
		}
		if p.TimeMs > latest.TimeMs {
			latest = p
		}
	}
	s.Current = latest.Value
	s.Mean = sum / float64(len(points))
	return s, true
}

// TopUDFs returns the k most-invoked functions, ties broken by name so the
// table is stable across refreshes. The input is not modified. k <= 0
// returns all, sorted.
func TopUDFs(stats []api.UDFStat, k int) []api.UDFStat {
	out := make([]api.UDFStat, len(stats))
	copy(out, stats)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Invocations != out[j].Invocations {
			return out[i].Invocations > out[j].Invocations
		}
		return out[i].Name < out[j].Name
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// LogSummary aggregates a batch of execution logs into the counters the
// cards derive their rates from.
type LogSummary struct {
	Total        int64
	Failures     int64
	CacheHits    int64
	CacheLookups int64
	DurationsMs  []float64
}

// Summarize aggregates execution logs. Query executions count as cache
// lookups; only they can hit.
func Summarize(logs []api.ExecutionLog) LogSummary {
	var s LogSummary
	for _, l := range logs {
		s.Total++
		if l.Failed() {
			s.Failures++
		}
		if l.Kind == "query" {
			s.CacheLookups++
			if l.CacheHit {
				s.CacheHits++
			}
		}
		s.DurationsMs = append(s.DurationsMs, l.DurationMs)
	}
	return s
}
