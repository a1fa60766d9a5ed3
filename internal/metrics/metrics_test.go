package metrics

import (
	"testing"
	"time"

	"github.com/fnpulse/fnpulse/internal/api"
)

func TestPercentile(t *testing.T) {
	samples := []float64{50, 10, 40, 30, 20, 60, 70, 90, 80, 100}

	tests := []struct {
		q    float64
		want float64
	}{
		{50, 50},
		{90, 90},
		{99, 100},
		{100, 100},
		{10, 10},
	}
	for _, tt := range tests {
		got, ok := Percentile(samples, tt.q)
		if !ok {
			t.Fatalf("Percentile(%v) not ok", tt.q)
		}
		if got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}

	if _, ok := Percentile(nil, 50); ok {
		t.Error("empty input should not be ok")
	}
	if _, ok := Percentile(samples, 0); ok {
		t.Error("q=0 should not be ok")
	}

	// input must not be reordered
	if samples[0] != 50 {
		t.Error("Percentile mutated its input")
	}
}

func TestLatency_SingleSample(t *testing.T) {
	s, ok := Latency([]float64{42})
	if !ok {
		t.Fatal("not ok")
	}
	if s.P50 != 42 || s.P99 != 42 {
		t.Errorf("single-sample summary = %+v, want all 42", s)
	}
}

func TestBucketize(t *testing.T) {
	pt := func(ms int64, v float64) api.Point { return api.Point{TimeMs: ms, Value: v} }
	width := time.Minute

	buckets := Bucketize([]api.Point{
		pt(60_000, 2),
		pt(70_000, 4),
		pt(250_000, 8), // two empty buckets between
	}, width)

	if len(buckets) != 4 {
		t.Fatalf("buckets = %d, want 4 (including gaps)", len(buckets))
	}

	first := buckets[0]
	if first.Count != 2 || first.Sum != 6 || first.Min != 2 || first.Max != 4 {
		t.Errorf("first bucket = %+v", first)
	}
	if first.Avg() != 3 {
		t.Errorf("first bucket avg = %v, want 3", first.Avg())
	}
	if buckets[1].Count != 0 || buckets[2].Count != 0 {
		t.Error("gap buckets should be empty")
	}
	if buckets[3].Count != 1 || buckets[3].Sum != 8 {
		t.Errorf("last bucket = %+v", buckets[3])
	}
	if !buckets[0].Start.Equal(time.UnixMilli(60_000)) {
		t.Errorf("first bucket start = %v", buckets[0].Start)
	}
}

func TestBucketize_Empty(t *testing.T) {
	if got := Bucketize(nil, time.Minute); got != nil {
		t.Errorf("Bucketize(nil) = %v, want nil", got)
	}
	if got := Bucketize([]api.Point{{TimeMs: 1}}, 0); got != nil {
		t.Errorf("zero width = %v, want nil", got)
	}
}

func TestRates(t *testing.T) {
	if got := FailureRate(5, 200); got != 2.5 {
		t.Errorf("FailureRate = %v, want 2.5", got)
	}
	if got := FailureRate(5, 0); got != 0 {
		t.Errorf("FailureRate with zero total = %v, want 0", got)
	}
	if got := CacheHitRate(75, 100); got != 75 {
		t.Errorf("CacheHitRate = %v, want 75", got)
	}
	if got := RequestRate(600, time.Minute); got != 10 {
		t.Errorf("RequestRate = %v, want 10", got)
	}
	if got := RequestRate(600, 0); got != 0 {
		t.Errorf("RequestRate with zero window = %v, want 0", got)
	}
}

func TestSchedulerLag(t *testing.T) {
	s, ok := SchedulerLag([]api.Point{
		{TimeMs: 100, Value: 2},
		{TimeMs: 300, Value: 6}, // latest
		{TimeMs: 200, Value: 10},
	})
	if !ok {
		t.Fatal("not ok")
	}
	if s.Current != 6 {
		t.Errorf("Current = %v, want 6 (latest by time)", s.Current)
	}
	if s.Mean != 6 {
		t.Errorf("Mean = %v, want 6", s.Mean)
	}
	if s.Max != 10 {
		t.Errorf("Max = %v, want 10", s.Max)
	}

	if _, ok := SchedulerLag(nil); ok {
		t.Error("empty series should not be ok")
	}
}

func TestTopUDFs(t *testing.T) {
	stats := []api.UDFStat{
		{Name: "b", Invocations: 10},
		{Name: "a", Invocations: 10},
		{Name: "c", Invocations: 50},
		{Name: "d", Invocations: 1},
	}

	top := TopUDFs(stats, 3)
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	if top[0].Name != "c" {
		t.Errorf("top[0] = %s, want c", top[0].Name)
	}
	// equal invocation counts break ties by name for stable tables
	if top[1].Name != "a" || top[2].Name != "b" {
		t.Errorf("tie-break order = %s, %s, want a, b", top[1].Name, top[2].Name)
	}

	// input order untouched
	if stats[0].Name != "b" {
		t.Error("TopUDFs mutated its input")
	}

	if got := TopUDFs(stats, 0); len(got) != 4 {
		t.Errorf("k=0 should return all, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	logs := []api.ExecutionLog{
		{ID: "1", Kind: "query", Outcome: "success", CacheHit: true, DurationMs: 5},
		{ID: "2", Kind: "query", Outcome: "success", CacheHit: false, DurationMs: 15},
		{ID: "3", Kind: "mutation", Outcome: "failure", DurationMs: 25},
		{ID: "4", Kind: "action", Outcome: "success", CacheHit: true, DurationMs: 35}, // non-query hits don't count
	}

	s := Summarize(logs)
	if s.Total != 4 || s.Failures != 1 {
		t.Errorf("totals = %d/%d, want 4/1", s.Total, s.Failures)
	}
	if s.CacheLookups != 2 || s.CacheHits != 1 {
		t.Errorf("cache = %d/%d, want 1/2", s.CacheHits, s.CacheLookups)
	}
	if len(s.DurationsMs) != 4 {
		t.Errorf("durations = %d, want 4", len(s.DurationsMs))
	}
}

func TestClassify(t *testing.T) {
	higher := Thresholds{Warn: 5, Crit: 10, Direction: HigherIsWorse}
	lower := Thresholds{Warn: 50, Crit: 20, Direction: LowerIsWorse}

	tests := []struct {
		name string
		v    float64
		th   Thresholds
		want string
	}{
		{"below warn", 2, higher, StatusHealthy},
		{"at warn", 5, higher, StatusDegraded},
		{"at crit", 10, higher, StatusCritical},
		{"above crit", 50, higher, StatusCritical},
		{"high hit rate", 90, lower, StatusHealthy},
		{"at warn (lower)", 50, lower, StatusDegraded},
		{"at crit (lower)", 20, lower, StatusCritical},
		{"unconfigured", 5, Thresholds{}, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.v, tt.th); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.v, got, tt.want)
			}
		})
	}
}
