package api

import "time"

// ExecutionLog is a single UDF execution record from the platform log
// endpoint. Identifiers are unique within a stream session; records may
// arrive out of order across batches.
type ExecutionLog struct {
	// ID is the platform-assigned unique identifier, used for deduplication.
	ID string `json:"id"`

	// StartedAtMs is the execution start time in epoch milliseconds.
	StartedAtMs int64 `json:"startedAt"`

	// UDF is the name of the user-defined function that ran.
	UDF string `json:"udf"`

	// Kind is the execution kind (e.g., "query", "mutation", "action",
	// "scheduled").
	Kind string `json:"kind"`

	// Outcome is "success" or "failure".
	Outcome string `json:"outcome"`

	// DurationMs is the execution duration in milliseconds.
	DurationMs float64 `json:"durationMs"`

	// CacheHit reports whether the execution was served from cache.
	CacheHit bool `json:"cacheHit"`

	// Messages holds log lines emitted by the execution.
	Messages []string `json:"messages,omitempty"`

	// Error holds the failure message when Outcome is "failure".
	Error string `json:"error,omitempty"`
}

// StartedAt returns the execution start time.
func (l ExecutionLog) StartedAt() time.Time {
	return time.UnixMilli(l.StartedAtMs)
}

// Failed reports whether the execution ended in failure.
func (l ExecutionLog) Failed() bool {
	return l.Outcome == "failure"
}

// LogBatch is the response of the log endpoint: zero or more entries plus
// the cursor to resume from. A zero NewCursor means "no advancement" and
// the caller must reuse its previous cursor.
type LogBatch struct {
	Entries   []ExecutionLog `json:"entries"`
	NewCursor Cursor         `json:"newCursor"`
}

// Point is one sample of a metric time series.
type Point struct {
	// TimeMs is the sample time in epoch milliseconds.
	TimeMs int64 `json:"time"`

	// Value is the sample value in the metric's unit.
	Value float64 `json:"value"`
}

// Time returns the sample time.
func (p Point) Time() time.Time {
	return time.UnixMilli(p.TimeMs)
}

// Series is a time series for one metric family over the requested window.
type Series struct {
	Metric string  `json:"metric"`
	Unit   string  `json:"unit"`
	Points []Point `json:"points"`
}

// Metric family names accepted by [Client.MetricSeries].
const (
	MetricFailureRate  = "failure_rate"
	MetricCacheHitRate = "cache_hit_rate"
	MetricLatency      = "latency"
	MetricSchedulerLag = "scheduler_lag"
	MetricRequestRate  = "request_rate"
)

// UDFStat is the aggregate execution statistics for one UDF over the
// requested window.
type UDFStat struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Invocations  int64   `json:"invocations"`
	Failures     int64   `json:"failures"`
	CacheHits    int64   `json:"cacheHits"`
	CacheLookups int64   `json:"cacheLookups"`
	P50Ms        float64 `json:"p50Ms"`
	P95Ms        float64 `json:"p95Ms"`
	P99Ms        float64 `json:"p99Ms"`
}

// Usage is the billing usage summary for a team.
type Usage struct {
	Period            string  `json:"period"`
	FunctionCalls     int64   `json:"functionCalls"`
	ComputeGBHours    float64 `json:"computeGbHours"`
	DatabaseStorageGB float64 `json:"databaseStorageGb"`
	BandwidthGB       float64 `json:"bandwidthGb"`
}
