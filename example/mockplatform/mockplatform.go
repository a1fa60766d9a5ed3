// Package mockplatform serves a synthetic serverless platform API, used by
// the demo and by `fnpulse serve` against example/config.yaml.
package mockplatform

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// mockUDFs are the functions the fake deployment runs.
var mockUDFs = []struct {
	name string
	kind string
}{
	{"sendEmail", "action"},
	{"listTasks", "query"},
	{"createTask", "mutation"},
	{"nightlyCleanup", "scheduled"},
}

// mockEntry mirrors the platform's execution log wire format.
type mockEntry struct {
	ID          string   `json:"id"`
	StartedAtMs int64    `json:"startedAt"`
	UDF         string   `json:"udf"`
	Kind        string   `json:"kind"`
	Outcome     string   `json:"outcome"`
	DurationMs  float64  `json:"durationMs"`
	CacheHit    bool     `json:"cacheHit"`
	Messages    []string `json:"messages,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// mockPlatform generates a synthetic execution stream and metric series for
// one deployment. Executions accrue at roughly two per second while someone
// is polling.
type mockPlatform struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entries []mockEntry
	nextID  int
	lastGen time.Time
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		lastGen: time.Now(),
	}
}

// Start runs a fake platform API on addr. Call in a goroutine before
// starting the board.
func Start(addr string) {
	if err := http.ListenAndServe(addr, NewHandler()); err != nil {
		slog.Error("mock platform error", "error", err)
	}
}

// NewHandler returns the mock platform's HTTP handler.
func NewHandler() http.Handler {
	return newMockPlatform().handler()
}

func (p *mockPlatform) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/deployments/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/logs"):
			p.serveLogs(w, r)
		case strings.HasSuffix(r.URL.Path, "/udfs"):
			p.serveUDFs(w, r)
		case strings.Contains(r.URL.Path, "/metrics/"):
			p.serveMetric(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/v1/teams/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"period":            time.Now().Format("2006-01"),
			"functionCalls":     1_234_567,
			"computeGbHours":    41.5,
			"databaseStorageGb": 2.3,
			"bandwidthGb":       17.9,
		})
	})
	return mux
}

// generate appends fake executions covering the time since the last call.
func (p *mockPlatform) generate() {
	now := time.Now()
	for t := p.lastGen; t.Before(now); t = t.Add(time.Duration(300+p.rng.Intn(500)) * time.Millisecond) {
		udf := mockUDFs[p.rng.Intn(len(mockUDFs))]
		e := mockEntry{
			ID:          "exec-" + strconv.Itoa(p.nextID),
			StartedAtMs: t.UnixMilli(),
			UDF:         udf.name,
			Kind:        udf.kind,
			Outcome:     "success",
			DurationMs:  float64(10 + p.rng.Intn(190)),
			CacheHit:    udf.kind == "query" && p.rng.Intn(3) == 0,
		}
		if p.rng.Intn(20) == 0 {
			e.Outcome = "failure"
			e.Error = "Uncaught Error: upstream timed out"
		}
		p.entries = append(p.entries, e)
		p.nextID++
	}
	p.lastGen = now

	// retain a bounded backlog
	if len(p.entries) > 2000 {
		p.entries = p.entries[len(p.entries)-2000:]
	}
}

func (p *mockPlatform) serveLogs(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.generate()

	cursor := int64(0)
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor, _ = strconv.ParseInt(c, 10, 64)
	}
	udf := r.URL.Query().Get("udf")

	var batch []mockEntry
	var newCursor int64
	for _, e := range p.entries {
		if e.StartedAtMs <= cursor {
			continue
		}
		if e.StartedAtMs > newCursor {
			newCursor = e.StartedAtMs
		}
		if udf != "" && e.UDF != udf {
			continue
		}
		batch = append(batch, e)
		if len(batch) >= 100 {
			break
		}
	}
	p.mu.Unlock()

	resp := map[string]any{"entries": batch}
	if newCursor != 0 {
		resp["newCursor"] = newCursor
	} else {
		resp["newCursor"] = nil
	}
	writeJSON(w, resp)
}

func (p *mockPlatform) serveMetric(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	window := parseWindow(r.URL.Query().Get("window"))

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var points []map[string]any
	for t := now.Add(-window); t.Before(now); t = t.Add(30 * time.Second) {
		points = append(points, map[string]any{
			"time":  t.UnixMilli(),
			"value": p.metricValue(metric),
		})
	}
	writeJSON(w, map[string]any{
		"metric": metric,
		"unit":   metricUnit(metric),
		"points": points,
	})
}

func (p *mockPlatform) metricValue(metric string) float64 {
	switch metric {
	case "failure_rate":
		return float64(p.rng.Intn(60)) / 10
	case "cache_hit_rate":
		return 70 + float64(p.rng.Intn(300))/10
	case "latency":
		return float64(20 + p.rng.Intn(180))
	case "scheduler_lag":
		return float64(p.rng.Intn(3000))
	case "request_rate":
		return float64(50 + p.rng.Intn(100))
	default:
		return float64(p.rng.Intn(100))
	}
}

func metricUnit(metric string) string {
	switch metric {
	case "failure_rate", "cache_hit_rate":
		return "percent"
	case "latency", "scheduler_lag":
		return "ms"
	default:
		return "count"
	}
}

func (p *mockPlatform) serveUDFs(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]map[string]any, 0, len(mockUDFs))
	for _, u := range mockUDFs {
		inv := int64(100 + p.rng.Intn(2000))
		stats = append(stats, map[string]any{
			"name":         u.name,
			"kind":         u.kind,
			"invocations":  inv,
			"failures":     inv / int64(20+p.rng.Intn(30)),
			"cacheHits":    inv / int64(2+p.rng.Intn(4)),
			"cacheLookups": inv,
			"p50Ms":        float64(20 + p.rng.Intn(40)),
			"p95Ms":        float64(80 + p.rng.Intn(120)),
			"p99Ms":        float64(200 + p.rng.Intn(300)),
		})
	}
	writeJSON(w, stats)
}

func parseWindow(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
