package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestClient_Logs verifies request shape (path, auth header, cursor and udf
// parameters) and response decoding.
func TestClient_Logs(t *testing.T) {
	var gotPath, gotAuth, gotCursor, gotUDF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCursor = r.URL.Query().Get("cursor")
		gotUDF = r.URL.Query().Get("udf")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"entries": [
				{"id": "log-1", "startedAt": 1723456789000, "udf": "messages:send", "kind": "mutation", "outcome": "success", "durationMs": 12.5, "cacheHit": false},
				{"id": "log-2", "startedAt": 1723456790000, "udf": "messages:list", "kind": "query", "outcome": "failure", "durationMs": 3.1, "error": "index missing"}
			],
			"newCursor": 1723456790000
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "deploy-key-123")
	batch, err := c.Logs(context.Background(), "happy-otter-42", "messages:send", NumericCursor(1723456789000))
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}

	if gotPath != "/api/v1/deployments/happy-otter-42/logs" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer deploy-key-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotCursor != "1723456789000" {
		t.Errorf("cursor param = %q", gotCursor)
	}
	if gotUDF != "messages:send" {
		t.Errorf("udf param = %q", gotUDF)
	}

	if len(batch.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(batch.Entries))
	}
	if !batch.Entries[1].Failed() {
		t.Error("second entry should report failure")
	}
	if batch.NewCursor.String() != "1723456790000" {
		t.Errorf("newCursor = %q", batch.NewCursor.String())
	}
}

// TestClient_Logs_ZeroCursorOmitted verifies the initial request carries no
// cursor parameter at all.
func TestClient_Logs_ZeroCursorOmitted(t *testing.T) {
	var hadCursor bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadCursor = r.URL.Query()["cursor"]
		_, _ = w.Write([]byte(`{"entries": [], "newCursor": null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	batch, err := c.Logs(context.Background(), "dep", "", Cursor{})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if hadCursor {
		t.Error("zero cursor should not be sent")
	}
	if !batch.NewCursor.IsZero() {
		t.Error("null newCursor should decode as zero")
	}
}

// TestClient_MetricSeries verifies the metric path and window parameter.
func TestClient_MetricSeries(t *testing.T) {
	var gotPath, gotWindow string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWindow = r.URL.Query().Get("window")
		_, _ = w.Write([]byte(`{"metric": "failure_rate", "unit": "percent", "points": [{"time": 1723456789000, "value": 1.25}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	series, err := c.MetricSeries(context.Background(), "dep", MetricFailureRate, time.Hour)
	if err != nil {
		t.Fatalf("MetricSeries: %v", err)
	}
	if gotPath != "/api/v1/deployments/dep/metrics/failure_rate" {
		t.Errorf("path = %q", gotPath)
	}
	if gotWindow != "3600s" {
		t.Errorf("window = %q", gotWindow)
	}
	if len(series.Points) != 1 || series.Points[0].Value != 1.25 {
		t.Errorf("unexpected series: %+v", series)
	}
}

// TestClient_StatusError verifies non-2xx responses surface a StatusError
// with the code and a truncated body.
func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deployment not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.UDFStats(context.Background(), "missing", time.Hour)
	if err == nil {
		t.Fatal("expected error")
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not a StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", se.StatusCode)
	}
}

// TestClient_Cancellation verifies a cancelled context aborts the request
// with an error recognizable via errors.Is.
func TestClient_Cancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	c := NewClient(srv.URL, "k")
	_, err := c.Logs(ctx, "dep", "", Cursor{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
}

// TestClient_Usage verifies the team usage endpoint decoding.
func TestClient_Usage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/teams/acme/usage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"period": "2026-08", "functionCalls": 1250000, "computeGbHours": 14.5, "databaseStorageGb": 2.3, "bandwidthGb": 8.7}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	usage, err := c.Usage(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.FunctionCalls != 1250000 || usage.Period != "2026-08" {
		t.Errorf("unexpected usage: %+v", usage)
	}
}
