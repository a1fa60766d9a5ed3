package store

import (
	"time"

	"github.com/fnpulse/fnpulse/internal/metrics"
)

// CardResult is the stored state of one dashboard card.
//
// CardResult is the storage representation, optimized for JSON serialization
// (used by the REST API and SSE). It is decoupled from the board's internal
// types so the two can evolve independently.
type CardResult struct {
	// Name is the card's display name (e.g., "Failure Rate").
	Name string `json:"name"`

	// Metric is the metric family backing the card.
	Metric string `json:"metric"`

	// Value is the card's headline value in Unit.
	Value float64 `json:"value"`

	// Unit is the display unit ("percent", "ms", "req/s", ...).
	Unit string `json:"unit"`

	// Status is the health classification ("healthy", "degraded",
	// "critical", "unknown").
	Status string `json:"status"`

	// Detail holds secondary values keyed by label (e.g., "p95", "max").
	Detail map[string]float64 `json:"detail,omitempty"`

	// Series holds the bucketed history rendered as the card's sparkline.
	Series []metrics.Bucket `json:"series,omitempty"`

	// UDFs holds the rows of a function-table card; nil for scalar cards.
	UDFs []UDFRow `json:"udfs,omitempty"`

	// CheckedAt is the timestamp of the last refresh.
	CheckedAt time.Time `json:"checked_at"`

	// Error contains the refresh error message if the last refresh failed.
	// Values from the last successful refresh are retained alongside it.
	Error *string `json:"error"`
}

// UDFRow is one row of the function statistics table card.
type UDFRow struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Invocations  int64   `json:"invocations"`
	FailureRate  float64 `json:"failure_rate"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	P95Ms        float64 `json:"p95_ms"`
}

// Store defines the interface for storing and subscribing to card updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism pushes real-time updates to connected clients (e.g., via
// Server-Sent Events) and to the terminal UI.
type Store interface {
	// Update stores a new card result and notifies all subscribers.
	// The result is keyed by Name; subsequent updates replace previous
	// values.
	Update(result CardResult)

	// GetAll returns all currently stored card results, sorted by name.
	// The returned slice is a snapshot; modifications do not affect the
	// store.
	GetAll() []CardResult

	// Subscribe returns a channel that receives card updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan CardResult

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan CardResult)
}
