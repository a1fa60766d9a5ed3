package fnpulse

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultCardWindow = time.Hour
	defaultTableRows  = 10
)

// CardKind identifies which metric family a card displays and which
// platform endpoint backs it.
type CardKind string

const (
	// CardFailureRate shows the percentage of failed executions.
	CardFailureRate CardKind = "failure_rate"

	// CardCacheHitRate shows the percentage of query cache hits.
	CardCacheHitRate CardKind = "cache_hit_rate"

	// CardLatency shows execution latency percentiles (p50/p90/p95/p99).
	CardLatency CardKind = "latency"

	// CardSchedulerLag shows how far behind the platform's function
	// scheduler is running.
	CardSchedulerLag CardKind = "scheduler_lag"

	// CardRequestRate shows executed requests per second.
	CardRequestRate CardKind = "request_rate"

	// CardUDFTable shows a per-function statistics table.
	CardUDFTable CardKind = "udf_table"

	// CardUsage shows the team's billing usage counters.
	CardUsage CardKind = "usage"
)

var validKinds = map[CardKind]struct{}{
	CardFailureRate:  {},
	CardCacheHitRate: {},
	CardLatency:      {},
	CardSchedulerLag: {},
	CardRequestRate:  {},
	CardUDFTable:     {},
	CardUsage:        {},
}

// Card represents one dashboard card: a metric to fetch, how often to
// refresh it, and how to classify the result.
//
// Card is immutable after creation via [NewCard]. Cards are configured
// using the functional options pattern with [CardOption] functions such as
// [WithWindow], [WithCardInterval], [WithClassifier], and [WithTableRows].
type Card struct {
	name       string
	kind       CardKind
	window     time.Duration
	interval   time.Duration
	classifier Classifier
	tableRows  int
}

// Name returns the card's display name.
// The name is used for identification in the dashboard and logs and keys
// the card's stored state.
func (c Card) Name() string {
	return c.name
}

// Kind returns the metric family the card displays.
func (c Card) Kind() CardKind {
	return c.kind
}

// Window returns the trailing window the card's metric is computed over.
// Defaults to one hour.
func (c Card) Window() time.Duration {
	return c.window
}

// Interval returns the card's custom refresh interval.
// Returns 0 if no custom interval was specified, meaning the global
// refresh interval configured via [WithRefreshInterval] should be used.
func (c Card) Interval() time.Duration {
	return c.interval
}

// Classifier returns the card's [Classifier] function.
// Returns nil if no classifier was specified; the card then always reports
// [StatusUnknown] and renders neutrally.
func (c Card) Classifier() Classifier {
	return c.classifier
}

// TableRows returns the row limit for table cards. Defaults to 10.
func (c Card) TableRows() int {
	return c.tableRows
}

// NewCard creates a [Card] with the given name, kind, and options.
//
// The name parameter is a human-readable identifier displayed on the
// dashboard; it must be unique across the board's cards. The kind selects
// the metric family.
//
// Options are applied in order using the functional options pattern.
// See [WithWindow], [WithCardInterval], [WithClassifier], and
// [WithTableRows].
//
// Example:
//
//	card, err := fnpulse.NewCard("Failure Rate", fnpulse.CardFailureRate,
//	    fnpulse.WithClassifier(fnpulse.ThresholdClassifier(1, 5, true)),
//	    fnpulse.WithWindow(30 * time.Minute),
//	)
func NewCard(name string, kind CardKind, opts ...CardOption) (Card, error) {
	if name == "" {
		return Card{}, errors.New("card name cannot be empty")
	}
	if _, ok := validKinds[kind]; !ok {
		return Card{}, fmt.Errorf("unknown card kind %q", kind)
	}

	cfg := &cardConfig{
		window:    defaultCardWindow,
		tableRows: defaultTableRows,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Card{}, err
		}
	}

	return Card{
		name:       name,
		kind:       kind,
		window:     cfg.window,
		interval:   cfg.interval,
		classifier: cfg.classifier,
		tableRows:  cfg.tableRows,
	}, nil
}
