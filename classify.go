package fnpulse

import "github.com/fnpulse/fnpulse/internal/metrics"

// Classifier is a function type that determines the [Status] of a card from
// its headline value.
//
// Classifier follows functional programming principles: it is a pure
// function where the same input always produces the same output. This makes
// classifiers easy to test, compose, and reason about.
//
// A built-in classifier is provided by [ThresholdClassifier]; custom
// classifiers can encode any policy (time-of-day tolerance, per-deployment
// limits, and so on).
//
// # Panic Safety
//
// Classifier functions are called within a panic recovery boundary. If a
// classifier panics, the card's status is set to [StatusUnknown] with an
// error containing a correlation ID, and the full stack trace is logged.
// A misbehaving classifier cannot crash the board.
type Classifier func(value float64) Status

// ThresholdClassifier returns a [Classifier] that compares the value
// against warning and critical limits.
//
// With higherIsWorse true (failure rate, latency, scheduler lag), values at
// or above warn are [StatusDegraded] and at or above crit are
// [StatusCritical]. With higherIsWorse false (cache hit rate), the
// comparisons are mirrored: values at or below warn degrade and at or below
// crit are critical.
//
// Example:
//
//	// failure rate: warn at 1%, critical at 5%
//	c := fnpulse.ThresholdClassifier(1, 5, true)
func ThresholdClassifier(warn, crit float64, higherIsWorse bool) Classifier {
	dir := metrics.HigherIsWorse
	if !higherIsWorse {
		dir = metrics.LowerIsWorse
	}
	th := metrics.Thresholds{Warn: warn, Crit: crit, Direction: dir}
	return func(value float64) Status {
		return Status(metrics.Classify(value, th))
	}
}

// FirstMatch returns a [Classifier] that tries each classifier in order and
// returns the first result that is not [StatusUnknown]. If all classifiers
// return unknown, the result is unknown.
//
// This allows layering a specific policy over a general fallback:
//
//	c := fnpulse.FirstMatch(weekendPolicy, fnpulse.ThresholdClassifier(1, 5, true))
func FirstMatch(classifiers ...Classifier) Classifier {
	return func(value float64) Status {
		for _, c := range classifiers {
			if s := c(value); s != StatusUnknown {
				return s
			}
		}
		return StatusUnknown
	}
}
