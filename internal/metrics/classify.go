package metrics

// Status strings shared with the store and server layers. The root package
// exposes these as typed constants; internal packages use plain strings to
// avoid circular dependencies.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
	StatusUnknown  = "unknown"
)

// Direction states which way a metric gets worse.
type Direction int

const (
	// HigherIsWorse suits failure rate, latency, and scheduler lag.
	HigherIsWorse Direction = iota

	// LowerIsWorse suits cache hit rate.
	LowerIsWorse
)

// Thresholds classifies a metric value into a health status. Warn and Crit
// are in the metric's own unit. For [HigherIsWorse], values at or above
// Warn are degraded and at or above Crit are critical; [LowerIsWorse]
// mirrors the comparison.
type Thresholds struct {
	Warn      float64
	Crit      float64
	Direction Direction
}

// Zero reports whether no thresholds are configured.
func (t Thresholds) Zero() bool {
	return t.Warn == 0 && t.Crit == 0
}

// Classify maps a value against thresholds. Unconfigured thresholds yield
// StatusUnknown so cards without limits render neutrally.
func Classify(v float64, t Thresholds) string {
	if t.Zero() {
		return StatusUnknown
	}
	switch t.Direction {
	case LowerIsWorse:
		switch {
		case v <= t.Crit:
			return StatusCritical
		case v <= t.Warn:
			return StatusDegraded
		default:
			return StatusHealthy
		}
	default:
		switch {
		case v >= t.Crit:
			return StatusCritical
		case v >= t.Warn:
			return StatusDegraded
		default:
			return StatusHealthy
		}
	}
}
