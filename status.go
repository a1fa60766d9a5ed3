package fnpulse

import "github.com/fnpulse/fnpulse/internal/metrics"

// Status represents the health classification of a dashboard card.
//
// Status is a string type that can hold one of four predefined values:
// [StatusHealthy], [StatusDegraded], [StatusCritical], or [StatusUnknown].
// Using a string type allows for easy JSON serialization and human-readable
// logging while maintaining type safety through the defined constants.
type Status string

const (
	// StatusHealthy indicates the metric is within its configured limits.
	StatusHealthy Status = Status(metrics.StatusHealthy)

	// StatusDegraded indicates the metric crossed its warning threshold.
	StatusDegraded Status = Status(metrics.StatusDegraded)

	// StatusCritical indicates the metric crossed its critical threshold.
	StatusCritical Status = Status(metrics.StatusCritical)

	// StatusUnknown indicates no classification was possible, typically
	// because the card has no thresholds configured or has not refreshed
	// yet.
	StatusUnknown Status = Status(metrics.StatusUnknown)
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}
