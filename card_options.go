package fnpulse

import (
	"fmt"
	"time"
)

// cardConfig holds the mutable configuration during card construction.
// After NewCard returns, the values are copied into an immutable Card.
type cardConfig struct {
	window     time.Duration
	interval   time.Duration
	classifier Classifier
	tableRows  int
}

// CardOption is a functional option for configuring a [Card].
// Options are applied during [NewCard] and can return errors for invalid
// configurations, which abort card creation.
type CardOption func(*cardConfig) error

// WithWindow sets the trailing window the card's metric is computed over.
//
// The platform aggregates series and per-function statistics over this
// window. It must be positive; the default is one hour.
func WithWindow(window time.Duration) CardOption {
	return func(cfg *cardConfig) error {
		if window <= 0 {
			return fmt.Errorf("window must be positive, got %v", window)
		}
		cfg.window = window
		return nil
	}
}

// WithCardInterval sets a custom refresh interval for this card,
// overriding the board-wide interval configured via [WithRefreshInterval].
//
// The interval must be at least one second to avoid overwhelming the
// platform API.
func WithCardInterval(interval time.Duration) CardOption {
	return func(cfg *cardConfig) error {
		if interval < time.Second {
			return fmt.Errorf("card interval must be at least 1s, got %v", interval)
		}
		cfg.interval = interval
		return nil
	}
}

// WithClassifier sets the function used to derive the card's [Status] from
// its headline value. Without a classifier the card always reports
// [StatusUnknown].
func WithClassifier(c Classifier) CardOption {
	return func(cfg *cardConfig) error {
		if c == nil {
			return fmt.Errorf("classifier cannot be nil")
		}
		cfg.classifier = c
		return nil
	}
}

// WithTableRows limits how many rows a [CardUDFTable] card shows.
// Rows are ranked by invocation count. The default is 10.
func WithTableRows(n int) CardOption {
	return func(cfg *cardConfig) error {
		if n <= 0 {
			return fmt.Errorf("table rows must be positive, got %d", n)
		}
		cfg.tableRows = n
		return nil
	}
}
