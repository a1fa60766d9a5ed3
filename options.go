package fnpulse

import (
	"errors"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	platformURL     string
	token           string
	deployment      string
	team            string
	cards           []Card
	refreshInterval time.Duration
	port            int
	maxConcurrency  int
	logger          *slog.Logger
	cardCallbacks   []func(CardUpdate)
	tuning          StreamTuning
	streamGate      func() bool
}

// Option is a function that configures a [Board] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithPlatform], [WithDeployment], [WithCard],
// [WithCards], [WithRefreshInterval], [WithPort], [WithMaxConcurrency].
type Option func(*boardConfig) error

// StreamTuning adjusts the execution-log stream's polling cadence.
//
// Zero-value fields keep the built-in defaults, which match the pacing of
// the platform's own dashboard: a 2s floor between requests, 2s between
// polls while entries are arriving, and an idle delay that grows from 3s by
// a factor of 1.5 up to 15s.
type StreamTuning struct {
	// MinRequestInterval is the hard floor between the start of one log
	// request and the start of the next.
	MinRequestInterval time.Duration

	// ActiveInterval is the delay after a poll that returned new entries.
	ActiveInterval time.Duration

	// IdleInterval is the initial delay after a poll that returned nothing.
	IdleInterval time.Duration

	// IdleIntervalMax caps the grown idle delay.
	IdleIntervalMax time.Duration

	// BackoffFactor multiplies the idle delay per consecutive empty poll.
	// 1.0 yields fixed-interval polling.
	BackoffFactor float64

	// MaxEntries caps the retained log collection. Zero means unbounded.
	MaxEntries int
}

// WithPlatform sets the platform API origin and the deploy key used to
// authenticate every request.
//
// The base URL is required; [New] fails without it. The token may be empty
// for platforms that do not require authentication (e.g., a local dev
// deployment).
//
// Example:
//
//	b, err := fnpulse.New(
//	    fnpulse.WithPlatform("https://api.example.dev", os.Getenv("DEPLOY_KEY")),
//	    fnpulse.WithDeployment("happy-otter-123"),
//	    fnpulse.WithCard(card),
//	)
func WithPlatform(baseURL, token string) Option {
	return func(cfg *boardConfig) error {
		if baseURL == "" {
			return errors.New("platform base URL cannot be empty")
		}
		cfg.platformURL = baseURL
		cfg.token = token
		return nil
	}
}

// WithDeployment sets the deployment whose health the board displays.
//
// A deployment is required; [New] fails without one.
func WithDeployment(name string) Option {
	return func(cfg *boardConfig) error {
		if name == "" {
			return errors.New("deployment cannot be empty")
		}
		cfg.deployment = name
		return nil
	}
}

// WithTeam sets the team whose billing usage the [CardUsage] card displays.
//
// Required only when a usage card is configured.
func WithTeam(name string) Option {
	return func(cfg *boardConfig) error {
		cfg.team = name
		return nil
	}
}

// WithCard adds a single [Card] to the board.
//
// Can be called multiple times to add multiple cards. At least one card
// must be configured for [New] to succeed.
func WithCard(c Card) Option {
	return func(cfg *boardConfig) error {
		cfg.cards = append(cfg.cards, c)
		return nil
	}
}

// WithCards adds multiple [Card] values to the board.
//
// This is a convenience function for adding several cards at once.
// Equivalent to calling [WithCard] multiple times.
func WithCards(cards ...Card) Option {
	return func(cfg *boardConfig) error {
		cfg.cards = append(cfg.cards, cards...)
		return nil
	}
}

// WithRefreshInterval sets the default interval between card refreshes.
//
// Applies to every card that does not carry its own interval via
// [WithCardInterval]. Defaults to 15 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of concurrent platform
// requests during a refresh cycle.
//
// Use this to respect platform rate limits. Defaults to 10 if not
// specified. The execution-log stream is paced separately and does not
// count against this limit.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *boardConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Board instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and
// header.
//
// If not specified, defaults to "fnpulse".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithCardCallback registers a function to be called on every card refresh.
//
// The callback receives a [CardUpdate] containing the refresh outcome,
// including the card name, headline value, status, and any error.
//
// Multiple callbacks may be registered by calling WithCardCallback multiple
// times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks will delay
// subsequent refresh result processing.
//
// Callbacks are invoked synchronously from a single goroutine. Panics
// within callbacks are recovered and logged; they do not crash the board.
//
// Example:
//
//	b, err := fnpulse.New(
//	    fnpulse.WithCard(card),
//	    fnpulse.WithCardCallback(func(u fnpulse.CardUpdate) {
//	        if u.Status == fnpulse.StatusCritical {
//	            log.Printf("ALERT: %s is critical (%.1f %s)", u.CardName, u.Value, u.Unit)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithCardCallback(cb func(CardUpdate)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.cardCallbacks = append(cfg.cardCallbacks, cb)
		return nil
	}
}

// WithStreamTuning overrides the execution-log stream's pacing.
//
// Zero-value fields keep the defaults documented on [StreamTuning].
func WithStreamTuning(t StreamTuning) Option {
	return func(cfg *boardConfig) error {
		if t.BackoffFactor != 0 && t.BackoffFactor < 1 {
			return errors.New("stream backoff factor must be at least 1.0")
		}
		cfg.tuning = t
		return nil
	}
}

// WithStreamGate sets a predicate checked before every log request. While
// it returns false the stream pauses without issuing requests and resumes
// from its last position once the gate opens again.
//
// Use this to stop polling while no one is looking (e.g., the terminal UI
// is suspended or no browser tab is connected). A nil gate always runs.
func WithStreamGate(gate func() bool) Option {
	return func(cfg *boardConfig) error {
		cfg.streamGate = gate
		return nil
	}
}
