// Package config provides YAML configuration parsing for fnpulse.
//
// This package enables running fnpulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Production Health
//	port: 8080
//	refresh_interval: 15s
//
//	platform:
//	  url: https://api.example.dev
//	  deploy_key: ${FNPULSE_DEPLOY_KEY}
//	deployment: happy-otter-123
//	team: acme
//
//	cards:
//	  - name: Failure Rate
//	    kind: failure_rate
//	    thresholds: 1/5
//	  - name: Cache Hit Rate
//	    kind: cache_hit_rate
//	    thresholds:
//	      warn: 80
//	      crit: 50
//	      lower_is_worse: true
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minRefreshInterval is the minimum allowed refresh interval for production
// configs. This prevents accidental DoS of the platform API with overly
// aggressive polling.
const minRefreshInterval = 1 * time.Second

// cardKinds is the set of kinds accepted in card definitions, mirroring the
// fnpulse.Card* constants.
var cardKinds = map[string]struct{}{
	"failure_rate":   {},
	"cache_hit_rate": {},
	"latency":        {},
	"scheduler_lag":  {},
	"request_rate":   {},
	"udf_table":      {},
	"usage":          {},
}

// Config is the root configuration structure for fnpulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "fnpulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// RefreshInterval is the default time between card refreshes.
	// Accepts duration strings like "10s", "1m", "500ms".
	// Defaults to 15s.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// MaxConcurrency bounds concurrent platform requests per refresh cycle.
	// Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Platform identifies the platform API to poll.
	Platform PlatformConfig `yaml:"platform"`

	// Deployment is the deployment whose health the board displays.
	Deployment string `yaml:"deployment"`

	// Team is the team whose billing usage the usage card displays.
	// Required only when a usage card is defined.
	Team string `yaml:"team"`

	// Stream tunes the execution-log stream's pacing.
	Stream StreamConfig `yaml:"stream"`

	// Cards defines the dashboard cards.
	Cards []CardConfig `yaml:"cards"`
}

// PlatformConfig identifies the platform API.
type PlatformConfig struct {
	// URL is the platform API origin.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// DeployKey is the bearer credential sent with every request.
	// Supports environment variable substitution.
	DeployKey string `yaml:"deploy_key"`
}

// StreamConfig tunes the execution-log stream. Zero-value fields keep the
// built-in defaults (2s floor, 2s active, 3s idle growing by 1.5x to 15s).
type StreamConfig struct {
	MinRequestInterval Duration `yaml:"min_request_interval"`
	ActiveInterval     Duration `yaml:"active_interval"`
	IdleInterval       Duration `yaml:"idle_interval"`
	IdleIntervalMax    Duration `yaml:"idle_interval_max"`
	BackoffFactor      float64  `yaml:"backoff_factor"`
	MaxEntries         int      `yaml:"max_entries"`
}

// CardConfig defines a single dashboard card.
type CardConfig struct {
	// Name is the display name shown in the dashboard. Must be unique.
	Name string `yaml:"name"`

	// Kind selects the metric family: failure_rate, cache_hit_rate,
	// latency, scheduler_lag, request_rate, udf_table, or usage.
	Kind string `yaml:"kind"`

	// Window is the trailing window the metric is computed over.
	// Defaults to 1h.
	Window Duration `yaml:"window"`

	// Interval is the custom refresh interval for this card.
	// If not specified, uses the global refresh_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`

	// Rows limits the rows of a udf_table card. Defaults to 10.
	Rows int `yaml:"rows"`

	// Thresholds classify the card's headline value.
	// Can be shorthand ("1/5", "80/50 lower") or structured.
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig specifies how a card's headline value maps to a status.
//
// It supports two formats in YAML:
//
// Shorthand string, "warn/crit" with an optional "lower" suffix for metrics
// where small values are bad:
//
//	thresholds: 1/5
//	thresholds: 80/50 lower
//
// Structured object:
//
//	thresholds:
//	  warn: 80
//	  crit: 50
//	  lower_is_worse: true
type ThresholdConfig struct {
	// Warn is the warning limit; at or beyond it the card degrades.
	Warn float64

	// Crit is the critical limit.
	Crit float64

	// LowerIsWorse mirrors the comparisons for metrics where small values
	// are bad (cache hit rate).
	LowerIsWorse bool

	// set records whether thresholds were configured at all.
	set bool
}

// IsSet reports whether thresholds were configured for the card.
func (t ThresholdConfig) IsSet() bool {
	return t.set
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ThresholdConfig.
func (t *ThresholdConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return t.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Warn         float64 `yaml:"warn"`
			Crit         float64 `yaml:"crit"`
			LowerIsWorse bool    `yaml:"lower_is_worse"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		t.Warn = raw.Warn
		t.Crit = raw.Crit
		t.LowerIsWorse = raw.LowerIsWorse
		t.set = true
		return nil
	}

	return fmt.Errorf("thresholds must be a string or object, got %v", node.Kind)
}

// parseShorthand parses threshold shorthand syntax.
//
// Supported formats:
//   - "warn/crit" → limits with higher-is-worse comparisons
//   - "warn/crit lower" → mirrored comparisons (small values are bad)
func (t *ThresholdConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if rest, ok := strings.CutSuffix(s, " lower"); ok {
		t.LowerIsWorse = true
		s = strings.TrimSpace(rest)
	}

	warnStr, critStr, found := strings.Cut(s, "/")
	if !found {
		return fmt.Errorf("invalid thresholds %q (expected 'warn/crit' or 'warn/crit lower')", s)
	}

	warn, err := strconv.ParseFloat(strings.TrimSpace(warnStr), 64)
	if err != nil {
		return fmt.Errorf("invalid warn threshold %q: %w", warnStr, err)
	}
	crit, err := strconv.ParseFloat(strings.TrimSpace(critStr), 64)
	if err != nil {
		return fmt.Errorf("invalid crit threshold %q: %w", critStr, err)
	}

	t.Warn = warn
	t.Crit = crit
	t.set = true
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the platform URL and deploy key.
// Defaults are applied for Port (8080), RefreshInterval (15s), and
// MaxConcurrency (10).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = Duration(15 * time.Second)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 10
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.RefreshInterval.Duration() < minRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %s, got %s", minRefreshInterval, c.RefreshInterval.Duration())
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}

	if c.Platform.URL == "" {
		return errors.New("platform.url is required")
	}
	expanded, err := expandEnvVars(c.Platform.URL)
	if err != nil {
		return fmt.Errorf("platform.url: %w", err)
	}
	c.Platform.URL = expanded

	parsedURL, err := url.Parse(c.Platform.URL)
	if err != nil {
		return fmt.Errorf("platform.url: invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("platform.url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("platform.url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	expanded, err = expandEnvVars(c.Platform.DeployKey)
	if err != nil {
		return fmt.Errorf("platform.deploy_key: %w", err)
	}
	c.Platform.DeployKey = expanded

	if c.Deployment == "" {
		return errors.New("deployment is required")
	}

	if c.Stream.BackoffFactor != 0 && c.Stream.BackoffFactor < 1 {
		return fmt.Errorf("stream.backoff_factor must be at least 1.0, got %v", c.Stream.BackoffFactor)
	}
	for name, d := range map[string]Duration{
		"stream.min_request_interval": c.Stream.MinRequestInterval,
		"stream.active_interval":      c.Stream.ActiveInterval,
		"stream.idle_interval":        c.Stream.IdleInterval,
		"stream.idle_interval_max":    c.Stream.IdleIntervalMax,
	} {
		if d.Duration() < 0 {
			return fmt.Errorf("%s cannot be negative, got %s", name, d.Duration())
		}
	}

	if len(c.Cards) == 0 {
		return errors.New("at least one card must be defined")
	}

	seen := make(map[string]struct{}, len(c.Cards))
	for i := range c.Cards {
		cc := &c.Cards[i]

		if cc.Name == "" {
			return fmt.Errorf("cards[%d]: name is required", i)
		}
		if _, dup := seen[cc.Name]; dup {
			return fmt.Errorf("cards[%d]: duplicate card name %q", i, cc.Name)
		}
		seen[cc.Name] = struct{}{}

		if cc.Kind == "" {
			return fmt.Errorf("cards[%d] (%s): kind is required", i, cc.Name)
		}
		if _, ok := cardKinds[cc.Kind]; !ok {
			return fmt.Errorf("cards[%d] (%s): unknown kind %q", i, cc.Name, cc.Kind)
		}

		if cc.Kind == "usage" && c.Team == "" {
			return fmt.Errorf("cards[%d] (%s): kind 'usage' requires a team", i, cc.Name)
		}

		if cc.Window != 0 && cc.Window.Duration() <= 0 {
			return fmt.Errorf("cards[%d] (%s): window must be positive, got %s", i, cc.Name, cc.Window.Duration())
		}

		if cc.Interval != 0 {
			if cc.Interval.Duration() < time.Second {
				return fmt.Errorf("cards[%d] (%s): interval must be at least 1s, got %s",
					i, cc.Name, cc.Interval.Duration())
			}
			if cc.Interval.Duration() > time.Hour {
				return fmt.Errorf("cards[%d] (%s): interval must not exceed 1h, got %s",
					i, cc.Name, cc.Interval.Duration())
			}
		}

		if cc.Rows < 0 {
			return fmt.Errorf("cards[%d] (%s): rows cannot be negative, got %d", i, cc.Name, cc.Rows)
		}

		if err := validateThresholds(cc.Thresholds, fmt.Sprintf("cards[%d] (%s)", i, cc.Name)); err != nil {
			return err
		}
	}

	return nil
}

// validateThresholds checks that configured limits are ordered consistently
// with their direction.
func validateThresholds(t ThresholdConfig, context string) error {
	if !t.set {
		return nil // no thresholds means the card stays unclassified
	}

	if t.LowerIsWorse {
		if t.Warn < t.Crit {
			return fmt.Errorf("%s: with lower_is_worse, warn (%v) must be at or above crit (%v)", context, t.Warn, t.Crit)
		}
	} else {
		if t.Warn > t.Crit {
			return fmt.Errorf("%s: warn (%v) must be at or below crit (%v)", context, t.Warn, t.Crit)
		}
	}
	return nil
}
