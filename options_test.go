package fnpulse

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func mustCard(t *testing.T, name string, kind CardKind, opts ...CardOption) Card {
	t.Helper()
	card, err := NewCard(name, kind, opts...)
	if err != nil {
		t.Fatalf("NewCard(%q) error = %v", name, err)
	}
	return card
}

// baseOptions returns the minimum valid configuration for New.
func baseOptions(t *testing.T) []Option {
	t.Helper()
	return []Option{
		WithPlatform("https://api.example.dev", "test-key"),
		WithDeployment("happy-otter-123"),
		WithCard(mustCard(t, "Failure Rate", CardFailureRate)),
	}
}

// TestNew_Defaults verifies that a board created with minimal options gets
// the documented defaults.
func TestNew_Defaults(t *testing.T) {
	b, err := New(baseOptions(t)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if b.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", b.Port())
	}
	if b.RefreshInterval() != 15*time.Second {
		t.Errorf("RefreshInterval() = %v, want 15s", b.RefreshInterval())
	}
	if b.Deployment() != "happy-otter-123" {
		t.Errorf("Deployment() = %q, want %q", b.Deployment(), "happy-otter-123")
	}
	if len(b.Cards()) != 1 {
		t.Errorf("len(Cards()) = %d, want 1", len(b.Cards()))
	}
}

// TestNew_RequiresPlatform verifies that a platform origin is mandatory.
func TestNew_RequiresPlatform(t *testing.T) {
	_, err := New(
		WithDeployment("happy-otter-123"),
		WithCard(mustCard(t, "Failure Rate", CardFailureRate)),
	)
	if err == nil {
		t.Error("New() without platform should return error")
	}
}

// TestNew_RequiresDeployment verifies that a deployment is mandatory.
func TestNew_RequiresDeployment(t *testing.T) {
	_, err := New(
		WithPlatform("https://api.example.dev", "key"),
		WithCard(mustCard(t, "Failure Rate", CardFailureRate)),
	)
	if err == nil {
		t.Error("New() without deployment should return error")
	}
}

// TestNew_RequiresCards verifies that at least one card is mandatory.
func TestNew_RequiresCards(t *testing.T) {
	_, err := New(
		WithPlatform("https://api.example.dev", "key"),
		WithDeployment("happy-otter-123"),
	)
	if err == nil {
		t.Error("New() without cards should return error")
	}
}

// TestNew_DuplicateCardNames verifies that card names must be unique.
func TestNew_DuplicateCardNames(t *testing.T) {
	opts := append(baseOptions(t),
		WithCard(mustCard(t, "Failure Rate", CardCacheHitRate)),
	)
	_, err := New(opts...)
	if err == nil {
		t.Error("New() with duplicate card names should return error")
	}
}

// TestNew_UsageCardRequiresTeam verifies that the billing card cannot be
// configured without a team.
func TestNew_UsageCardRequiresTeam(t *testing.T) {
	opts := append(baseOptions(t), WithCard(mustCard(t, "Usage", CardUsage)))
	if _, err := New(opts...); err == nil {
		t.Error("New() with usage card but no team should return error")
	}

	opts = append(opts, WithTeam("acme"))
	if _, err := New(opts...); err != nil {
		t.Errorf("New() with usage card and team error = %v, want nil", err)
	}
}

// TestNew_OptionValidation verifies that invalid option values abort board
// creation.
func TestNew_OptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty platform URL", WithPlatform("", "key")},
		{"empty deployment", WithDeployment("")},
		{"zero refresh interval", WithRefreshInterval(0)},
		{"negative refresh interval", WithRefreshInterval(-time.Second)},
		{"port zero", WithPort(0)},
		{"port too large", WithPort(70000)},
		{"zero concurrency", WithMaxConcurrency(0)},
		{"nil logger", WithLogger(nil)},
		{"fractional backoff", WithStreamTuning(StreamTuning{BackoffFactor: 0.5})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append(baseOptions(t), tt.opt)
			if _, err := New(opts...); err == nil {
				t.Error("New() should return error for invalid option")
			}
		})
	}
}

// TestNew_NilCallbackIgnored verifies that a nil callback is accepted as a
// no-op.
func TestNew_NilCallbackIgnored(t *testing.T) {
	opts := append(baseOptions(t), WithCardCallback(nil))
	if _, err := New(opts...); err != nil {
		t.Errorf("New() with nil callback error = %v, want nil", err)
	}
}

// TestNew_CustomLogger verifies that a provided logger is accepted.
func TestNew_CustomLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := append(baseOptions(t), WithLogger(logger))
	b, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.logger != logger {
		t.Error("custom logger was not applied")
	}
}

// TestBoard_CardsReturnsCopy verifies that mutating the returned slice does
// not affect the board.
func TestBoard_CardsReturnsCopy(t *testing.T) {
	b, err := New(baseOptions(t)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cards := b.Cards()
	cards[0] = Card{}

	if b.Cards()[0].Name() != "Failure Rate" {
		t.Error("mutating the returned slice affected the board's cards")
	}
}
