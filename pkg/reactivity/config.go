package reactivity

import (
	"fmt"
	"log/slog"
	"strings"
)

// ReadonlyPolicy controls what happens when code mutates a readonly wrapper.
// The mutation is always refused; the policy only decides how loudly.
type ReadonlyPolicy int

const (
	// ReadonlyWarn logs a warning through the engine logger. This is the default.
	ReadonlyWarn ReadonlyPolicy = iota

	// ReadonlyPanic panics with the *Diagnostic. Useful in tests and strict
	// development builds.
	ReadonlyPanic

	// ReadonlySilent only reports the diagnostic to the Observer.
	ReadonlySilent
)

// String returns the policy name as used in configuration files.
func (p ReadonlyPolicy) String() string {
	switch p {
	case ReadonlyWarn:
		return "warn"
	case ReadonlyPanic:
		return "panic"
	case ReadonlySilent:
		return "silent"
	default:
		return fmt.Sprintf("ReadonlyPolicy(%d)", int(p))
	}
}

// ParseReadonlyPolicy parses "warn", "panic" or "silent".
// The empty string yields ReadonlyWarn.
func ParseReadonlyPolicy(s string) (ReadonlyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return ReadonlyWarn, nil
	case "panic":
		return ReadonlyPanic, nil
	case "silent":
		return ReadonlySilent, nil
	default:
		return ReadonlyWarn, fmt.Errorf("reactivity: unknown readonly policy %q", s)
	}
}

// Config holds the settings of an Engine.
type Config struct {
	// Logger receives readonly warnings.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Observer receives track, trigger, effect and diagnostic events.
	// If nil, events are discarded.
	Observer Observer

	// ReadonlyPolicy decides how refused readonly mutations are reported.
	ReadonlyPolicy ReadonlyPolicy
}

// DefaultConfig returns a Config with the default logger, no observer and
// the ReadonlyWarn policy.
func DefaultConfig() Config {
	return Config{
		Logger:         slog.Default(),
		Observer:       NopObserver{},
		ReadonlyPolicy: ReadonlyWarn,
	}
}

// Option configures an Engine.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithObserver sets the engine observer. Use Observers to attach several.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithReadonlyPolicy sets how readonly violations are reported.
func WithReadonlyPolicy(p ReadonlyPolicy) Option {
	return func(c *Config) {
		c.ReadonlyPolicy = p
	}
}
