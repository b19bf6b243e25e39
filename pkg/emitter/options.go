package emitter

import (
	"log/slog"
	"time"
)

// DefaultDelay is the tick period used when none is configured.
const DefaultDelay = time.Second

// Option configures an Emitter.
type Option func(*Emitter)

// WithDelay sets the tick period. Zero or negative values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithRunImmediately runs one tick synchronously when the first data
// subscriber arrives.
func WithRunImmediately(v bool) Option {
	return func(e *Emitter) { e.runImmediately = v }
}

// WithAutoRequest controls whether each tick asks the provider for data.
func WithAutoRequest(v bool) Option {
	return func(e *Emitter) { e.autoRequest = v }
}

// WithName labels logs and metrics.
func WithName(name string) Option {
	return func(e *Emitter) {
		if name != "" {
			e.name = name
		}
	}
}

// WithLogger sets the logger for transition and tick messages. Nil keeps
// slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks installs custom hooks. Nil keeps BaseHooks.
func WithHooks(h Hooks) Option {
	return func(e *Emitter) {
		if h != nil {
			e.hooks = h
		}
	}
}
