package engine

import (
	"log/slog"

	"github.com/emrgen/carbon/internal/config"
	"github.com/emrgen/carbon/internal/event"
	"github.com/emrgen/carbon/internal/metrics"
	"github.com/emrgen/carbon/internal/view"
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithConfig sets the initial configuration. Invalid configurations are
// ignored in favour of the defaults.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		if cfg.Validate() == nil {
			e.cfg = cfg
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBus publishes events on b instead of a private bus.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) {
		if b != nil {
			e.bus = b
		}
	}
}

// WithMetrics records transactions on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithViews shares a view store with the engine.
func WithViews(s *view.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.views = s
		}
	}
}
