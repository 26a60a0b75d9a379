package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   *slog.Logger
	onError  func(error)
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// WithWatchLogger sets the logger for reload failures.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		o.logger = l
	}
}

// WithErrorHandler receives load and watcher errors.
func WithErrorHandler(fn func(error)) WatchOption {
	return func(o *watchOptions) {
		o.onError = fn
	}
}

// Watch reloads the configuration at path whenever the file changes and
// passes each valid result to fn. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// which replace the file on save keep being observed.
//
// A running engine picks up edits with:
//
//	go config.Watch(ctx, path, func(c config.Config) {
//		if err := eng.ApplyConfig(c); err != nil {
//			logger.Warn("config rejected", "error", err)
//		}
//	})
func Watch(ctx context.Context, path string, fn func(Config), opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	report := func(err error) {
		o.logger.Warn("config reload failed", "path", abs, "error", err)
		if o.onError != nil {
			o.onError(err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(o.debounce)
			} else {
				timer.Reset(o.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := Load(abs)
			if err != nil {
				report(err)
				continue
			}
			o.logger.Debug("config reloaded", "path", abs)
			fn(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			report(err)
		}
	}
}
