package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Config is the engine configuration.
type Config struct {
	History     HistoryConfig     `toml:"history"`
	Tree        TreeConfig        `toml:"tree"`
	Transaction TransactionConfig `toml:"transaction"`
	Log         LogConfig         `toml:"log"`
	Schema      SchemaConfig      `toml:"schema"`
}

// HistoryConfig bounds the undo stack.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries" validate:"gte=1,lte=100000"`
}

// TreeConfig tunes the sibling index maps.
type TreeConfig struct {
	// CompactThreshold is the mapper length above which a container is
	// compacted after commit. Zero disables compaction.
	CompactThreshold int `toml:"compact_threshold" validate:"gte=0"`
}

// TransactionConfig sets the failure policy.
type TransactionConfig struct {
	// AbortOnFailure rolls back a transaction when any action fails.
	AbortOnFailure bool `toml:"abort_on_failure"`
}

// LogConfig configures the slog handler built by the CLI.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// SchemaConfig points at a node type definition file, TOML or Lua.
type SchemaConfig struct {
	Path string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History:     HistoryConfig{MaxEntries: 1000},
		Tree:        TreeConfig{CompactThreshold: 64},
		Transaction: TransactionConfig{AbortOnFailure: false},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s = %v fails %q", ErrInvalidConfig, fe.Namespace(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
