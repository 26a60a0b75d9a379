package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emrgen/carbon/internal/config"
	"github.com/emrgen/carbon/internal/plugin/lua"
	"github.com/emrgen/carbon/internal/schema"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	schemaPath string

	cfg    config.Config
	logger *slog.Logger
	schema *schema.Schema
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "carbon",
		Short: "Inspect and replay carbon documents",
		Long: `carbon loads a document tree, applies recorded actions through the
transaction engine and prints the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "carbon.toml", "configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.schemaPath, "schema", "", "extra node types, TOML or Lua")

	root.AddCommand(
		newReplayCmd(a),
		newInspectCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.schemaPath != "" {
		cfg.Schema.Path = a.schemaPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(stderr, cfg.Log)

	s := schema.Default()
	if cfg.Schema.Path != "" {
		if err := loadSchema(ctx, s, cfg.Schema.Path); err != nil {
			return err
		}
		a.logger.Debug("schema loaded", "path", cfg.Schema.Path, "types", len(s.Names()))
	}
	a.schema = s
	return nil
}

func newLogger(w io.Writer, c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadSchema adds the types defined in path to s. Files ending in .lua run
// as scripts; anything else is read as TOML.
func loadSchema(ctx context.Context, s *schema.Schema, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".lua") {
		return schema.LoadTOMLFile(s, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file %s: %w", path, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return lua.LoadSchema(ctx, s, string(data))
}
