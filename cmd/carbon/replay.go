package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/engine"
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/metrics"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

type replayOptions struct {
	doc     string
	actions string
	origin  string
	compact bool
}

// replayOutput is what replay prints.
type replayOutput struct {
	Version   uint64              `json:"version"`
	Actions   int                 `json:"actions"`
	Failed    []string            `json:"failed,omitempty"`
	Selection pin.PinnedSelection `json:"selection"`
	Document  *node.Descriptor    `json:"document"`
}

func newReplayCmd(a *app) *cobra.Command {
	o := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply recorded actions to a document and print the result",
		Long: `replay decodes a JSON array of actions, applies them to the document in
one transaction and prints the resulting document as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(a, o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&o.doc, "doc", "", "document file (YAML or JSON)")
	cmd.Flags().StringVar(&o.actions, "actions", "", "JSON file holding an array of actions")
	cmd.Flags().StringVar(&o.origin, "origin", "user", "origin of the replayed transaction")
	cmd.Flags().BoolVar(&o.compact, "compact", false, "print compact JSON")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("actions")
	return cmd
}

func runReplay(a *app, o *replayOptions, w io.Writer) error {
	origin, err := state.ParseOrigin(o.origin)
	if err != nil {
		return err
	}

	gen := id.NewGenerator()
	st, err := loadDocument(o.doc, a.schema, gen)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(o.actions)
	if err != nil {
		return fmt.Errorf("reading actions %s: %w", o.actions, err)
	}
	actions, err := action.DecodeAll(data, node.NewFactory(a.schema, gen))
	if err != nil {
		return fmt.Errorf("actions %s: %w", o.actions, err)
	}

	eng := engine.New(st,
		engine.WithConfig(a.cfg),
		engine.WithLogger(a.logger),
		engine.WithMetrics(metrics.New(nil)),
	)
	tx, err := eng.Apply(origin, actions...)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	out := replayOutput{
		Version:   eng.Version(),
		Actions:   len(tx.Actions),
		Selection: eng.Selection(),
		Document:  eng.Descriptor(),
	}
	for i, r := range tx.Results {
		if !r.Ok() {
			out.Failed = append(out.Failed, fmt.Sprintf("%d %s: %v", i, tx.Actions[i].Kind(), r.Err))
			a.logger.Warn("action failed", "index", i, "kind", tx.Actions[i].Kind(), "error", r.Err)
		}
	}

	js, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if !o.compact {
		js = pretty.Pretty(js)
	} else {
		js = append(js, '\n')
	}
	_, err = w.Write(js)
	return err
}
