package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/schema"
	"github.com/emrgen/carbon/internal/state"
)

// loadDocument reads a descriptor file, YAML or JSON by extension, and
// builds a state around it. A root without an id becomes id.Root.
func loadDocument(path string, s *schema.Schema, gen *id.Generator) (*state.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}

	var d *node.Descriptor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		d, err = node.ParseYAML(data)
	default:
		d, err = node.ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	if d.ID.IsNull() {
		d.ID = id.Root
	}

	root, err := node.NewFactory(s, gen).Create(d)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	tree, err := node.NewTree(root)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return state.New(tree, state.WithSchema(s), state.WithGenerator(gen)), nil
}
