package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
)

func newInspectCmd(a *app) *cobra.Command {
	var doc string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a document tree with sibling indexes",
		Long: `inspect prints one line per node: its sibling index, type, id and text.
Focusable leaves are marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(a, doc, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&doc, "doc", "", "document file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func runInspect(a *app, doc string, w io.Writer) error {
	st, err := loadDocument(doc, a.schema, id.NewGenerator())
	if err != nil {
		return err
	}
	tree := st.Tree()

	var b strings.Builder
	var walk func(n *node.Node, depth int)
	walk = func(n *node.Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		if depth > 0 {
			fmt.Fprintf(&b, "[%d] ", tree.Index(n))
		}
		fmt.Fprintf(&b, "%s %s", n.Name(), n.ID())
		if n.IsText() {
			b.WriteString(" " + strconv.Quote(n.Text()))
		}
		if n.IsFocusableLeaf() {
			b.WriteString(" *")
		}
		b.WriteByte('\n')
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	walk(st.Root(), 0)

	fmt.Fprintf(&b, "nodes: %d\n", tree.Len())
	_, err = io.WriteString(w, b.String())
	return err
}
