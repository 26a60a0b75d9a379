// Package node implements the document content tree.
//
// A Node owns its children; the back-reference to the parent is an
// identifier looked up through the Tree, never a pointer. The Tree keeps
// the identifier table and the per-parent sibling ordering (idtree) in step
// with the children slices, and journals every mutation so a draft can be
// rolled back exactly.
package node

import (
	"fmt"
	"strings"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/schema"
)

// State flags carried by a node.
type State uint8

const (
	Selected State = 1 << iota
	Active
)

// Node is one entity of the content tree.
type Node struct {
	id       id.ID
	parentID id.ID
	typ      *schema.NodeType
	children []*Node
	props    Props
	text     string
	state    State
}

// New creates a detached node.
func New(nodeID id.ID, typ *schema.NodeType) *Node {
	return &Node{id: nodeID, typ: typ}
}

// NewText creates a detached text node.
func NewText(nodeID id.ID, typ *schema.NodeType, text string, props Props) *Node {
	return &Node{id: nodeID, typ: typ, text: text, props: props}
}

// Append adds children to a node that is not yet registered in a tree.
// Registered nodes must be changed through Tree.Insert.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		c.parentID = n.id
	}
	n.children = append(n.children, children...)
	return n
}

// ID returns the node identifier.
func (n *Node) ID() id.ID { return n.id }

// ParentID returns the parent identifier, or id.Null for a detached node.
func (n *Node) ParentID() id.ID { return n.parentID }

// Type returns the node type.
func (n *Node) Type() *schema.NodeType { return n.typ }

// Name returns the type name.
func (n *Node) Name() string { return n.typ.Name }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Child returns the child at i.
func (n *Node) Child(i int) (*Node, bool) {
	if i < 0 || i >= len(n.children) {
		return nil, false
	}
	return n.children[i], true
}

// FirstChild returns the first child.
func (n *Node) FirstChild() (*Node, bool) { return n.Child(0) }

// LastChild returns the last child.
func (n *Node) LastChild() (*Node, bool) { return n.Child(len(n.children) - 1) }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Text returns the text content of a text node.
func (n *Node) Text() string { return n.text }

// Props returns the node attributes.
func (n *Node) Props() Props { return n.props }

// IsSelected reports whether the node is in the selected set.
func (n *Node) IsSelected() bool { return n.state&Selected != 0 }

// IsActive reports whether the node is in the activated set.
func (n *Node) IsActive() bool { return n.state&Active != 0 }

// IsText reports whether the node is a text leaf.
func (n *Node) IsText() bool { return n.typ.IsText() }

// IsFocusableLeaf reports whether a cursor can rest inside the node.
func (n *Node) IsFocusableLeaf() bool {
	return n.typ.IsFocusable() && !n.typ.IsContainer()
}

// Size returns the number of cursor positions the node spans:
// grapheme count for text, 1 for atoms and voids, 0 for empty
// placeholders, and the child count for containers.
func (n *Node) Size() int {
	switch {
	case n.typ.IsText():
		return TextLen(n.text)
	case n.typ.IsAtom(), n.typ.IsVoid():
		return 1
	case n.typ.IsEmpty():
		return 0
	default:
		return len(n.children)
	}
}

// TextContent concatenates the text of every text descendant.
func (n *Node) TextContent() string {
	var sb strings.Builder
	Preorder(n, func(c *Node) bool {
		if c.IsText() {
			sb.WriteString(c.text)
		}
		return true
	}, nil)
	return sb.String()
}

// String returns a short debug form.
func (n *Node) String() string {
	if n.IsText() {
		return fmt.Sprintf("%s(%s %q)", n.typ.Name, n.id, n.text)
	}
	return fmt.Sprintf("%s(%s)", n.typ.Name, n.id)
}

// Snapshot is a saved copy of a node's own fields.
type Snapshot struct {
	node Node
}

func (n *Node) snapshot() Snapshot {
	s := Snapshot{node: *n}
	s.node.children = make([]*Node, len(n.children))
	copy(s.node.children, n.children)
	return s
}

func (n *Node) restore(s Snapshot) {
	*n = s.node
}
