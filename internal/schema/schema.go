// Package schema describes node types and their capabilities.
//
// A NodeType is resolved once when the schema is built and carries capability
// flags (text, block, inline, atom, void, empty placeholder, container) that
// the tree, pin and action layers query instead of dispatching on names.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Errors returned by schema operations.
var (
	// ErrUnknownType indicates a node name that is not registered.
	ErrUnknownType = errors.New("unknown node type")

	// ErrDuplicateType indicates a name registered twice.
	ErrDuplicateType = errors.New("node type already registered")

	// ErrInvalidType indicates contradictory capability flags.
	ErrInvalidType = errors.New("invalid node type")
)

// Flags are node capabilities.
type Flags uint16

const (
	// Text nodes hold character content and no children.
	Text Flags = 1 << iota
	// Block nodes start a new line of layout.
	Block
	// Inline nodes flow inside a block.
	Inline
	// Atom nodes are navigated as a single unit.
	Atom
	// Void nodes have no editable content.
	Void
	// Empty marks a zero-width placeholder leaf.
	Empty
	// Container nodes hold children.
	Container
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Text, "text"},
	{Block, "block"},
	{Inline, "inline"},
	{Atom, "atom"},
	{Void, "void"},
	{Empty, "empty"},
	{Container, "container"},
}

// ParseFlag converts a flag name to its value.
func ParseFlag(name string) (Flags, error) {
	for _, f := range flagNames {
		if f.name == strings.ToLower(name) {
			return f.flag, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown flag %q", ErrInvalidType, name)
}

// String lists the set flags separated by "|".
func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// NodeType is a registered node kind.
type NodeType struct {
	Name  string
	Flags Flags
}

// Has reports whether all of flags are set.
func (t *NodeType) Has(flags Flags) bool { return t.Flags&flags == flags }

// IsText reports whether the type holds text.
func (t *NodeType) IsText() bool { return t.Has(Text) }

// IsBlock reports whether the type is a block.
func (t *NodeType) IsBlock() bool { return t.Has(Block) }

// IsInline reports whether the type flows inline.
func (t *NodeType) IsInline() bool { return t.Has(Inline) || t.Has(Text) }

// IsAtom reports whether the type is navigated as one unit.
func (t *NodeType) IsAtom() bool { return t.Has(Atom) }

// IsVoid reports whether the type has no editable content.
func (t *NodeType) IsVoid() bool { return t.Has(Void) }

// IsEmpty reports whether the type is a zero-width placeholder.
func (t *NodeType) IsEmpty() bool { return t.Has(Empty) }

// IsContainer reports whether the type holds children.
func (t *NodeType) IsContainer() bool { return t.Has(Container) }

// IsLeaf reports whether the type can never hold children.
func (t *NodeType) IsLeaf() bool { return !t.IsContainer() }

// IsFocusable reports whether a cursor can rest on the node.
func (t *NodeType) IsFocusable() bool {
	return t.IsText() || t.IsAtom() || t.IsVoid() || t.IsEmpty()
}

// Validate checks that the flags are consistent.
func (t *NodeType) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	if t.IsText() && t.IsContainer() {
		return fmt.Errorf("%w: %s is both text and container", ErrInvalidType, t.Name)
	}
	if (t.IsAtom() || t.IsVoid() || t.IsEmpty()) && t.IsContainer() {
		return fmt.Errorf("%w: %s is a leaf kind and a container", ErrInvalidType, t.Name)
	}
	if t.Has(Block) && t.Has(Inline) {
		return fmt.Errorf("%w: %s is both block and inline", ErrInvalidType, t.Name)
	}
	return nil
}

// String returns "name(flags)".
func (t *NodeType) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, t.Flags)
}

// Schema is a registry of node types.
// It is safe for concurrent use.
type Schema struct {
	mu    sync.RWMutex
	types map[string]*NodeType
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{types: make(map[string]*NodeType)}
}

// Default returns a schema with the built-in document types.
func Default() *Schema {
	s := New()
	for _, t := range []NodeType{
		{Name: "document", Flags: Block | Container},
		{Name: "section", Flags: Block | Container},
		{Name: "paragraph", Flags: Block | Container},
		{Name: "heading", Flags: Block | Container},
		{Name: "text", Flags: Text | Inline},
		{Name: "mention", Flags: Inline | Atom},
		{Name: "image", Flags: Block | Atom | Void},
		{Name: "empty", Flags: Inline | Empty},
	} {
		if err := s.Register(t); err != nil {
			panic(err)
		}
	}
	return s
}

// Register adds a node type.
func (s *Schema) Register(t NodeType) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.Name)
	}
	nt := t
	s.types[t.Name] = &nt
	return nil
}

// Type resolves a name.
func (s *Schema) Type(name string) (*NodeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// MustType resolves a name and panics when it is unknown.
func (s *Schema) MustType(name string) *NodeType {
	t, err := s.Type(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the registered names in sorted order.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.types))
	for n := range s.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
