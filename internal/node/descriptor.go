package node

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/schema"
)

// Descriptor is the JSON/YAML form of a node subtree.
type Descriptor struct {
	ID       id.ID          `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string         `json:"name" yaml:"name" validate:"required"`
	Text     string         `json:"text,omitempty" yaml:"text,omitempty"`
	Props    map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Children []*Descriptor  `json:"children,omitempty" yaml:"children,omitempty" validate:"omitempty,dive,required"`
}

// ParseJSON decodes a descriptor from JSON.
func ParseJSON(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return &d, nil
}

// ParseYAML decodes a descriptor from YAML.
func ParseYAML(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return &d, nil
}

// ToDescriptor converts a subtree back into its descriptor form.
func ToDescriptor(n *Node) *Descriptor {
	d := &Descriptor{ID: n.id, Name: n.typ.Name, Text: n.text}
	if !n.props.IsEmpty() {
		d.Props = n.props.Map()
	}
	for _, c := range n.children {
		d.Children = append(d.Children, ToDescriptor(c))
	}
	return d
}

// Factory builds nodes from descriptors, resolving type names against a
// schema and minting ids for descriptors that carry none.
type Factory struct {
	schema   *schema.Schema
	gen      *id.Generator
	validate *validator.Validate
}

// NewFactory creates a factory.
func NewFactory(s *schema.Schema, gen *id.Generator) *Factory {
	return &Factory{
		schema:   s,
		gen:      gen,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Schema returns the schema used to resolve names.
func (f *Factory) Schema() *schema.Schema { return f.schema }

// Generator returns the id generator.
func (f *Factory) Generator() *id.Generator { return f.gen }

// Create validates d and builds the detached subtree it describes.
func (f *Factory) Create(d *Descriptor) (*Node, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if err := f.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s failed %q", ErrInvalidDescriptor, verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return f.build(d)
}

// CreateAll builds several subtrees.
func (f *Factory) CreateAll(ds []*Descriptor) ([]*Node, error) {
	out := make([]*Node, 0, len(ds))
	for _, d := range ds {
		n, err := f.Create(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// CreateJSON builds a subtree from its JSON descriptor.
func (f *Factory) CreateJSON(data []byte) (*Node, error) {
	d, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return f.Create(d)
}

// CreateYAML builds a subtree from its YAML descriptor.
func (f *Factory) CreateYAML(data []byte) (*Node, error) {
	d, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return f.Create(d)
}

// Text builds a text node of the named type with a fresh text id.
func (f *Factory) Text(name, text string, props Props) (*Node, error) {
	typ, err := f.schema.Type(name)
	if err != nil {
		return nil, err
	}
	if !typ.IsText() {
		return nil, fmt.Errorf("%w: %s", ErrNotText, name)
	}
	return NewText(f.gen.Text(), typ, text, props), nil
}

func (f *Factory) build(d *Descriptor) (*Node, error) {
	typ, err := f.schema.Type(d.Name)
	if err != nil {
		return nil, err
	}
	if d.Text != "" && !typ.IsText() {
		return nil, fmt.Errorf("%w: %s cannot carry text", ErrInvalidDescriptor, d.Name)
	}
	if len(d.Children) > 0 && !typ.IsContainer() {
		return nil, fmt.Errorf("%w: %s cannot have children", ErrInvalidDescriptor, d.Name)
	}
	props, err := PropsFromMap(d.Props)
	if err != nil {
		return nil, err
	}

	nodeID := d.ID
	if nodeID.IsNull() {
		if typ.IsText() {
			nodeID = f.gen.Text()
		} else {
			nodeID = f.gen.Block()
		}
	}
	n := &Node{id: nodeID, typ: typ, text: d.Text, props: props}
	for _, cd := range d.Children {
		c, err := f.build(cd)
		if err != nil {
			return nil, err
		}
		n.Append(c)
	}
	return n, nil
}
