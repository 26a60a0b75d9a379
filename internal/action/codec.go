package action

import (
	"encoding/json"
	"fmt"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

// wire is the JSON envelope shared by every action. At holds a pin.Point
// for structural actions and a pin.Pin for text actions.
type wire struct {
	Kind      Kind                 `json:"kind"`
	Origin    state.Origin         `json:"origin,omitempty"`
	ID        id.ID                `json:"id,omitempty"`
	At        json.RawMessage      `json:"at,omitempty"`
	To        *pin.Point           `json:"to,omitempty"`
	Nodes     []*node.Descriptor   `json:"nodes,omitempty"`
	Text      string               `json:"text,omitempty"`
	Length    int                  `json:"length,omitempty"`
	Name      string               `json:"name,omitempty"`
	Props     *node.Props          `json:"props,omitempty"`
	Raw       bool                 `json:"raw,omitempty"`
	Selection *pin.PinnedSelection `json:"selection,omitempty"`
	IDs       []id.ID              `json:"ids,omitempty"`
	Actions   []json.RawMessage    `json:"actions,omitempty"`
}

func envelope(a Action) wire {
	return wire{Kind: a.Kind(), Origin: a.Origin()}
}

func descriptors(nodes []*node.Node) []*node.Descriptor {
	out := make([]*node.Descriptor, len(nodes))
	for i, n := range nodes {
		out[i] = node.ToDescriptor(n)
	}
	return out
}

func marshalAt(w *wire, at any) error {
	raw, err := json.Marshal(at)
	if err != nil {
		return err
	}
	w.At = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a *Insert) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	if err := marshalAt(&w, a.At); err != nil {
		return nil, err
	}
	w.Nodes = descriptors(a.Nodes)
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *Remove) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.ID = a.ID
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *Move) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.ID = a.ID
	to := a.To
	w.To = &to
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *SetContent) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.ID, w.Text = a.ID, a.Text
	w.Nodes = descriptors(a.Children)
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *UpdateProps) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.ID = a.ID
	patch := a.Patch
	w.Props = &patch
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *ChangeName) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.ID, w.Name = a.ID, a.Name
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *InsertText) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	if err := marshalAt(&w, a.At); err != nil {
		return nil, err
	}
	w.Text, w.Props, w.Raw = a.Text, a.Props, a.Raw
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *RemoveText) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	if err := marshalAt(&w, a.At); err != nil {
		return nil, err
	}
	w.Length = a.Length
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *Select) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	sel := a.Selection
	w.Selection = &sel
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *SelectNodes) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.IDs = a.IDs
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *ActivateNodes) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.IDs = a.IDs
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (a *Batch) MarshalJSON() ([]byte, error) {
	w := envelope(a)
	w.Actions = make([]json.RawMessage, len(a.Actions))
	for i, c := range a.Actions {
		raw, err := c.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("batch step %d: %w", i, err)
		}
		w.Actions[i] = raw
	}
	return json.Marshal(w)
}

// Decode rebuilds an action from its JSON form. Node descriptors are built
// with f, which resolves type names and mints missing ids.
func Decode(data []byte, f *node.Factory) (Action, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	a, err := decodeWire(&w, f)
	if err != nil {
		return nil, err
	}
	return WithOrigin(a, w.Origin), nil
}

// DecodeAll rebuilds a JSON array of actions.
func DecodeAll(data []byte, f *node.Factory) ([]Action, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	out := make([]Action, 0, len(raws))
	for i, raw := range raws {
		a, err := Decode(raw, f)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeWire(w *wire, f *node.Factory) (Action, error) {
	switch w.Kind {
	case KindInsert:
		var at pin.Point
		if err := decodeAt(w, &at); err != nil {
			return nil, err
		}
		nodes, err := f.CreateAll(w.Nodes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return NewInsert(at, nodes...), nil
	case KindRemove:
		if err := requireID(w); err != nil {
			return nil, err
		}
		return NewRemove(w.ID), nil
	case KindMove:
		if err := requireID(w); err != nil {
			return nil, err
		}
		if w.To == nil {
			return nil, fmt.Errorf("%w: move without target", ErrInvalidAction)
		}
		return NewMove(w.ID, *w.To), nil
	case KindSetContent:
		if err := requireID(w); err != nil {
			return nil, err
		}
		children, err := f.CreateAll(w.Nodes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return &SetContent{ID: w.ID, Children: children, Text: w.Text}, nil
	case KindUpdateProps:
		if err := requireID(w); err != nil {
			return nil, err
		}
		patch := node.EmptyProps()
		if w.Props != nil {
			patch = *w.Props
		}
		return NewUpdateProps(w.ID, patch), nil
	case KindChangeName:
		if err := requireID(w); err != nil {
			return nil, err
		}
		if w.Name == "" {
			return nil, fmt.Errorf("%w: change_name without name", ErrInvalidAction)
		}
		return NewChangeName(w.ID, w.Name), nil
	case KindInsertText:
		var at pin.Pin
		if err := decodeAt(w, &at); err != nil {
			return nil, err
		}
		return &InsertText{At: at, Text: w.Text, Props: w.Props, Raw: w.Raw}, nil
	case KindRemoveText:
		var at pin.Pin
		if err := decodeAt(w, &at); err != nil {
			return nil, err
		}
		return NewRemoveText(at, w.Length), nil
	case KindSelect:
		var sel pin.PinnedSelection
		if w.Selection != nil {
			sel = *w.Selection
		}
		return NewSelect(sel), nil
	case KindSelectNodes:
		return NewSelectNodes(w.IDs...), nil
	case KindActivateNodes:
		return NewActivateNodes(w.IDs...), nil
	case KindBatch:
		children := make([]Action, 0, len(w.Actions))
		for i, raw := range w.Actions {
			c, err := Decode(raw, f)
			if err != nil {
				return nil, fmt.Errorf("batch step %d: %w", i, err)
			}
			children = append(children, c)
		}
		return NewBatch(children...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Kind)
	}
}

func decodeAt(w *wire, dst any) error {
	if len(w.At) == 0 {
		return fmt.Errorf("%w: %s without position", ErrInvalidAction, w.Kind)
	}
	if err := json.Unmarshal(w.At, dst); err != nil {
		return fmt.Errorf("%w: %s position: %v", ErrInvalidAction, w.Kind, err)
	}
	return nil
}

func requireID(w *wire) error {
	if w.ID.IsNull() {
		return fmt.Errorf("%w: %s without id", ErrInvalidAction, w.Kind)
	}
	return nil
}
