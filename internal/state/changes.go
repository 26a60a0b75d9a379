package state

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/pin"
)

// ChangeSet lists the nodes a commit touched.
type ChangeSet struct {
	Inserted []id.ID `json:"inserted,omitempty"`
	Updated  []id.ID `json:"updated,omitempty"`
	Removed  []id.ID `json:"removed,omitempty"`
}

// IsEmpty reports whether nothing changed.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// NodeStateChange lists per-node selection and activation toggles.
type NodeStateChange struct {
	Selected    []id.ID `json:"selected,omitempty"`
	Deselected  []id.ID `json:"deselected,omitempty"`
	Activated   []id.ID `json:"activated,omitempty"`
	Deactivated []id.ID `json:"deactivated,omitempty"`
}

// IsEmpty reports whether no node changed state.
func (c NodeStateChange) IsEmpty() bool {
	return len(c.Selected) == 0 && len(c.Deselected) == 0 &&
		len(c.Activated) == 0 && len(c.Deactivated) == 0
}

// SelectionChange is the pin selection before and after a commit.
type SelectionChange struct {
	Before pin.PinnedSelection `json:"before"`
	After  pin.PinnedSelection `json:"after"`
	Origin Origin              `json:"origin"`
}

// Summary describes one commit.
type Summary struct {
	Version          uint64          `json:"version"`
	Origin           Origin          `json:"origin"`
	ContentChanged   bool            `json:"content_changed"`
	SelectionChanged bool            `json:"selection_changed"`
	Changes          ChangeSet       `json:"changes"`
	Nodes            NodeStateChange `json:"nodes"`
	Selection        SelectionChange `json:"selection"`
	Compacted        []id.ID         `json:"compacted,omitempty"`
}

// Diff is the symmetric difference between two identifier sets.
type Diff struct {
	Added   []id.ID `json:"added,omitempty"`
	Removed []id.ID `json:"removed,omitempty"`
}

// IsEmpty reports whether the sets were equal.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
