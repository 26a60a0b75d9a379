package state

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/invariant"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/schema"
)

// DefaultCompactThreshold is the child mapper length past which a parent
// touched by a commit has its mapper rebased.
const DefaultCompactThreshold = 64

// SelectFunc observes committed selection changes.
type SelectFunc func(before, after pin.PinnedSelection, origin Origin)

// Normalizer cleans up a node queued during a draft, before commit.
type Normalizer func(d *Draft, n *node.Node) error

// Option configures a State.
type Option func(*State)

// WithSchema sets the schema used to resolve type names.
func WithSchema(s *schema.Schema) Option {
	return func(st *State) { st.schema = s }
}

// WithGenerator sets the identifier generator.
func WithGenerator(g *id.Generator) Option {
	return func(st *State) { st.gen = g }
}

// WithOnSelect registers a selection observer.
func WithOnSelect(fn SelectFunc) Option {
	return func(st *State) { st.onSelect = fn }
}

// WithNormalizer registers the normalize pass.
func WithNormalizer(fn Normalizer) Option {
	return func(st *State) { st.normalizer = fn }
}

// WithCompactThreshold sets the mapper length that triggers compaction.
// Zero or less disables compaction.
func WithCompactThreshold(n int) Option {
	return func(st *State) { st.compactThreshold = n }
}

// State is a document snapshot: the content tree plus selection.
type State struct {
	tree     *node.Tree
	schema   *schema.Schema
	gen      *id.Generator
	resolver *pin.Resolver

	selection      pin.PinnedSelection
	selectedNodes  id.Set
	activatedNodes id.Set

	last  Summary
	draft *Draft

	onSelect         SelectFunc
	normalizer       Normalizer
	compactThreshold int
}

// New creates a state over tree.
func New(tree *node.Tree, opts ...Option) *State {
	s := &State{
		tree:             tree,
		schema:           schema.Default(),
		gen:              id.NewGenerator(),
		resolver:         pin.NewResolver(tree),
		selectedNodes:    make(id.Set),
		activatedNodes:   make(id.Set),
		compactThreshold: DefaultCompactThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tree returns the content tree. Callers must treat it as read-only.
func (s *State) Tree() *node.Tree { return s.tree }

// Root returns the root node.
func (s *State) Root() *node.Node { return s.tree.Root() }

// Node returns an attached node.
func (s *State) Node(nodeID id.ID) (*node.Node, bool) {
	n, ok := s.tree.Node(nodeID)
	if !ok || !s.tree.Attached(n) {
		return nil, false
	}
	return n, true
}

// Schema returns the schema.
func (s *State) Schema() *schema.Schema { return s.schema }

// Generator returns the identifier generator.
func (s *State) Generator() *id.Generator { return s.gen }

// Resolver returns a position resolver over the tree.
func (s *State) Resolver() *pin.Resolver { return s.resolver }

// Selection returns the pin selection.
func (s *State) Selection() pin.PinnedSelection { return s.selection }

// SelectedNodes returns a copy of the selected node set.
func (s *State) SelectedNodes() id.Set { return s.selectedNodes.Clone() }

// ActivatedNodes returns a copy of the activated node set.
func (s *State) ActivatedNodes() id.Set { return s.activatedNodes.Clone() }

// Version counts commits.
func (s *State) Version() uint64 { return s.last.Version }

// ContentChanged reports whether the last commit changed content.
func (s *State) ContentChanged() bool { return s.last.ContentChanged }

// SelectionChanged reports whether the last commit changed the selection.
func (s *State) SelectionChanged() bool { return s.last.SelectionChanged }

// Changes returns the nodes touched by the last commit.
func (s *State) Changes() ChangeSet { return s.last.Changes }

// LastCommit returns the summary of the last commit.
func (s *State) LastCommit() Summary { return s.last }

// InDraft reports whether a draft is open.
func (s *State) InDraft() bool { return s.draft != nil }

// SetCompactThreshold changes the compaction threshold.
func (s *State) SetCompactThreshold(n int) { s.compactThreshold = n }

// Draft opens a draft. Only one draft may be open at a time.
func (s *State) Draft(origin Origin) (*Draft, error) {
	if s.draft != nil {
		return nil, ErrDraftInProgress
	}
	d := newDraft(s, origin)
	s.draft = d
	s.tree.Begin()
	return d, nil
}

// Produce runs fn inside a draft. The draft commits when fn returns nil and
// rolls back when fn returns an error or an invariant violation panics.
func (s *State) Produce(origin Origin, fn func(d *Draft) error) (sum Summary, err error) {
	d, err := s.Draft(origin)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			d.Rollback()
			panic(r)
		}
		if err != nil {
			d.Rollback()
		}
	}()
	defer invariant.Recover(&err)

	if err := fn(d); err != nil {
		return Summary{}, err
	}
	if d.closed {
		return s.last, nil
	}
	return d.Commit()
}
