package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/invariant"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/schema"
)

var testSchema = schema.Default()

func el(name string, nodeID id.ID, children ...*node.Node) *node.Node {
	return node.New(nodeID, testSchema.MustType(name)).Append(children...)
}

func txt(nodeID id.ID, s string) *node.Node {
	return node.NewText(nodeID, testSchema.MustType("text"), s, node.Props{})
}

// newState builds root[p1[t1 "hello", t2 "world"], p2[t3 "bye"]].
func newState(t *testing.T, opts ...Option) *State {
	t.Helper()
	tr, err := node.NewTree(el("document", id.Root,
		el("paragraph", "p1", txt("t1", "hello"), txt("t2", "world")),
		el("paragraph", "p2", txt("t3", "bye")),
	))
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithSchema(testSchema), WithGenerator(id.NewSequentialGenerator(""))}, opts...)
	return New(tr, opts...)
}

// dump captures the document, sibling positions and node flags.
func dump(t *testing.T, s *State) string {
	t.Helper()
	type entry struct {
		ID       id.ID
		Index    int
		Selected bool
		Active   bool
	}
	var entries []entry
	node.Preorder(s.Root(), func(n *node.Node) bool {
		entries = append(entries, entry{n.ID(), s.Tree().Index(n), n.IsSelected(), n.IsActive()})
		return true
	}, nil)
	data, err := json.Marshal(struct {
		Doc       *node.Descriptor
		Entries   []entry
		Selection pin.PinnedSelection
		Selected  []id.ID
		Activated []id.ID
		Len       int
	}{node.ToDescriptor(s.Root()), entries, s.Selection(), s.SelectedNodes().Sorted(), s.ActivatedNodes().Sorted(), s.Tree().Len()})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func equalIDs(a, b []id.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProduceCommits(t *testing.T) {
	s := newState(t)
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		return d.InsertAfter("p1", el("paragraph", "p3", txt("t4", "new")))
	})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if sum.Version != 1 || s.Version() != 1 || !s.ContentChanged() || s.SelectionChanged() {
		t.Errorf("summary = %+v", sum)
	}
	if !equalIDs(sum.Changes.Inserted, []id.ID{"p3", "t4"}) {
		t.Errorf("Inserted = %v", sum.Changes.Inserted)
	}
	if !equalIDs(sum.Changes.Updated, []id.ID{id.Root}) {
		t.Errorf("Updated = %v", sum.Changes.Updated)
	}
	p2, _ := s.Node("p2")
	if s.Tree().Index(p2) != 2 {
		t.Errorf("Index(p2) = %d, want 2", s.Tree().Index(p2))
	}
	if s.InDraft() {
		t.Error("draft should be closed")
	}
}

func TestRollbackAfterMidBatchFailure(t *testing.T) {
	s := newState(t)
	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.SelectNodes([]id.ID{"p1"})
		return err
	}); err != nil {
		t.Fatal(err)
	}
	before := dump(t, s)
	version := s.Version()

	boom := errors.New("boom")
	_, err := s.Produce(OriginUser, func(d *Draft) error {
		if err := d.InsertBefore("p1", el("paragraph", "p9", txt("t9", "x"))); err != nil {
			return err
		}
		if _, err := d.Remove("t2"); err != nil {
			return err
		}
		if _, err := d.SetText("t1", "HELLO"); err != nil {
			return err
		}
		if _, err := d.UpdateProps("t3", node.MustParseProps(`{"bold":true}`)); err != nil {
			return err
		}
		if _, err := d.SetType("p2", "heading"); err != nil {
			return err
		}
		if _, err := d.ReplaceChildren("p1", []*node.Node{txt("t8", "y")}); err != nil {
			return err
		}
		if _, err := d.SelectNodes([]id.ID{"p2"}); err != nil {
			return err
		}
		if _, err := d.Select(pin.Collapsed(pin.At("t3", 1))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if after := dump(t, s); after != before {
		t.Errorf("state not restored\nbefore: %s\nafter:  %s", before, after)
	}
	if s.Version() != version || s.InDraft() {
		t.Errorf("version=%d inDraft=%v", s.Version(), s.InDraft())
	}

	// The tree keeps working after a rollback.
	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Remove("t1")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	t2, _ := s.Node("t2")
	if s.Tree().Index(t2) != 0 {
		t.Errorf("Index(t2) = %d, want 0", s.Tree().Index(t2))
	}
}

func TestProduceRecoversInvariantViolation(t *testing.T) {
	s := newState(t)
	before := dump(t, s)
	_, err := s.Produce(OriginUser, func(d *Draft) error {
		if _, err := d.Remove("p2"); err != nil {
			return err
		}
		invariant.Panicf("test", "corrupted bookkeeping")
		return nil
	})
	if !errors.Is(err, invariant.ErrViolation) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
	if dump(t, s) != before {
		t.Error("state not restored after invariant violation")
	}
	if s.InDraft() {
		t.Error("draft left open")
	}
}

func TestProduceRepanicsForeignPanics(t *testing.T) {
	s := newState(t)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
		if s.InDraft() {
			t.Error("draft left open after panic")
		}
	}()
	_, _ = s.Produce(OriginUser, func(d *Draft) error {
		panic("unrelated")
	})
}

func TestSingleDraft(t *testing.T) {
	s := newState(t)
	d, err := s.Draft(OriginUser)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Draft(OriginUser); !errors.Is(err, ErrDraftInProgress) {
		t.Errorf("err = %v, want ErrDraftInProgress", err)
	}
	d.Rollback()
	if _, err := d.Remove("t1"); !errors.Is(err, ErrDraftClosed) {
		t.Errorf("closed draft err = %v", err)
	}
	if _, err := d.Commit(); !errors.Is(err, ErrDraftClosed) {
		t.Errorf("Commit on closed draft err = %v", err)
	}
	if _, err := s.Draft(OriginUser); err != nil {
		t.Errorf("draft after rollback: %v", err)
	}
}

func TestQuarantinePurgedOnCommit(t *testing.T) {
	s := newState(t)
	var removal Removal
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		var err error
		removal, err = d.Remove("p1")
		if err != nil {
			return err
		}
		if !d.Tree().Has("t1") {
			return errors.New("quarantined node should stay registered during the draft")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if removal.Parent != id.Root || removal.Index != 0 {
		t.Errorf("removal = %+v", removal)
	}
	for _, nodeID := range []id.ID{"p1", "t1", "t2"} {
		if s.Tree().Has(nodeID) {
			t.Errorf("%s should be purged", nodeID)
		}
	}
	if !equalIDs(sum.Changes.Removed, []id.ID{"p1", "t1", "t2"}) {
		t.Errorf("Removed = %v", sum.Changes.Removed)
	}
}

func TestMoveWithinDraft(t *testing.T) {
	s := newState(t)
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		r, err := d.Remove("t1")
		if err != nil {
			return err
		}
		return d.Insert("p2", 1, r.Node)
	})
	if err != nil {
		t.Fatal(err)
	}
	t1, ok := s.Node("t1")
	if !ok || t1.ParentID() != "p2" || s.Tree().Index(t1) != 1 {
		t.Fatalf("t1 not moved: %v", t1)
	}
	if len(sum.Changes.Removed) != 0 || len(sum.Changes.Inserted) != 0 {
		t.Errorf("move reported as insert/remove: %+v", sum.Changes)
	}
	if !equalIDs(sum.Changes.Updated, []id.ID{"p1", "p2", "t1"}) {
		t.Errorf("Updated = %v", sum.Changes.Updated)
	}
}

func TestInsertThenRemoveInSameDraft(t *testing.T) {
	s := newState(t)
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		if err := d.Insert("p2", 0, txt("tmp", "x")); err != nil {
			return err
		}
		_, err := d.Remove("tmp")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Tree().Has("tmp") {
		t.Error("tmp should be purged")
	}
	if len(sum.Changes.Inserted) != 0 || len(sum.Changes.Removed) != 0 {
		t.Errorf("changes = %+v", sum.Changes)
	}
}

func TestSelectionFollowsRemovedContent(t *testing.T) {
	at := pin.At
	tests := []struct {
		name string
		sel  pin.PinnedSelection
		edit func(d *Draft) error
		want pin.PinnedSelection
	}{
		{
			name: "removed leaf",
			sel:  pin.Collapsed(at("t3", 1)),
			edit: func(d *Draft) error { _, err := d.Remove("t3"); return err },
			want: pin.Collapsed(at("t2", 5)),
		},
		{
			name: "removed range",
			sel:  pin.PinnedSelection{Tail: at("t2", 1), Head: at("t2", 4)},
			edit: func(d *Draft) error { _, err := d.Remove("t2"); return err },
			want: pin.Collapsed(at("t1", 5)),
		},
		{
			name: "removed ancestor",
			sel:  pin.Collapsed(at("t1", 1)),
			edit: func(d *Draft) error { _, err := d.Remove("p1"); return err },
			want: pin.Collapsed(at("t3", 0)),
		},
		{
			name: "replaced children",
			sel:  pin.Collapsed(at("t2", 2)),
			edit: func(d *Draft) error {
				_, err := d.ReplaceChildren("p1", []*node.Node{txt("n1", "new")})
				return err
			},
			want: pin.Collapsed(at("n1", 3)),
		},
		{
			name: "shortened text",
			sel:  pin.Collapsed(at("t3", 3)),
			edit: func(d *Draft) error { _, err := d.SetText("t3", "b"); return err },
			want: pin.Collapsed(at("t3", 1)),
		},
		{
			name: "one pin survives",
			sel:  pin.PinnedSelection{Tail: at("t1", 2), Head: at("t3", 1)},
			edit: func(d *Draft) error { _, err := d.Remove("p2"); return err },
			want: pin.PinnedSelection{Tail: at("t1", 2), Head: at("t2", 5)},
		},
		{
			name: "document emptied",
			sel:  pin.Collapsed(at("t1", 1)),
			edit: func(d *Draft) error {
				if _, err := d.Remove("p1"); err != nil {
					return err
				}
				_, err := d.Remove("p2")
				return err
			},
			want: pin.PinnedSelection{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t)
			if _, err := s.Produce(OriginUser, func(d *Draft) error {
				_, err := d.Select(tt.sel)
				return err
			}); err != nil {
				t.Fatal(err)
			}
			var notified pin.PinnedSelection
			s.onSelect = func(_, after pin.PinnedSelection, _ Origin) { notified = after }

			sum, err := s.Produce(OriginUser, tt.edit)
			if err != nil {
				t.Fatal(err)
			}
			if got := s.Selection(); got != tt.want {
				t.Fatalf("selection = %v, want %v", got, tt.want)
			}
			if !sum.SelectionChanged || sum.Selection.Before != tt.sel || sum.Selection.After != tt.want {
				t.Errorf("selection change = %+v (changed %v)", sum.Selection, sum.SelectionChanged)
			}
			if notified != tt.want {
				t.Errorf("observer saw %v", notified)
			}
			if tt.want.IsZero() {
				return
			}
			for _, p := range []pin.Pin{tt.want.Tail, tt.want.Head} {
				if _, err := s.Resolver().Leaf(p); err != nil {
					t.Errorf("Leaf(%v): %v", p, err)
				}
			}
		})
	}
}

func TestSelectionUntouchedByUnrelatedRemoval(t *testing.T) {
	s := newState(t)
	sel := pin.PinnedSelection{Tail: pin.At("t1", 1), Head: pin.At("t1", 3)}
	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Select(sel)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Remove("p2")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum.SelectionChanged || s.Selection() != sel {
		t.Errorf("selection = %v, changed %v", s.Selection(), sum.SelectionChanged)
	}
}

func TestSelectNodesDiffing(t *testing.T) {
	s := newState(t)
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.SelectNodes([]id.ID{"t1", "t2"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(sum.Nodes.Selected, []id.ID{"t1", "t2"}) {
		t.Errorf("Selected = %v", sum.Nodes.Selected)
	}

	var diff Diff
	sum, err = s.Produce(OriginUser, func(d *Draft) error {
		var err error
		diff, err = d.SelectNodes([]id.ID{"t2", "t3"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(diff.Added, []id.ID{"t3"}) || !equalIDs(diff.Removed, []id.ID{"t1"}) {
		t.Errorf("diff = %+v", diff)
	}
	if !equalIDs(sum.Nodes.Selected, []id.ID{"t3"}) || !equalIDs(sum.Nodes.Deselected, []id.ID{"t1"}) {
		t.Errorf("nodes = %+v", sum.Nodes)
	}
	for nodeID, want := range map[id.ID]bool{"t1": false, "t2": true, "t3": true} {
		n, _ := s.Node(nodeID)
		if n.IsSelected() != want {
			t.Errorf("%s selected = %v, want %v", nodeID, n.IsSelected(), want)
		}
	}
	if sum.ContentChanged {
		t.Error("selection-only commit should not change content")
	}

	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.ActivateNodes([]id.ID{"missing"})
		return err
	}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestOnSelect(t *testing.T) {
	var calls int
	var gotOrigin Origin
	var gotAfter pin.PinnedSelection
	s := newState(t, WithOnSelect(func(before, after pin.PinnedSelection, origin Origin) {
		calls++
		gotOrigin = origin
		gotAfter = after
	}))

	sum, err := s.Produce(OriginProgrammatic, func(d *Draft) error {
		_, err := d.Select(pin.Collapsed(pin.At("t2", 0)))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	// t2@0 joins t1@5 and is stored left-aligned.
	want := pin.Collapsed(pin.At("t1", 5))
	if calls != 1 || gotOrigin != OriginProgrammatic || gotAfter != want {
		t.Errorf("calls=%d origin=%s after=%s", calls, gotOrigin, gotAfter)
	}
	if !sum.SelectionChanged || s.Selection() != want {
		t.Errorf("selection = %s", s.Selection())
	}

	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Select(pin.Collapsed(pin.At("t1", 5)))
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Error("unchanged selection should not notify")
	}

	if _, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Select(pin.Collapsed(pin.At("t1", 99)))
		return err
	}); !errors.Is(err, pin.ErrOffsetOutOfRange) {
		t.Errorf("err = %v, want ErrOffsetOutOfRange", err)
	}
}

func TestNormalizerRunsForRemovalParents(t *testing.T) {
	var seen []id.ID
	s := newState(t, WithNormalizer(func(d *Draft, n *node.Node) error {
		seen = append(seen, n.ID())
		if n.ChildCount() == 0 {
			_, err := d.Remove(n.ID())
			return err
		}
		return nil
	}))
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Remove("t3")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(seen, []id.ID{"p2", id.Root}) {
		t.Errorf("normalized %v", seen)
	}
	if s.Tree().Has("p2") {
		t.Error("empty paragraph should be removed by the normalizer")
	}
	if !equalIDs(sum.Changes.Removed, []id.ID{"p2", "t3"}) {
		t.Errorf("Removed = %v", sum.Changes.Removed)
	}
}

func TestNormalizerFailureRollsBack(t *testing.T) {
	s := newState(t, WithNormalizer(func(d *Draft, n *node.Node) error {
		return errors.New("schema says no")
	}))
	before := dump(t, s)
	_, err := s.Produce(OriginUser, func(d *Draft) error {
		_, err := d.Remove("t3")
		return err
	})
	if !errors.Is(err, ErrNormalize) {
		t.Fatalf("err = %v, want ErrNormalize", err)
	}
	if dump(t, s) != before {
		t.Error("state not restored")
	}
}

func TestCompactionOnCommit(t *testing.T) {
	s := newState(t, WithCompactThreshold(4))
	sum, err := s.Produce(OriginUser, func(d *Draft) error {
		for i := 0; i < 3; i++ {
			n := txt(id.ID("x"+string(rune('a'+i))), "x")
			if err := d.Insert("p1", 1, n); err != nil {
				return err
			}
			if _, err := d.Remove(n.ID()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(sum.Compacted, []id.ID{"p1"}) {
		t.Errorf("Compacted = %v", sum.Compacted)
	}
	p1, _ := s.Node("p1")
	if s.Tree().MapperLen(p1) != 2 {
		t.Errorf("MapperLen = %d, want 2", s.Tree().MapperLen(p1))
	}
	t2, _ := s.Node("t2")
	if s.Tree().Index(t2) != 1 {
		t.Errorf("Index(t2) = %d", s.Tree().Index(t2))
	}
}

func TestOriginText(t *testing.T) {
	for _, o := range []Origin{OriginUser, OriginProgrammatic, OriginRemote} {
		data, _ := o.MarshalText()
		var back Origin
		if err := back.UnmarshalText(data); err != nil || back != o {
			t.Errorf("round trip %s = %s, %v", o, back, err)
		}
	}
	if _, err := ParseOrigin("alien"); err == nil {
		t.Error("expected error")
	}
}
