package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/config"
	"github.com/emrgen/carbon/internal/event"
	"github.com/emrgen/carbon/internal/event/events"
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/metrics"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/schema"
	"github.com/emrgen/carbon/internal/state"
)

var testSchema = schema.Default()

func el(name string, nodeID id.ID, children ...*node.Node) *node.Node {
	return node.New(nodeID, testSchema.MustType(name)).Append(children...)
}

func txt(nodeID id.ID, s string) *node.Node {
	return node.NewText(nodeID, testSchema.MustType("text"), s, node.Props{})
}

// newEngine builds an engine over root[p1[t1 "hello", t2 "world"], p2[t3 "bye"]].
func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	tr, err := node.NewTree(el("document", id.Root,
		el("paragraph", "p1", txt("t1", "hello"), txt("t2", "world")),
		el("paragraph", "p2", txt("t3", "bye")),
	))
	if err != nil {
		t.Fatal(err)
	}
	st := state.New(tr, state.WithSchema(testSchema), state.WithGenerator(id.NewSequentialGenerator("")))
	return New(st, opts...)
}

func textOf(t *testing.T, e *Engine, nodeID id.ID) string {
	t.Helper()
	var (
		s  string
		ok bool
	)
	e.View(func(st *state.State) {
		var n *node.Node
		if n, ok = st.Node(nodeID); ok {
			s = n.Text()
		}
	})
	if !ok {
		t.Fatalf("node %s not found", nodeID)
	}
	return s
}

func exists(e *Engine, nodeID id.ID) bool {
	var ok bool
	e.View(func(st *state.State) { _, ok = st.Node(nodeID) })
	return ok
}

// record subscribes to every topic and returns the delivered topics.
func record(t *testing.T, e *Engine) *[]string {
	t.Helper()
	var got []string
	_, err := e.Bus().SubscribeFunc("**", func(_ context.Context, ev any) error {
		got = append(got, ev.(event.TopicProvider).EventTopic().String())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return &got
}

func abortConfig() config.Config {
	cfg := config.Default()
	cfg.Transaction.AbortOnFailure = true
	return cfg
}

func TestTransactionsNumberedInOrder(t *testing.T) {
	e := newEngine(t, WithConfig(abortConfig()))
	first, err := e.Apply(state.OriginUser, action.NewInsertText(pin.At("t1", 5), "!"))
	if err != nil {
		t.Fatal(err)
	}
	failed, err := e.Apply(state.OriginUser, action.NewRemove("missing"))
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("Apply() error = %v, want ErrActionFailed", err)
	}
	last, err := e.Apply(state.OriginUser, action.NewInsertText(pin.At("t1", 0), "?"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Seq == 0 || failed.Seq != first.Seq+1 || last.Seq != failed.Seq+1 {
		t.Errorf("seq = %d, %d, %d", first.Seq, failed.Seq, last.Seq)
	}
	if first.ID == last.ID {
		t.Error("transaction IDs repeat")
	}
}

func TestApplyCommits(t *testing.T) {
	e := newEngine(t)
	topics := record(t, e)

	tx, err := e.Apply(state.OriginUser, action.NewInsertText(pin.At("t1", 5), " there"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tx.ID == "" {
		t.Error("transaction has no ID")
	}
	if got := textOf(t, e, "t1"); got != "hello there" {
		t.Errorf("t1 = %q", got)
	}
	if !tx.Summary.ContentChanged || tx.Summary.Version != e.Version() {
		t.Errorf("summary = %+v, version %d", tx.Summary, e.Version())
	}
	if got := tx.Actions[0].Origin(); got != state.OriginUser {
		t.Errorf("action origin = %v, want user", got)
	}
	if e.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", e.UndoCount())
	}

	want := []string{events.TopicContentChanged.String(), events.TopicTransactionCommitted.String()}
	if strings.Join(*topics, ",") != strings.Join(want, ",") {
		t.Errorf("topics = %v, want %v", *topics, want)
	}
}

func TestFailedActionKeptWithoutAbort(t *testing.T) {
	e := newEngine(t)

	tx, err := e.Apply(state.OriginUser,
		action.NewInsertText(pin.At("t1", 0), ">"),
		action.NewRemove("missing"),
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tx.Failed() != 1 || tx.Err() == nil {
		t.Fatalf("Failed() = %d, Err() = %v", tx.Failed(), tx.Err())
	}
	if tx.Results[1].Ok() {
		t.Error("remove of a missing node succeeded")
	}
	if got := textOf(t, e, "t1"); got != ">hello" {
		t.Errorf("t1 = %q", got)
	}
	if got := len(tx.Executed()); got != 1 {
		t.Errorf("Executed() = %d actions, want 1", got)
	}
}

func TestAbortOnFailureRollsBack(t *testing.T) {
	e := newEngine(t, WithConfig(abortConfig()))
	topics := record(t, e)
	before := e.Version()

	tx, err := e.Apply(state.OriginUser,
		action.NewInsertText(pin.At("t1", 0), ">"),
		action.NewRemove("missing"),
		action.NewRemove("t3"),
	)
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("Apply() error = %v, want ErrActionFailed", err)
	}
	if len(tx.Results) != 2 {
		t.Errorf("executed %d actions, want 2", len(tx.Results))
	}
	if got := textOf(t, e, "t1"); got != "hello" {
		t.Errorf("t1 = %q, want rollback", got)
	}
	if !exists(e, "t3") {
		t.Error("t3 removed after rollback")
	}
	if e.Version() != before {
		t.Errorf("Version() = %d, want %d", e.Version(), before)
	}
	if e.CanUndo() {
		t.Error("rolled back transaction recorded in history")
	}
	if len(*topics) != 1 || (*topics)[0] != events.TopicTransactionRolledBack.String() {
		t.Errorf("topics = %v", *topics)
	}
}

func TestTransactChainsResults(t *testing.T) {
	e := newEngine(t)

	_, err := e.Transact(state.OriginUser, func(tx *Transaction) error {
		r := tx.Do(action.NewInsertText(pin.At("t3", 3), "!"))
		if !r.Ok() {
			return r.Err
		}
		tx.Do(action.NewSelect(pin.Collapsed(r.Value.(pin.Pin))))
		return nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if got := textOf(t, e, "t3"); got != "bye!" {
		t.Errorf("t3 = %q", got)
	}
	if got := e.Selection(); got != pin.Collapsed(pin.At("t3", 4)) {
		t.Errorf("Selection() = %v", got)
	}
}

func TestTransactCallbackErrorRollsBack(t *testing.T) {
	e := newEngine(t)
	boom := errors.New("boom")

	var leaked *Transaction
	_, err := e.Transact(state.OriginUser, func(tx *Transaction) error {
		tx.Do(action.NewSetText("t1", "changed"))
		leaked = tx
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transact() error = %v, want boom", err)
	}
	if got := textOf(t, e, "t1"); got != "hello" {
		t.Errorf("t1 = %q", got)
	}
	if r := leaked.Do(action.NewSetText("t1", "late")); !errors.Is(r.Err, ErrTransactionClosed) {
		t.Errorf("Do after close = %v, want ErrTransactionClosed", r.Err)
	}
}

func TestUndoRedo(t *testing.T) {
	e := newEngine(t)

	if _, err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("Undo() on empty history = %v", err)
	}
	if _, err := e.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Fatalf("Redo() on empty history = %v", err)
	}

	if _, err := e.Apply(state.OriginUser, action.NewInsertText(pin.At("t1", 5), " there")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(state.OriginUser, action.NewRemove("t3")); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !exists(e, "t3") || textOf(t, e, "t3") != "bye" {
		t.Error("t3 not restored")
	}
	if _, err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := textOf(t, e, "t1"); got != "hello" {
		t.Errorf("t1 = %q after undo", got)
	}
	if e.CanUndo() || e.RedoCount() != 2 {
		t.Errorf("CanUndo() = %v, RedoCount() = %d", e.CanUndo(), e.RedoCount())
	}

	if _, err := e.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := textOf(t, e, "t1"); got != "hello there" {
		t.Errorf("t1 = %q after redo", got)
	}
	if _, err := e.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if exists(e, "t3") {
		t.Error("t3 present after redoing its removal")
	}
	if e.UndoCount() != 2 || e.CanRedo() {
		t.Errorf("UndoCount() = %d, CanRedo() = %v", e.UndoCount(), e.CanRedo())
	}

	// Undo after redo walks back again.
	if _, err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !exists(e, "t3") {
		t.Error("t3 not restored by second undo")
	}
}

func TestNewTransactionClearsRedo(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Apply(state.OriginUser, action.NewSetText("t1", "a")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(state.OriginUser, action.NewSetText("t2", "b")); err != nil {
		t.Fatal(err)
	}
	if e.CanRedo() {
		t.Error("redo survived a new transaction")
	}
}

func TestHistoryRecording(t *testing.T) {
	tests := []struct {
		name   string
		origin state.Origin
		act    action.Action
		want   int
	}{
		{"user content", state.OriginUser, action.NewSetText("t1", "x"), 1},
		{"programmatic content", state.OriginProgrammatic, action.NewSetText("t1", "x"), 1},
		{"remote content", state.OriginRemote, action.NewSetText("t1", "x"), 0},
		{"selection only", state.OriginUser, action.NewSelect(pin.Collapsed(pin.At("t1", 1))), 0},
		{"node flags only", state.OriginUser, action.NewSelectNodes("p1"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			if _, err := e.Apply(tt.origin, tt.act); err != nil {
				t.Fatal(err)
			}
			if got := e.UndoCount(); got != tt.want {
				t.Errorf("UndoCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUndoGroup(t *testing.T) {
	e := newEngine(t)
	e.BeginUndoGroup("typing")
	for _, s := range []string{"a", "b", "c"} {
		if _, err := e.Apply(state.OriginUser, action.NewInsertText(pin.At("t3", 3), s)); err != nil {
			t.Fatal(err)
		}
	}
	e.EndUndoGroup()

	if e.UndoCount() != 1 {
		t.Fatalf("UndoCount() = %d, want 1", e.UndoCount())
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if got := textOf(t, e, "t3"); got != "bye" {
		t.Errorf("t3 = %q", got)
	}
}

func TestEventsForNodeFlags(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Apply(state.OriginUser, action.NewSelectNodes("p1", "p2")); err != nil {
		t.Fatal(err)
	}

	var got []string
	_, err := e.Bus().SubscribeFunc("node.*", func(_ context.Context, ev any) error {
		n := ev.(event.Event[events.NodeStateChanged])
		got = append(got, n.Type.Base()+":"+n.Payload.Node.String())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(state.OriginUser, action.NewSelectNodes("p2", "t3")); err != nil {
		t.Fatal(err)
	}
	want := "deselected:p1,selected:t3"
	if strings.Join(got, ",") != want {
		t.Errorf("events = %v, want %s", got, want)
	}
}

func TestHandlerMayReadEngine(t *testing.T) {
	e := newEngine(t)
	var seen uint64
	_, err := e.Bus().SubscribeFunc(events.TopicTransactionCommitted, func(context.Context, any) error {
		seen = e.Version()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(state.OriginUser, action.NewSetText("t1", "x")); err != nil {
		t.Fatal(err)
	}
	if seen != e.Version() {
		t.Errorf("handler saw version %d, want %d", seen, e.Version())
	}
}

func TestViewPrunedOnRemove(t *testing.T) {
	e := newEngine(t)
	var t3, t1 *node.Node
	e.View(func(st *state.State) {
		t3, _ = st.Node("t3")
		t1, _ = st.Node("t1")
	})
	e.RegisterView(t3, "view-t3")
	e.RegisterView(t1, "view-t1")

	if _, err := e.Apply(state.OriginUser, action.NewRemove("t3")); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.ViewOf(t3); ok {
		t.Error("view of removed node still registered")
	}
	if h, ok := e.ViewOf(t1); !ok || h != "view-t1" {
		t.Errorf("ViewOf(t1) = %v, %v", h, ok)
	}
}

func TestApplyConfig(t *testing.T) {
	e := newEngine(t)

	bad := config.Default()
	bad.History.MaxEntries = 0
	if err := e.ApplyConfig(bad); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("ApplyConfig(bad) = %v", err)
	}

	cfg := config.Default()
	cfg.History.MaxEntries = 2
	cfg.Transaction.AbortOnFailure = true
	if err := e.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if e.History().MaxEntries() != 2 || !e.Config().Transaction.AbortOnFailure {
		t.Errorf("config not applied: %+v", e.Config())
	}

	for _, s := range []string{"a", "b", "c"} {
		if _, err := e.Apply(state.OriginUser, action.NewSetText("t1", s)); err != nil {
			t.Fatal(err)
		}
	}
	if e.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", e.UndoCount())
	}
	if _, err := e.Apply(state.OriginUser, action.NewRemove("missing")); !errors.Is(err, ErrActionFailed) {
		t.Errorf("Apply() error = %v, want ErrActionFailed", err)
	}
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, WithMetrics(metrics.New(reg)), WithConfig(abortConfig()))

	if _, err := e.Apply(state.OriginUser, action.NewSetText("t1", "x")); err != nil {
		t.Fatal(err)
	}
	_, _ = e.Apply(state.OriginRemote, action.NewRemove("missing"))

	if got := counter(t, reg, "carbon_transaction_total", "result", metrics.ResultCommitted); got != 1 {
		t.Errorf("committed = %v", got)
	}
	if got := counter(t, reg, "carbon_transaction_total", "result", metrics.ResultRolledBack); got != 1 {
		t.Errorf("rolled back = %v", got)
	}
	if got := counter(t, reg, "carbon_action_total", "result", metrics.ActionFailed); got != 1 {
		t.Errorf("failed actions = %v", got)
	}
}

// counter sums the samples of family name whose label has value.
func counter(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					sum += m.GetCounter().GetValue()
				}
			}
		}
	}
	return sum
}

func TestRollbackLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEngine(t, WithLogger(logger), WithConfig(abortConfig()))

	_, _ = e.Apply(state.OriginUser, action.NewRemove("missing"))
	out := buf.String()
	if !strings.Contains(out, "transaction rolled back") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log output = %q", out)
	}
}

func TestWatchAppliesConfig(t *testing.T) {
	e := newEngine(t)
	path := filepath.Join(t.TempDir(), "carbon.toml")
	write := func(data string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("[history]\nmax_entries = 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	applied := make(chan error, 4)
	go config.Watch(ctx, path, func(c config.Config) {
		applied <- e.ApplyConfig(c)
	}, config.WithDebounce(10*time.Millisecond))

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		write("[history]\nmax_entries = 2\n[transaction]\nabort_on_failure = true\n")
		select {
		case err := <-applied:
			if err != nil {
				t.Fatalf("ApplyConfig: %v", err)
			}
			if cfg := e.Config(); cfg.History.MaxEntries == 2 && cfg.Transaction.AbortOnFailure {
				return
			}
		case <-tick.C:
		case <-deadline:
			t.Fatal("no reload applied")
		}
	}
}
