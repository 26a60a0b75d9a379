package node

import (
	"errors"
	"testing"
)

func TestPropsGetSetDelete(t *testing.T) {
	p := MustParseProps(`{"style":{"bold":true},"color":"red"}`)
	if !p.Get("style.bold").Bool() {
		t.Error("style.bold should be true")
	}
	p2, err := p.Set("style.italic", true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Has("style.italic") {
		t.Error("Set must not modify the receiver")
	}
	if !p2.Get("style.italic").Bool() {
		t.Error("style.italic should be set")
	}
	p3, err := p2.Delete("color")
	if err != nil {
		t.Fatal(err)
	}
	if p3.Has("color") {
		t.Error("color should be deleted")
	}
}

func TestPropsEqualIgnoresKeyOrder(t *testing.T) {
	a := MustParseProps(`{"a":1,"b":{"y":2,"x":1}}`)
	b := MustParseProps(`{ "b": {"x":1, "y":2}, "a": 1 }`)
	if !a.Equal(b) {
		t.Errorf("%s should equal %s", a.Canonical(), b.Canonical())
	}
	if a.Equal(EmptyProps()) {
		t.Error("non-empty props should not equal empty props")
	}
	if !EmptyProps().Equal(MustParseProps(`{}`)) {
		t.Error("zero props should equal {}")
	}
}

func TestPropsMergeAndReverse(t *testing.T) {
	base := MustParseProps(`{"bold":true,"size":12}`)
	patch := MustParseProps(`{"size":14,"color":"red","bold":null}`)

	undo, err := base.Reverse(patch)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := base.Merge(patch)
	if err != nil {
		t.Fatal(err)
	}
	if want := MustParseProps(`{"size":14,"color":"red"}`); !merged.Equal(want) {
		t.Errorf("merged = %s, want %s", merged, want)
	}
	restored, err := merged.Merge(undo)
	if err != nil {
		t.Fatal(err)
	}
	if !restored.Equal(base) {
		t.Errorf("restored = %s, want %s", restored, base)
	}
}

func TestPropsMergeLiteralKeys(t *testing.T) {
	merged, err := EmptyProps().Merge(MustParseProps(`{"a.b":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := merged.Keys(); len(got) != 1 || got[0] != "a.b" {
		t.Errorf("Keys() = %v, want [a.b]", got)
	}
}

func TestParsePropsRejectsNonObject(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"x"`, `{bad`} {
		if _, err := ParseProps(in); !errors.Is(err, ErrInvalidProps) {
			t.Errorf("ParseProps(%s) err = %v", in, err)
		}
	}
}
