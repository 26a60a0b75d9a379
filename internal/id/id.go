// Package id provides the identifiers that name entities in a document tree.
//
// Identifiers are opaque, comparable and totally ordered. Three values are
// reserved: Root names the document root, Null marks absence, and Identity is
// used for default and placeholder content.
package id

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID names a node in the content tree.
// The zero value is Null.
type ID string

// Reserved identifiers.
const (
	Null     ID = ""
	Root     ID = "root"
	Identity ID = "identity"
)

// IsNull returns true if the identifier marks absence.
func (i ID) IsNull() bool {
	return i == Null
}

// IsReserved returns true for Root, Null and Identity.
func (i ID) IsReserved() bool {
	return i == Null || i == Root || i == Identity
}

// Compare returns -1, 0 or 1 ordering i against other.
func (i ID) Compare(other ID) int {
	return strings.Compare(string(i), string(other))
}

// Less reports whether i orders before other.
func (i ID) Less(other ID) bool {
	return i < other
}

// String returns the identifier text.
func (i ID) String() string {
	if i == Null {
		return "<null>"
	}
	return string(i)
}

// Generator mints identifiers and sequence numbers.
// Block and text identifiers use distinct schemes so they are easy to tell
// apart when debugging. A Generator is safe for concurrent use.
type Generator struct {
	blockPrefix string
	textPrefix  string
	sequential  bool

	blocks atomic.Uint64
	texts  atomic.Uint64
	seq    atomic.Uint64
}

// NewGenerator returns a generator that mints UUIDv7 block identifiers
// and counter-based text identifiers.
func NewGenerator() *Generator {
	return &Generator{textPrefix: "t"}
}

// NewSequentialGenerator returns a deterministic generator for tests and
// fixtures. Blocks are "<prefix>b.<n>", text nodes "<prefix>t.<n>".
func NewSequentialGenerator(prefix string) *Generator {
	return &Generator{
		blockPrefix: prefix + "b",
		textPrefix:  prefix + "t",
		sequential:  true,
	}
}

// Block mints a block identifier.
func (g *Generator) Block() ID {
	n := g.blocks.Add(1)
	if g.sequential {
		return ID(fmt.Sprintf("%s.%d", g.blockPrefix, n))
	}
	u, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.NewString())
	}
	return ID(u.String())
}

// Text mints a text identifier.
func (g *Generator) Text() ID {
	return ID(fmt.Sprintf("%s.%d", g.textPrefix, g.texts.Add(1)))
}

// Sequence returns the next action or transaction number, starting at 1.
func (g *Generator) Sequence() uint64 {
	return g.seq.Add(1)
}
