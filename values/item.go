package values

import "github.com/sdcio/xpath3/domgraph"

// ItemKind distinguishes the three kinds of XDM item.
type ItemKind int

const (
	KindAtomic ItemKind = iota
	KindNode
	KindFunction
)

// Item is a single member of a Sequence: an atomic value, a node, or a
// function. It mirrors the reference design's Datum interface (xpath/datum.go) --
// a narrow, kind-tagged interface with one concrete implementation per
// kind -- generalized from the reference design's bool/literal/nodeset/num lattice
// to the three-way XDM item lattice.
type Item interface {
	ItemKind() ItemKind
	itemNode()
}

// AtomicItem wraps a single Atomic value as an Item.
type AtomicItem struct{ Value Atomic }

func (AtomicItem) ItemKind() ItemKind { return KindAtomic }
func (AtomicItem) itemNode()          {}

// NodeItem wraps a domgraph.Node as an Item.
type NodeItem struct{ Value domgraph.Node }

func (NodeItem) ItemKind() ItemKind { return KindNode }
func (NodeItem) itemNode()          {}

// FunctionSignature describes a function item's static arity and, for
// named/static functions, its declared parameter and return types; used
// by the type-matching machinery (SequenceTypeMatches) and by dynamic
// call-arity checks.
type FunctionSignature struct {
	Name  string // empty for anonymous inline functions
	Arity int
}

// FunctionItem wraps a callable value: an inline closure, a reference to
// a statically registered function, an array, or a map (arrays and maps
// are themselves functions in XDM, from integer/key lookup respectively).
//
// Call is supplied by whichever package constructs the FunctionItem
// (package vm for closures built from compiled chunks, package registry
// for static builtins) rather than this package depending on either, to
// keep values free of a values -> vm/registry import cycle.
type FunctionItem struct {
	Signature FunctionSignature
	Call      func(args []Sequence) (Sequence, error)

	// IsArray/IsMap mark the two specialized function-item subtypes;
	// ArrayMembers/MapEntries hold their underlying data for the
	// array:*/map:* builtin functions and for literal construction.
	IsArray     bool
	ArrayMembers []Sequence

	IsMap     bool
	MapKeys   []Atomic
	MapValues []Sequence
}

func (FunctionItem) ItemKind() ItemKind { return KindFunction }
func (FunctionItem) itemNode()          {}
