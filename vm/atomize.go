package vm

import (
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// atomizeItem reduces one Item to its atomic value, per this design:
// a node atomizes to its typed value (or untyped-atomic if the document
// graph reports no static type, which memtree always does), an atomic
// item passes through unchanged, and a function item is never atomizable.
func atomizeItem(it values.Item, sp ast.Span) values.AtomicItem {
	switch v := it.(type) {
	case values.AtomicItem:
		return v
	case values.NodeItem:
		if tv, ok := v.Value.TypedValue(); ok {
			if a, ok := tv.(values.Atomic); ok {
				return values.AtomicItem{Value: a}
			}
		}
		return values.AtomicItem{Value: values.NewUntypedAtomic(v.Value.StringValue())}
	default:
		fail(xerrors.FOTY0013, sp, "a function item cannot be atomized")
		panic("unreachable")
	}
}

// atomize atomizes every item in s, per the sequence-level atomization
// rule (atomize elementwise, concatenating the results).
func atomize(s values.Sequence, sp ast.Span) values.Sequence {
	out := make(values.Sequence, len(s))
	for i, it := range s {
		out[i] = atomizeItem(it, sp)
	}
	return out
}
