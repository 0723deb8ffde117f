package vm

import (
	"math/big"
	"sort"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

type setKind int

const (
	setUnion setKind = iota
	setIntersect
	setExcept
)

// setOp implements OpUnion/OpIntersect/OpExcept: both operands must be
// node sequences (else XPTY0004); the result is always deduplicated and
// sorted in document order, per this design's node-set semantics.
func (m *VM) setOp(kind setKind, left, right values.Sequence, sp ast.Span) values.Sequence {
	requireAllNodes(left, sp)
	rset := nodeIdentitySet(right, sp)

	var out values.Sequence
	switch kind {
	case setUnion:
		out = append(out, left...)
		out = append(out, right...)
	case setIntersect:
		for _, it := range left {
			if rset[it.(values.NodeItem).Value.Identity()] {
				out = append(out, it)
			}
		}
	case setExcept:
		for _, it := range left {
			if !rset[it.(values.NodeItem).Value.Identity()] {
				out = append(out, it)
			}
		}
	}
	return m.dedupSortNodes(out, sp)
}

func requireAllNodes(s values.Sequence, sp ast.Span) {
	for _, it := range s {
		if _, ok := it.(values.NodeItem); !ok {
			fail(xerrors.XPTY0004, sp, "set operator requires every item to be a node")
		}
	}
}

func nodeIdentitySet(s values.Sequence, sp ast.Span) map[domgraph.NodeID]bool {
	set := map[domgraph.NodeID]bool{}
	for _, it := range s {
		ni, ok := it.(values.NodeItem)
		if !ok {
			fail(xerrors.XPTY0004, sp, "set operator requires every item to be a node")
		}
		set[ni.Value.Identity()] = true
	}
	return set
}

// dedupSortNodes removes duplicate-by-identity nodes and sorts the
// remainder into document order. This utility belongs here rather than
// in package domgraph per that package's own doc comment: "Duplicate removal
// and document-order sorting of step results live in package vm".
func (m *VM) dedupSortNodes(s values.Sequence, sp ast.Span) values.Sequence {
	seen := map[domgraph.NodeID]bool{}
	out := make(values.Sequence, 0, len(s))
	for _, it := range s {
		ni, ok := it.(values.NodeItem)
		if !ok {
			fail(xerrors.XPTY0004, sp, "deduplication requires every item to be a node")
		}
		id := ni.Value.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].(values.NodeItem).Value.DocumentOrder() < out[j].(values.NodeItem).Value.DocumentOrder()
	})
	return out
}

const maxRangeLen = 1 << 25 // 2^25, per this design's FOAR0002 bound

// rangeOp implements OpRange: `a to b`, inclusive, empty if a>b.
func (m *VM) rangeOp(lo, hi values.Sequence, sp ast.Span) values.Sequence {
	lo, hi = atomize(lo, sp), atomize(hi, sp)
	if len(lo) == 0 || len(hi) == 0 {
		return values.Empty
	}
	a := mustAtomic(lo[0], sp)
	b := mustAtomic(hi[0], sp)
	ai, ok1 := a.AsBigInt()
	bi, ok2 := b.AsBigInt()
	if !ok1 || !ok2 {
		fail(xerrors.XPTY0004, sp, "range operator requires integer operands")
	}
	if ai.Cmp(bi) > 0 {
		return values.Empty
	}
	span := new(big.Int).Sub(bi, ai)
	if span.IsInt64() && span.Int64() >= maxRangeLen {
		fail(xerrors.FOAR0002, sp, "range length exceeds the maximum of 2^25 items")
	}
	n := new(big.Int).Add(span, big.NewInt(1)).Int64()
	out := make(values.Sequence, 0, n)
	cur := new(big.Int).Set(ai)
	one := big.NewInt(1)
	for i := int64(0); i < n; i++ {
		out = append(out, values.AtomicItem{Value: values.NewIntegerFromBigInt(cur)})
		cur = new(big.Int).Add(cur, one)
	}
	return out
}

// step implements OpStep: for each node in input, traverse the axis and
// filter by node test, concatenating results across the input nodes in
// order. Concatenating per-input-node results can produce duplicates (two
// children of the same parent both stepping parent::* yield that parent
// twice) and leaves the overall order input-grouped rather than
// document-order, so every step is followed by a separate, explicit
// OpDeduplicate (see ir.StepExpr.Dedup) that sorts and dedups by identity.
func (m *VM) step(c *compiler.Chunk, in compiler.Inst, input values.Sequence) values.Sequence {
	desc := c.Steps[in.B]
	var out values.Sequence
	for _, it := range input {
		ni, ok := it.(values.NodeItem)
		if !ok {
			fail(xerrors.XPTY0004, in.Span, "a step can only be applied to a sequence of nodes")
		}
		for _, cand := range axisNodes(ni.Value, desc.Axis) {
			if matchesNodeTest(cand, desc.Test, desc.Axis) {
				out = append(out, values.NodeItem{Value: cand})
			}
		}
	}
	return out
}

// axisNodes enumerates the candidate nodes reachable from n along axis,
// built from domgraph.Node's Parent/Children/(Preceding|Following)Siblings
// primitives -- domgraph exposes only those direct relationships, per its
// own doc comment, leaving axis composition (ancestor, descendant,
// following, preceding) to the consumer.
func axisNodes(n domgraph.Node, axis ast.Axis) []domgraph.Node {
	switch axis {
	case ast.Self:
		return []domgraph.Node{n}
	case ast.Child:
		return n.Children()
	case ast.Attribute:
		return n.Attributes()
	case ast.Parent:
		if p, ok := n.Parent(); ok {
			return []domgraph.Node{p}
		}
		return nil
	case ast.Ancestor:
		var out []domgraph.Node
		cur := n
		for {
			p, ok := cur.Parent()
			if !ok {
				return out
			}
			out = append(out, p)
			cur = p
		}
	case ast.Descendant:
		return descendants(n)
	case ast.DescendantOrSelf:
		return append([]domgraph.Node{n}, descendants(n)...)
	case ast.FollowingSibling:
		return n.FollowingSiblings()
	case ast.PrecedingSibling:
		return n.PrecedingSiblings()
	case ast.Following:
		return followingOrPreceding(n, true)
	case ast.Preceding:
		return followingOrPreceding(n, false)
	case ast.Namespace:
		// domgraph has no Node representation for namespace bindings
		// (NamespaceBindings returns a prefix->URI map, not Nodes), so
		// this axis is always empty.
		return nil
	default:
		return nil
	}
}

func descendants(n domgraph.Node) []domgraph.Node {
	var out []domgraph.Node
	for _, c := range n.Children() {
		out = append(out, c)
		out = append(out, descendants(c)...)
	}
	return out
}

// followingOrPreceding walks up from n, at each level collecting the
// subtree rooted at the sibling set on the requested side, per the
// standard following/preceding axis definition (excludes descendants of
// n for following, excludes ancestors of n for preceding).
func followingOrPreceding(n domgraph.Node, forward bool) []domgraph.Node {
	var out []domgraph.Node
	cur := n
	for {
		var siblings []domgraph.Node
		if forward {
			siblings = cur.FollowingSiblings()
		} else {
			siblings = cur.PrecedingSiblings()
		}
		for _, s := range siblings {
			out = append(out, s)
			out = append(out, descendants(s)...)
		}
		p, ok := cur.Parent()
		if !ok {
			return out
		}
		cur = p
	}
}

// matchesNodeTest applies a NameTest (with * wildcards) or kind test
// against a candidate node, restricting NameTest to the axis's principal
// node kind (attribute for the attribute axis, element otherwise).
func matchesNodeTest(n domgraph.Node, t ast.NodeTest, axis ast.Axis) bool {
	switch t.Kind {
	case ast.NameTest:
		principal := domgraph.Element
		if axis == ast.Attribute {
			principal = domgraph.Attribute
		} else if axis == ast.Namespace {
			principal = domgraph.Namespace
		}
		if n.Kind() != principal {
			return false
		}
		name := n.Name()
		if t.Name.Local != "*" && t.Name.Local != name.Local {
			return false
		}
		if t.Name.Space != "*" && t.Name.Space != "" && t.Name.Space != name.Space {
			return false
		}
		return true
	case ast.KindTestAnyNode:
		return true
	case ast.KindTestElement:
		return n.Kind() == domgraph.Element
	case ast.KindTestAttribute:
		return n.Kind() == domgraph.Attribute
	case ast.KindTestDocument:
		return n.Kind() == domgraph.Document
	case ast.KindTestText:
		return n.Kind() == domgraph.Text
	case ast.KindTestComment:
		return n.Kind() == domgraph.Comment
	case ast.KindTestPI:
		if n.Kind() != domgraph.ProcessingInstruction {
			return false
		}
		return t.PITargetName == "" || t.PITargetName == n.PITarget()
	default:
		return false
	}
}
