package vm

import (
	"strconv"
	"strings"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

func parseUntypedAsDouble(a values.Atomic) (float64, bool) {
	f, err := strconv.ParseFloat(a.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// valueCompareSeq implements OpCompareVal, generalized from the
// reference design's popCompareEqualityAndPush/popCompareRelationalAndPush (both
// of which pop two Datums and push a boolDatum) into a function over two
// already-on-stack Sequences, since this VM's operands are sequences
// rather than scalars.
func (m *VM) valueCompareSeq(op ast.BinOp, left, right values.Sequence, sp ast.Span) values.Sequence {
	left, right = atomize(left, sp), atomize(right, sp)
	if len(left) == 0 || len(right) == 0 {
		return values.Empty
	}
	if len(left) != 1 || len(right) != 1 {
		fail(xerrors.XPTY0004, sp, "value comparison requires exactly one item on each side")
	}
	b := valueCompare(op, mustAtomic(left[0], sp), mustAtomic(right[0], sp), sp)
	return values.Single(values.AtomicItem{Value: values.NewBoolean(b)})
}

// valueCompare applies one eq/ne/lt/le/gt/ge comparison between two
// already-exactly-one atomic operands, the inner comparison logic the
// reference design's datumCompFn callbacks implement per comparison kind.
func valueCompare(op ast.BinOp, a, b values.Atomic, sp ast.Span) bool {
	cmp, eq, ok := compareAtomics(a, b, sp)
	if !ok {
		fail(xerrors.XPTY0004, sp, "values of type %s and %s are not comparable", a.Type, b.Type)
	}
	switch op {
	case ast.OpEq:
		return eq
	case ast.OpNe:
		return !eq
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	default:
		fail(xerrors.XPTY0004, sp, "unsupported comparison operator")
		panic("unreachable")
	}
}

// compareAtomics returns (cmp, eq, ok): cmp is a 3-way ordering (booleans
// order false before true; for QNames cmp is always 0, since they support
// eq/ne only), eq is equality, ok is false when the two types cannot be
// compared at all.
func compareAtomics(a, b values.Atomic, sp ast.Span) (cmp int, eq bool, ok bool) {
	if a.Type.IsNumeric() && b.Type.IsNumeric() {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		switch {
		case af < bf:
			return -1, false, true
		case af > bf:
			return 1, false, true
		default:
			return 0, af == bf, true
		}
	}
	switch a.Type {
	case values.TString, values.TUntypedAtomic, values.TAnyURI:
		if b.Type != values.TString && b.Type != values.TUntypedAtomic && b.Type != values.TAnyURI {
			return 0, false, false
		}
		return strings.Compare(a.String(), b.String()), a.String() == b.String(), true
	case values.TBoolean:
		if b.Type != values.TBoolean {
			return 0, false, false
		}
		av, _ := a.AsBool()
		bv, _ := b.AsBool()
		if av == bv {
			return 0, true, true
		}
		if !av && bv {
			return -1, false, true
		}
		return 1, false, true
	case values.TQName:
		if b.Type != values.TQName {
			return 0, false, false
		}
		aq, _ := a.AsQName()
		bq, _ := b.AsQName()
		return 0, aq.Space == bq.Space && aq.Local == bq.Local, true
	case values.TDate, values.TTime, values.TDateTime:
		if b.Type != a.Type {
			return 0, false, false
		}
		at, _, _ := a.AsTime()
		bt, _, _ := b.AsTime()
		switch {
		case at.Before(bt):
			return -1, false, true
		case at.After(bt):
			return 1, false, true
		default:
			return 0, true, true
		}
	case values.TDuration, values.TYearMonthDuration, values.TDayTimeDuration:
		if b.Type != a.Type {
			return 0, false, false
		}
		ad, _ := a.AsDuration()
		bd, _ := b.AsDuration()
		as := durationSeconds(ad)
		bs := durationSeconds(bd)
		switch {
		case as < bs:
			return -1, false, true
		case as > bs:
			return 1, false, true
		default:
			return 0, true, true
		}
	default:
		return 0, false, false
	}
}

func durationSeconds(d values.Duration) float64 {
	months := float64(d.Months) * 30 * 86400
	secs := 0.0
	if d.Seconds != nil {
		secs, _ = d.Seconds.Float64()
	}
	total := months + secs
	if d.Neg {
		total = -total
	}
	return total
}

// generalCompare implements OpCompareGen: atomize both sides, then
// existentially try every (left, right) pair, applying the untyped-
// coercion rules (numeric-vs-untyped coerces untyped to double,
// other-vs-untyped coerces untyped to the other side's type) before
// reusing valueCompare -- the sequence-level analogue of the reference design's
// compareAndPushNodesets, which loops over literalSlice() pairs from
// both operand nodesets.
func (m *VM) generalCompare(op ast.BinOp, left, right values.Sequence, sp ast.Span) values.Sequence {
	vop := genToValueOp(op)
	left, right = atomize(left, sp), atomize(right, sp)
	for _, li := range left {
		a := mustAtomic(li, sp)
		for _, ri := range right {
			b := mustAtomic(ri, sp)
			ca, cb, ok := coerceForGeneralCompare(a, b)
			if !ok {
				continue
			}
			if safeValueCompare(vop, ca, cb, sp) {
				return values.Single(values.AtomicItem{Value: values.NewBoolean(true)})
			}
		}
	}
	return values.Single(values.AtomicItem{Value: values.NewBoolean(false)})
}

func genToValueOp(op ast.BinOp) ast.BinOp {
	switch op {
	case ast.OpGenEq:
		return ast.OpEq
	case ast.OpGenNe:
		return ast.OpNe
	case ast.OpGenLt:
		return ast.OpLt
	case ast.OpGenLe:
		return ast.OpLe
	case ast.OpGenGt:
		return ast.OpGt
	case ast.OpGenGe:
		return ast.OpGe
	default:
		return op
	}
}

func safeValueCompare(op ast.BinOp, a, b values.Atomic, sp ast.Span) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	return valueCompare(op, a, b, sp)
}

// coerceForGeneralCompare applies this design's untyped-atomic coercion
// rules ahead of a general comparison.
func coerceForGeneralCompare(a, b values.Atomic) (values.Atomic, values.Atomic, bool) {
	aU := a.Type == values.TUntypedAtomic
	bU := b.Type == values.TUntypedAtomic
	switch {
	case aU && bU:
		return a, b, true
	case aU && b.Type.IsNumeric():
		f, ok := parseUntypedAsDouble(a)
		return values.NewDouble(f), b, ok
	case bU && a.Type.IsNumeric():
		f, ok := parseUntypedAsDouble(b)
		return a, values.NewDouble(f), ok
	case aU:
		ca, ok := coerceUntypedToTypeOf(a, b)
		return ca, b, ok
	case bU:
		cb, ok := coerceUntypedToTypeOf(b, a)
		return a, cb, ok
	default:
		return a, b, true
	}
}

// coerceUntypedToTypeOf casts untyped into other's atomic type, per the
// general-comparison rule that an untypedAtomic operand always adopts the
// other side's type before comparing. Falls back to leaving untyped
// uncoerced when other's type has no cast target castAtomic knows how to
// produce, so comparisons against such types still fall through to
// valueCompare's own handling rather than being silently dropped.
func coerceUntypedToTypeOf(untyped, other values.Atomic) (values.Atomic, bool) {
	name, known := castTargetName(other.Type)
	if !known {
		return untyped, true
	}
	cast, err := castAtomic(untyped, name)
	if err != nil {
		return untyped, false
	}
	return cast, true
}

// castTargetName maps a SchemaType to the target name castAtomic accepts,
// for the subset of types this implementation supports casting into.
func castTargetName(t values.SchemaType) (string, bool) {
	switch t {
	case values.TString:
		return "string", true
	case values.TUntypedAtomic:
		return "untypedAtomic", true
	case values.TAnyURI:
		return "anyURI", true
	case values.TBoolean:
		return "boolean", true
	case values.TInteger:
		return "integer", true
	case values.TDecimal:
		return "decimal", true
	case values.TDouble:
		return "double", true
	case values.TFloat:
		return "float", true
	default:
		return "", false
	}
}

// nodeCompare implements OpNodeIs/OpNodePrecedes/OpNodeFollows: either side
// empty yields the empty sequence; otherwise both sides must be exactly
// one node.
func (m *VM) nodeCompare(op compiler.Opcode, left, right values.Sequence, sp ast.Span) values.Sequence {
	if len(left) == 0 || len(right) == 0 {
		return values.Empty
	}
	if len(left) != 1 || len(right) != 1 {
		fail(xerrors.XPTY0004, sp, "node comparison requires exactly one node on each side")
	}
	ln, ok := left[0].(values.NodeItem)
	if !ok {
		fail(xerrors.XPTY0004, sp, "node comparison requires a node operand")
	}
	rn, ok := right[0].(values.NodeItem)
	if !ok {
		fail(xerrors.XPTY0004, sp, "node comparison requires a node operand")
	}
	var b bool
	switch op {
	case compiler.OpNodeIs:
		b = ln.Value.Identity() == rn.Value.Identity()
	case compiler.OpNodePrecedes:
		b = ln.Value.DocumentOrder() < rn.Value.DocumentOrder()
	case compiler.OpNodeFollows:
		b = ln.Value.DocumentOrder() > rn.Value.DocumentOrder()
	}
	return values.Single(values.AtomicItem{Value: values.NewBoolean(b)})
}
