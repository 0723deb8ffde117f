package vm

import (
	"math"
	"math/big"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// numRank orders the numeric promotion hierarchy integer subset decimal
// subset float subset double, per this design
func numRank(t values.SchemaType) int {
	switch t {
	case values.TInteger:
		return 0
	case values.TDecimal:
		return 1
	case values.TFloat:
		return 2
	case values.TDouble:
		return 3
	default:
		return -1
	}
}

// arith implements OpArith: atomize both sides, propagate empty operands
// to an empty result (the standard XPath arithmetic rule), require
// exactly one atomic numeric value per side, promote to the wider of the
// two operand types, and apply op.
func (m *VM) arith(op ast.BinOp, left, right values.Sequence, sp ast.Span) values.Sequence {
	left, right = atomize(left, sp), atomize(right, sp)
	if len(left) == 0 || len(right) == 0 {
		return values.Empty
	}
	if len(left) != 1 || len(right) != 1 {
		fail(xerrors.XPTY0004, sp, "arithmetic operator requires a single value on each side")
	}
	a := mustAtomic(left[0], sp)
	b := mustAtomic(right[0], sp)
	if !a.Type.IsNumeric() || !b.Type.IsNumeric() {
		fail(xerrors.XPTY0004, sp, "arithmetic operator requires numeric operands, got %s and %s", a.Type, b.Type)
	}

	rank := numRank(a.Type)
	if r := numRank(b.Type); r > rank {
		rank = r
	}

	switch {
	case rank <= 1 && op != ast.OpDiv:
		// integer/decimal domain, exact arithmetic via big.Rat, except
		// division which XPath always widens to decimal regardless.
		ar, _ := a.AsBigRat()
		br, _ := b.AsBigRat()
		return values.Single(values.AtomicItem{Value: exactArith(op, ar, br, a.Type == values.TInteger && b.Type == values.TInteger, sp)})
	default:
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		f := floatArith(op, af, bf, sp)
		if rank == 3 {
			return values.Single(values.AtomicItem{Value: values.NewDouble(f)})
		}
		if rank == 2 {
			return values.Single(values.AtomicItem{Value: values.NewFloat(float32(f))})
		}
		// rank <= 1 but op == OpDiv: integer/decimal division -> decimal.
		r := new(big.Rat)
		r.SetFloat64(f)
		return values.Single(values.AtomicItem{Value: values.NewDecimal(r)})
	}
}

func exactArith(op ast.BinOp, a, b *big.Rat, bothInt bool, sp ast.Span) values.Atomic {
	switch op {
	case ast.OpAdd:
		r := new(big.Rat).Add(a, b)
		return finishExact(r, bothInt)
	case ast.OpSub:
		r := new(big.Rat).Sub(a, b)
		return finishExact(r, bothInt)
	case ast.OpMul:
		r := new(big.Rat).Mul(a, b)
		return finishExact(r, bothInt)
	case ast.OpIDiv:
		if b.Sign() == 0 {
			fail(xerrors.FOAR0001, sp, "integer division by zero")
		}
		q := new(big.Rat).Quo(a, b)
		return values.NewIntegerFromBigInt(truncToInt(q))
	case ast.OpMod:
		if b.Sign() == 0 {
			fail(xerrors.FOAR0001, sp, "modulo by zero")
		}
		q := truncToInt(new(big.Rat).Quo(a, b))
		qr := new(big.Rat).SetInt(q)
		rem := new(big.Rat).Sub(a, new(big.Rat).Mul(qr, b))
		return finishExact(rem, bothInt)
	default:
		fail(xerrors.XPTY0004, sp, "unsupported arithmetic operator")
		panic("unreachable")
	}
}

func finishExact(r *big.Rat, bothInt bool) values.Atomic {
	if bothInt && r.IsInt() {
		return values.NewIntegerFromBigInt(r.Num())
	}
	return values.NewDecimal(r)
}

func truncToInt(r *big.Rat) *big.Int {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	return q
}

func floatArith(op ast.BinOp, a, b float64, sp ast.Span) float64 {
	switch op {
	case ast.OpAdd:
		return a + b
	case ast.OpSub:
		return a - b
	case ast.OpMul:
		return a * b
	case ast.OpDiv:
		return a / b
	case ast.OpIDiv:
		if b == 0 {
			fail(xerrors.FOAR0001, sp, "integer division by zero")
		}
		return math.Trunc(a / b)
	case ast.OpMod:
		return math.Mod(a, b)
	default:
		fail(xerrors.XPTY0004, sp, "unsupported arithmetic operator")
		panic("unreachable")
	}
}

// unary implements OpUnaryOp (+/-) over a single atomized numeric value.
func (m *VM) unary(op ast.UnaryOp, operand values.Sequence, sp ast.Span) values.Sequence {
	operand = atomize(operand, sp)
	if len(operand) == 0 {
		return values.Empty
	}
	if len(operand) != 1 {
		fail(xerrors.XPTY0004, sp, "unary operator requires a single value")
	}
	a := mustAtomic(operand[0], sp)
	if !a.Type.IsNumeric() {
		fail(xerrors.XPTY0004, sp, "unary operator requires a numeric operand, got %s", a.Type)
	}
	if op == ast.UnaryPlus {
		return values.Single(values.AtomicItem{Value: a})
	}
	switch a.Type {
	case values.TInteger:
		i, _ := a.AsBigInt()
		return values.Single(values.AtomicItem{Value: values.NewIntegerFromBigInt(new(big.Int).Neg(i))})
	case values.TDecimal:
		r, _ := a.AsBigRat()
		return values.Single(values.AtomicItem{Value: values.NewDecimal(new(big.Rat).Neg(r))})
	case values.TFloat:
		f, _ := a.AsFloat64()
		return values.Single(values.AtomicItem{Value: values.NewFloat(float32(-f))})
	default:
		f, _ := a.AsFloat64()
		return values.Single(values.AtomicItem{Value: values.NewDouble(-f)})
	}
}

func mustAtomic(it values.Item, sp ast.Span) values.Atomic {
	ai, ok := it.(values.AtomicItem)
	if !ok {
		fail(xerrors.XPTY0004, sp, "expected an atomic value")
	}
	return ai.Value
}
