// Package ir lowers an ast.Expr tree into A-normal form: every
// sub-expression with a non-trivial evaluation is bound to a fresh
// temporary before use, so the compiler never has to reason about
// nested evaluation order or implicit stack depth -- it just walks a
// flat list of bindings ending in a result Atom.
//
// This has no direct analogue in the reference design, which compiles its YACC
// parse tree straight into its closure-chain bytecode
// (xpath/program.go); the ANF pass is this module's equivalent of that
// single compile step, split out because this design's instruction set
// needs operand-width-stable bytecode rather than closures, which in
// turn needs a normal form to compile from.
package ir

import (
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/xerrors"
)

// Atom is a trivial, already-evaluated-or-cheap-to-evaluate IR operand:
// a temporary reference, a literal, or a reference to an enclosing
// context name (the context item, position, or size, threaded
// explicitly as named parameters rather than ambient global state).
type Atom interface {
	atomNode()
}

type Temp struct{ ID int }
type Literal struct{ Value interface{} } // string/int64/big text handled by compiler constant pool
type ContextRef struct{ Which ContextName }

type ContextName int

const (
	ContextItemName ContextName = iota
	ContextPositionName
	ContextSizeName
)

func (Temp) atomNode()       {}
func (Literal) atomNode()    {}
func (ContextRef) atomNode() {}

// Binding is one ANF statement: Temp = Expr.
type Binding struct {
	Temp int
	Expr Expr
	Span ast.Span
}

// Block is a sequence of Bindings ending in a Result atom (or a further
// nested Block where a binding's Expr itself is an If/closure body).
type Block struct {
	Bindings []Binding
	Result   Atom
}

// Expr is an ANF right-hand side: an operation over Atoms, never over
// nested non-Atom expressions (that is what ANF normalization enforces
// at lowering time).
type Expr interface {
	exprIR()
}

type (
	ConstExpr struct{ Value interface{} }

	VarExpr struct{ Slot int }

	ContextExpr struct{ Which ContextName }

	BinaryExpr struct {
		Op          ast.BinOp
		Left, Right Atom
	}

	UnaryExpr struct {
		Op      ast.UnaryOp
		Operand Atom
	}

	// CallStatic is a resolved (namespace, local, arity) call to a
	// registry.Func, bound at lowering time -- the static-function-
	// resolution step this design requires before compilation.
	CallStatic struct {
		Key  registry.Key
		Args []Atom
	}

	// CallDynamic invokes a function-item value (inline closure, map,
	// array, or a variable holding a function item).
	CallDynamic struct {
		Callee Atom
		Args   []Atom
	}

	// MakeClosure builds a function item from a lowered function body.
	// Nothing is copied at creation time: the body reads enclosing
	// let/for variables through the same globally-numbered slots.
	MakeClosure struct {
		Params   []string
		Captures []int // parameter slots of a partial application, one per placeholder; nil otherwise
		Body     *Block
	}

	StepExpr struct {
		Input    Atom
		Axis     ast.Axis
		Test     ast.NodeTest
		Dedup    bool // every path step dedups/sorts its result at the VM
	}

	PredicateExpr struct {
		Input     Atom
		PredBody  *Block // evaluated once per candidate item with ContextItem/Position/Size rebound
		Numeric   bool   // true when the predicate is a bare numeric position test
	}

	PathExpr struct {
		Root  ast.PathRoot
		Steps []Atom
	}

	RangeExpr struct{ Lo, Hi Atom }

	SequenceExpr struct{ Parts []Atom }

	IfExpr struct {
		Cond       Atom
		Then, Else *Block
	}

	// ForExpr/QuantifiedExpr iterate a binding sequence, running Body
	// once per item with $name/$posVar rebound.
	ForExpr struct {
		VarSlot, PosSlot int // PosSlot == -1 if no `at` clause
		Source           Atom
		Body             *Block
	}

	QuantifiedExpr struct {
		VarSlot, PosSlot int
		Source           Atom
		Every            bool
		Test             *Block
	}

	CastExpr struct {
		Operand  Atom
		Type     ast.SequenceType
		Castable bool // true for `castable as` (never raises, returns boolean)
	}

	InstanceOfExpr struct {
		Operand Atom
		Type    ast.SequenceType
	}

	TreatExpr struct {
		Operand Atom
		Type    ast.SequenceType
	}

	ArrayExpr struct{ Members []Atom }
	MapExpr   struct {
		Keys   []Atom
		Values []Atom
	}

	LookupExpr struct {
		Target   Atom
		Wildcard bool
		KeyName  string
		KeyIndex Atom
	}

	SimpleMapExpr struct {
		Source Atom
		Body   *Block
	}
)

func (ConstExpr) exprIR()      {}
func (VarExpr) exprIR()        {}
func (ContextExpr) exprIR()    {}
func (BinaryExpr) exprIR()     {}
func (UnaryExpr) exprIR()      {}
func (CallStatic) exprIR()     {}
func (CallDynamic) exprIR()    {}
func (MakeClosure) exprIR()    {}
func (StepExpr) exprIR()       {}
func (PredicateExpr) exprIR()  {}
func (PathExpr) exprIR()       {}
func (RangeExpr) exprIR()      {}
func (SequenceExpr) exprIR()   {}
func (IfExpr) exprIR()         {}
func (ForExpr) exprIR()        {}
func (QuantifiedExpr) exprIR() {}
func (CastExpr) exprIR()       {}
func (InstanceOfExpr) exprIR() {}
func (TreatExpr) exprIR()      {}
func (ArrayExpr) exprIR()      {}
func (MapExpr) exprIR()        {}
func (LookupExpr) exprIR()     {}
func (SimpleMapExpr) exprIR()  {}

// StaticError is returned by Lower when an expression violates a static
// rule (unresolved variable, unresolved function, reserved name misuse).
type StaticError = xerrors.Error
