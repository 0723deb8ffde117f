// Package compiler turns an ir.Block into a Program: a vector of Chunks
// (one per closure/function body) of fixed-width Inst values plus a
// constant pool, ready for package vm's stack interpreter to run.
//
// the reference design's bytecode (xpath/inst.go/program.go) is a vector of Go
// closures (type instFunc func(*context)); that representation cannot
// carry the operand-width-stable encoding this module's instruction set
// needs (constant-pool indices, jump displacements, arities), so instead
// each Inst here is a small fixed-width struct {Op; A, B int} -- still a
// flat, randomly-addressable instruction vector consumed by ordinary
// array indexing, in the same spirit as the reference design's ProgBuilder
// building a flat []*Inst, just with typed operands instead of opaque
// closures.
package compiler

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
)

// Opcode identifies an instruction. The set follows this design's bytecode
// table: literal/variable access, arithmetic/comparison, set operators,
// sequence construction, path/predicate application, casts, and
// array/map construction.
type Opcode int

const (
	OpConst Opcode = iota
	OpLoadSlot
	OpStoreSlot
	OpLoadContextItem
	OpLoadContextPosition
	OpLoadContextSize
	OpCallStatic  // A: func table index, B: argc
	OpCallDynamic // B: argc
	OpMakeClosure // A: chunk index, B: parameter count
	OpReturn

	OpArith     // A: ast.BinOp
	OpCompareGen // A: ast.BinOp (general comparison)
	OpCompareVal // A: ast.BinOp (value comparison)
	OpNodeIs
	OpNodePrecedes
	OpNodeFollows

	OpUnion
	OpIntersect
	OpExcept
	OpRange
	OpConcatSeq // A: part count

	OpStep        // A: axis, B: node-test descriptor index
	OpPredicate   // A: chunk index of predicate body, B: numeric flag (0/1)
	OpDeduplicate // sorts + dedups a node sequence in document order

	OpCastAs
	OpCastableAs
	OpInstanceOf
	OpTreatAs

	OpMakeArray // A: member count
	OpMakeMap   // A: entry count
	OpLookup    // A: 0=key name (B=const idx) 1=index atom already on stack 2=wildcard
	OpSimpleMap // A: chunk index of mapped body

	OpIf // A: then-chunk index, B: else-chunk index

	OpFor        // A: body chunk index, B: has-position-var flag
	OpQuantified // A: body chunk index, B: every flag (0/1); has-position flag folded into body signature

	OpUnaryOp // A: ast.UnaryOp
)

func (op Opcode) String() string {
	names := [...]string{
		"Const", "LoadSlot", "StoreSlot", "LoadContextItem", "LoadContextPosition",
		"LoadContextSize", "CallStatic",
		"CallDynamic", "MakeClosure", "Return",
		"Arith", "CompareGen", "CompareVal", "NodeIs",
		"NodePrecedes", "NodeFollows", "Union", "Intersect", "Except",
		"Range", "ConcatSeq", "Step", "Predicate", "Deduplicate", "CastAs",
		"CastableAs", "InstanceOf", "TreatAs", "MakeArray", "MakeMap",
		"Lookup", "SimpleMap", "If", "For", "Quantified", "UnaryOp",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Inst is one fixed-width bytecode instruction.
type Inst struct {
	Op   Opcode
	A, B int
	Span ast.Span
}

// StepDescriptor records an axis/node-test pair referenced by an OpStep
// instruction's B operand, kept out-of-line from Inst to keep Inst a
// fixed two-int-operand shape regardless of node-test complexity.
type StepDescriptor struct {
	Axis ast.Axis
	Test ast.NodeTest
}

// SeqTypeDescriptor is a SequenceType referenced by cast/instance-of/
// treat instructions, kept out-of-line for the same reason as step
// descriptors.
type SeqTypeDescriptor struct {
	Type ast.SequenceType
}

// Chunk is one compiled basic block / function body: its instructions,
// a local constant pool, and the out-of-line descriptor tables its
// instructions index into. Every closure body, predicate body, If
// branch and for/quantified body compiles to its own Chunk, linked by
// index through Program.Chunks -- mirroring the reference design's Prog type
// (program.go) holding a single flat instruction vector, generalized to
// a vector of chunks since this instruction set needs real jump targets
// and nested closures rather than one flat closure chain.
type Chunk struct {
	Insts      []Inst
	Consts     []values.Atomic
	Steps      []StepDescriptor
	SeqTypes   []SeqTypeDescriptor
	FuncRefs   []registry.Key // static function table, indexed by OpCallStatic's A operand
	NumParams  int            // for closure-body chunks; 0 for ordinary blocks
	ParamSlots []int
}

// addFuncRef interns key into chunk.FuncRefs, returning its index.
func (c *Chunk) addFuncRef(key registry.Key) int {
	for i, k := range c.FuncRefs {
		if k == key {
			return i
		}
	}
	c.FuncRefs = append(c.FuncRefs, key)
	return len(c.FuncRefs) - 1
}

// Program is the complete compiled unit: every chunk reachable from the
// entry point, plus the entry chunk's index.
type Program struct {
	Chunks []*Chunk
	Main   int
}

// compiler holds the in-progress Program during compilation of a single
// expression.
type compiler struct {
	prog *Program
}

// Compile lowers an already-ANF-normalized ir.Block into a Program whose
// main chunk evaluates the block and leaves exactly one Sequence value
// (possibly built from several OpConcatSeq-joined pieces) on the operand
// stack.
func Compile(block *ir.Block) (*Program, error) {
	c := &compiler{prog: &Program{}}
	mainIdx, err := c.compileBlock(block, nil)
	if err != nil {
		return nil, err
	}
	c.prog.Main = mainIdx
	logrus.WithFields(logrus.Fields{
		"chunks": len(c.prog.Chunks),
		"main":   mainIdx,
	}).Debug("compiler: program compiled")
	return c.prog, nil
}

// compileBlock compiles one ir.Block into a fresh Chunk, returning its
// index within c.prog.Chunks. paramSlots names the slots a closure's
// formal parameters bind to, in order (nil for non-closure blocks).
func (c *compiler) compileBlock(block *ir.Block, paramSlots []int) (int, error) {
	chunk := &Chunk{NumParams: len(paramSlots), ParamSlots: paramSlots}
	idx := len(c.prog.Chunks)
	c.prog.Chunks = append(c.prog.Chunks, chunk)

	// tempValues maps an ir.Temp id to "this value is already on top of
	// the operand stack at the point it was produced"; since ANF never
	// reorders evaluation, a straightforward approach is to simply emit
	// each binding's instructions in order and leave its value on the
	// stack, then read back by re-emitting a Dup-free direct reference
	// when later atoms mention that Temp -- tracked here as a stack
	// slot index assigned at emission time and read back via LoadSlot
	// (temps are compiled down to slots, unifying temp and let-bound
	// variable storage: each temp lives in the slot numbered by its temp
	// id, and ir draws temp ids and variable slots from one counter).
	tempSlot := map[int]int{}

	for _, b := range block.Bindings {
		if b.Temp == -1 {
			// ir.VarBindExpr: evaluate and store directly into its slot,
			// no temp tracking needed.
			vb, ok := b.Expr.(ir.VarBindExpr)
			if !ok {
				return 0, fmt.Errorf("internal: Temp==-1 binding is not a VarBindExpr")
			}
			if err := c.emitAtom(chunk, vb.Value, tempSlot, b.Span); err != nil {
				return 0, err
			}
			chunk.Insts = append(chunk.Insts, Inst{Op: OpStoreSlot, A: vb.Slot, Span: b.Span})
			continue
		}
		if err := c.emitExpr(chunk, b.Expr, tempSlot, b.Span); err != nil {
			return 0, err
		}
		slot := b.Temp
		chunk.Insts = append(chunk.Insts, Inst{Op: OpStoreSlot, A: slot, Span: b.Span})
		tempSlot[b.Temp] = slot
	}

	if err := c.emitAtom(chunk, block.Result, tempSlot, ast.Span{}); err != nil {
		return 0, err
	}
	chunk.Insts = append(chunk.Insts, Inst{Op: OpReturn})
	return idx, nil
}
