package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/values"
)

// emitAtom pushes the value an ir.Atom denotes onto the operand stack.
func (c *compiler) emitAtom(chunk *Chunk, a ir.Atom, tempSlot map[int]int, sp ast.Span) error {
	switch at := a.(type) {
	case ir.Temp:
		slot, ok := tempSlot[at.ID]
		if !ok {
			return fmt.Errorf("internal: reference to unbound temp t%d", at.ID)
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadSlot, A: slot, Span: sp})
		return nil
	case ir.Literal:
		idx := chunk.addConst(at.Value)
		chunk.Insts = append(chunk.Insts, Inst{Op: OpConst, A: idx, Span: sp})
		return nil
	case ir.ContextRef:
		switch at.Which {
		case ir.ContextItemName:
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadContextItem, Span: sp})
		case ir.ContextPositionName:
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadContextPosition, Span: sp})
		case ir.ContextSizeName:
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadContextSize, Span: sp})
		}
		return nil
	case ir.VarArg:
		// Only appears inside a NamedFunctionRef thunk's synthetic body;
		// that thunk's chunk is compiled with one ParamSlot per formal
		// parameter, in order (see closureParamSlots).
		if at.Index < 0 || at.Index >= len(chunk.ParamSlots) {
			return fmt.Errorf("internal: VarArg index %d out of range (arity %d)", at.Index, len(chunk.ParamSlots))
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadSlot, A: chunk.ParamSlots[at.Index], Span: sp})
		return nil
	default:
		return fmt.Errorf("internal: unknown atom type %T", a)
	}
}

// addConst interns v (always a values.Atomic, per how ir wraps literal
// operands) into the chunk's constant pool, returning its index.
func (c *Chunk) addConst(v interface{}) int {
	atomic, ok := v.(values.Atomic)
	if !ok {
		atomic = values.NewString(fmt.Sprintf("%v", v))
	}
	for i, existing := range c.Consts {
		if existing.Type == atomic.Type && existing.String() == atomic.String() {
			return i
		}
	}
	c.Consts = append(c.Consts, atomic)
	return len(c.Consts) - 1
}

func (c *compiler) emitExpr(chunk *Chunk, e ir.Expr, tempSlot map[int]int, sp ast.Span) error {
	switch ex := e.(type) {
	case ir.ConstExpr:
		idx := chunk.addConst(ex.Value)
		chunk.Insts = append(chunk.Insts, Inst{Op: OpConst, A: idx, Span: sp})
		return nil

	case ir.VarExpr:
		chunk.Insts = append(chunk.Insts, Inst{Op: OpLoadSlot, A: ex.Slot, Span: sp})
		return nil

	case ir.ContextExpr:
		return c.emitAtom(chunk, ir.ContextRef{Which: ex.Which}, tempSlot, sp)

	case ir.BinaryExpr:
		if err := c.emitAtom(chunk, ex.Left, tempSlot, sp); err != nil {
			return err
		}
		if err := c.emitAtom(chunk, ex.Right, tempSlot, sp); err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: binOpcode(ex.Op), A: int(ex.Op), Span: sp})
		return nil

	case ir.UnaryExpr:
		if err := c.emitAtom(chunk, ex.Operand, tempSlot, sp); err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpUnaryOp, A: int(ex.Op), Span: sp})
		return nil

	case ir.CallStatic:
		for _, a := range ex.Args {
			if err := c.emitAtom(chunk, a, tempSlot, sp); err != nil {
				return err
			}
		}
		idx := chunk.addFuncRef(ex.Key)
		chunk.Insts = append(chunk.Insts, Inst{Op: OpCallStatic, A: idx, B: len(ex.Args), Span: sp})
		return nil

	case ir.CallDynamic:
		if err := c.emitAtom(chunk, ex.Callee, tempSlot, sp); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := c.emitAtom(chunk, a, tempSlot, sp); err != nil {
				return err
			}
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpCallDynamic, B: len(ex.Args), Span: sp})
		return nil

	case ir.MakeClosure:
		paramSlots := closureParamSlots(ex)
		bodyIdx, err := c.compileBlock(ex.Body, paramSlots)
		if err != nil {
			return err
		}
		// The body chunk reads its formal parameters out of paramSlots;
		// the vm fills those slots from the call's argument values when
		// it invokes the closure -- this instruction snapshots nothing
		// at creation time. A closure that references an enclosing
		// let/for binding closes over it by sharing the same
		// globally-numbered slot, since slot numbers are never reused
		// across one lowering pass.
		chunk.Insts = append(chunk.Insts, Inst{Op: OpMakeClosure, A: bodyIdx, B: len(ex.Params), Span: sp})
		return nil

	case ir.StepExpr:
		if err := c.emitAtom(chunk, ex.Input, tempSlot, sp); err != nil {
			return err
		}
		descIdx := len(chunk.Steps)
		chunk.Steps = append(chunk.Steps, StepDescriptor{Axis: ex.Axis, Test: ex.Test})
		chunk.Insts = append(chunk.Insts, Inst{Op: OpStep, A: int(ex.Axis), B: descIdx, Span: sp})
		if ex.Dedup {
			chunk.Insts = append(chunk.Insts, Inst{Op: OpDeduplicate, Span: sp})
		}
		return nil

	case ir.PredicateExpr:
		if err := c.emitAtom(chunk, ex.Input, tempSlot, sp); err != nil {
			return err
		}
		bodyIdx, err := c.compileBlock(ex.PredBody, nil)
		if err != nil {
			return err
		}
		numeric := 0
		if ex.Numeric {
			numeric = 1
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpPredicate, A: bodyIdx, B: numeric, Span: sp})
		return nil

	case ir.RangeExpr:
		if err := c.emitAtom(chunk, ex.Lo, tempSlot, sp); err != nil {
			return err
		}
		if err := c.emitAtom(chunk, ex.Hi, tempSlot, sp); err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpRange, Span: sp})
		return nil

	case ir.SequenceExpr:
		for _, part := range ex.Parts {
			if err := c.emitAtom(chunk, part, tempSlot, sp); err != nil {
				return err
			}
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpConcatSeq, A: len(ex.Parts), Span: sp})
		return nil

	case ir.IfExpr:
		if err := c.emitAtom(chunk, ex.Cond, tempSlot, sp); err != nil {
			return err
		}
		thenIdx, err := c.compileBlock(ex.Then, nil)
		if err != nil {
			return err
		}
		elseIdx, err := c.compileBlock(ex.Else, nil)
		if err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpIf, A: thenIdx, B: elseIdx, Span: sp})
		return nil

	case ir.ForExpr:
		if err := c.emitAtom(chunk, ex.Source, tempSlot, sp); err != nil {
			return err
		}
		params := []int{ex.VarSlot}
		hasPos := 0
		if ex.PosSlot >= 0 {
			params = append(params, ex.PosSlot)
			hasPos = 1
		}
		bodyIdx, err := c.compileBlock(ex.Body, params)
		if err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpFor, A: bodyIdx, B: hasPos, Span: sp})
		return nil

	case ir.QuantifiedExpr:
		if err := c.emitAtom(chunk, ex.Source, tempSlot, sp); err != nil {
			return err
		}
		params := []int{ex.VarSlot}
		if ex.PosSlot >= 0 {
			params = append(params, ex.PosSlot)
		}
		bodyIdx, err := c.compileBlock(ex.Test, params)
		if err != nil {
			return err
		}
		every := 0
		if ex.Every {
			every = 1
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpQuantified, A: bodyIdx, B: every, Span: sp})
		return nil

	case ir.CastExpr:
		if err := c.emitAtom(chunk, ex.Operand, tempSlot, sp); err != nil {
			return err
		}
		descIdx := len(chunk.SeqTypes)
		chunk.SeqTypes = append(chunk.SeqTypes, SeqTypeDescriptor{Type: ex.Type})
		op := OpCastAs
		if ex.Castable {
			op = OpCastableAs
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: op, A: descIdx, Span: sp})
		return nil

	case ir.InstanceOfExpr:
		if err := c.emitAtom(chunk, ex.Operand, tempSlot, sp); err != nil {
			return err
		}
		descIdx := len(chunk.SeqTypes)
		chunk.SeqTypes = append(chunk.SeqTypes, SeqTypeDescriptor{Type: ex.Type})
		chunk.Insts = append(chunk.Insts, Inst{Op: OpInstanceOf, A: descIdx, Span: sp})
		return nil

	case ir.TreatExpr:
		if err := c.emitAtom(chunk, ex.Operand, tempSlot, sp); err != nil {
			return err
		}
		descIdx := len(chunk.SeqTypes)
		chunk.SeqTypes = append(chunk.SeqTypes, SeqTypeDescriptor{Type: ex.Type})
		chunk.Insts = append(chunk.Insts, Inst{Op: OpTreatAs, A: descIdx, Span: sp})
		return nil

	case ir.ArrayExpr:
		for _, m := range ex.Members {
			if err := c.emitAtom(chunk, m, tempSlot, sp); err != nil {
				return err
			}
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpMakeArray, A: len(ex.Members), Span: sp})
		return nil

	case ir.MapExpr:
		for i := range ex.Keys {
			if err := c.emitAtom(chunk, ex.Keys[i], tempSlot, sp); err != nil {
				return err
			}
			if err := c.emitAtom(chunk, ex.Values[i], tempSlot, sp); err != nil {
				return err
			}
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpMakeMap, A: len(ex.Keys), Span: sp})
		return nil

	case ir.LookupExpr:
		if err := c.emitAtom(chunk, ex.Target, tempSlot, sp); err != nil {
			return err
		}
		switch {
		case ex.Wildcard:
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLookup, A: 2, Span: sp})
		case ex.KeyName != "":
			idx := chunk.addConst(values.NewString(ex.KeyName))
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLookup, A: 0, B: idx, Span: sp})
		default:
			if err := c.emitAtom(chunk, ex.KeyIndex, tempSlot, sp); err != nil {
				return err
			}
			chunk.Insts = append(chunk.Insts, Inst{Op: OpLookup, A: 1, Span: sp})
		}
		return nil

	case ir.SimpleMapExpr:
		if err := c.emitAtom(chunk, ex.Source, tempSlot, sp); err != nil {
			return err
		}
		bodyIdx, err := c.compileBlock(ex.Body, nil)
		if err != nil {
			return err
		}
		chunk.Insts = append(chunk.Insts, Inst{Op: OpSimpleMap, A: bodyIdx, Span: sp})
		return nil

	default:
		return fmt.Errorf("internal: unhandled ir.Expr %T", e)
	}
}

// closureParamSlots determines which vm slots a MakeClosure body's formal
// parameters live in.
//
// lowerInlineFunction names each parameter "slotN", N being the real slot
// already assigned when the body was lowered (the body references it
// directly via VarExpr{Slot: N}); lowerPartialApplication instead reuses
// the Captures field to carry those same real slot numbers. A
// NamedFunctionRef thunk has no real slots at all -- its body addresses
// parameters positionally via ir.VarArg -- so any distinct local slot
// numbering works; 0..arity-1 is as good as any.
func closureParamSlots(ex ir.MakeClosure) []int {
	n := len(ex.Params)
	if n > 0 && len(ex.Captures) == n {
		return append([]int(nil), ex.Captures...)
	}
	slots := make([]int, n)
	for i, p := range ex.Params {
		s, ok := parseSlotParam(p)
		if !ok {
			for j := range slots {
				slots[j] = j
			}
			return slots
		}
		slots[i] = s
	}
	return slots
}

func parseSlotParam(name string) (int, bool) {
	rest := strings.TrimPrefix(name, "slot")
	if rest == name {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func binOpcode(op ast.BinOp) Opcode {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpIDiv, ast.OpMod:
		return OpArith
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return OpCompareVal
	case ast.OpGenEq, ast.OpGenNe, ast.OpGenLt, ast.OpGenLe, ast.OpGenGt, ast.OpGenGe:
		return OpCompareGen
	case ast.OpIs:
		return OpNodeIs
	case ast.OpPrecedes:
		return OpNodePrecedes
	case ast.OpFollows:
		return OpNodeFollows
	case ast.OpUnion:
		return OpUnion
	case ast.OpIntersect:
		return OpIntersect
	case ast.OpExcept:
		return OpExcept
	default:
		return OpArith
	}
}
