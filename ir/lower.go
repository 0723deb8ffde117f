package ir

import (
	"fmt"
	"math/big"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// StaticContext carries everything the lowerer needs to resolve names
// statically: the function registry (namespace-qualified, arity-keyed)
// and the default function namespace for unprefixed calls.
type StaticContext struct {
	Functions         *registry.Table
	DefaultFunctionNS string

	// ExternalVars declares, in order, the names of variables bound by
	// the caller's dynamic context (e.g. the xpath facade's
	// StaticContext.Variables, or an xslt select-attribute's visible
	// xsl:variable/xsl:param bindings) -- Lower assigns slot i to
	// ExternalVars[i] before lowering the expression body, so a caller
	// builds the matching vm.Dynamic.ExternalVars map using the same
	// positional order.
	ExternalVars []string
}

// scope is a lexical chain of name -> slot bindings, one frame per
// let/for/quantifier/inline-function parameter list.
type scope struct {
	parent *scope
	names  map[string]int
}

func (s *scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.names[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// lowerer accumulates ANF bindings for one Block being built and hands
// out fresh temp/slot numbers from a single counter shared across the
// whole lowering pass (slots are never reused, simplifying the
// compiler's variable-slot allocation).
type lowerer struct {
	sctx     *StaticContext
	nextTemp int
	bindings []Binding
}

// Lower normalizes expr into a Block of ANF bindings ending in a Result
// atom. It resolves every static function call and detects XPST0008
// (unknown variable) and XPST0017 (unknown function) at this stage
// rather than at runtime, per this design/§7.
func Lower(expr ast.Expr, sctx *StaticContext) (*Block, error) {
	lw := &lowerer{sctx: sctx}
	root := &scope{names: map[string]int{}}
	for _, name := range sctx.ExternalVars {
		root.names[name] = lw.freshSlot()
	}
	result, err := lw.lowerInto(expr, root)
	if err != nil {
		return nil, err
	}
	return &Block{Bindings: lw.bindings, Result: result}, nil
}

func (lw *lowerer) freshTemp() int {
	t := lw.nextTemp
	lw.nextTemp++
	return t
}

func (lw *lowerer) freshSlot() int {
	s := lw.nextTemp
	lw.nextTemp++
	return s
}

func (lw *lowerer) emit(e Expr, sp ast.Span) Atom {
	t := lw.freshTemp()
	lw.bindings = append(lw.bindings, Binding{Temp: t, Expr: e, Span: sp})
	return Temp{ID: t}
}

// subBlock lowers expr into its own fresh Block (a new bindings list),
// used for If branches, predicate bodies, for/quantifier bodies and
// inline function bodies, each of which introduces a separate basic
// block for the compiler to emit as a jump target.
func (lw *lowerer) subBlock(expr ast.Expr, sc *scope) (*Block, error) {
	save := lw.bindings
	lw.bindings = nil
	result, err := lw.lowerInto(expr, sc)
	if err != nil {
		return nil, err
	}
	block := &Block{Bindings: lw.bindings, Result: result}
	lw.bindings = save
	return block, nil
}

func (lw *lowerer) lowerInto(e ast.Expr, sc *scope) (Atom, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return lw.emit(ConstExpr{Value: integerLiteral(n.Text)}, n.Span()), nil
	case *ast.DecimalLit:
		return lw.emit(ConstExpr{Value: decimalLiteral(n.Text)}, n.Span()), nil
	case *ast.DoubleLit:
		return lw.emit(ConstExpr{Value: doubleLiteral(n.Text)}, n.Span()), nil
	case *ast.StringLit:
		return lw.emit(ConstExpr{Value: values.NewString(n.Value)}, n.Span()), nil

	case *ast.ContextItem:
		return lw.emit(ContextExpr{Which: ContextItemName}, n.Span()), nil

	case *ast.VarRef:
		slot, ok := sc.lookup(n.Name.Local)
		if !ok {
			return nil, xerrors.New(xerrors.XPST0008, n.Span(), "unknown variable $%s", n.Name.Local)
		}
		return lw.emit(VarExpr{Slot: slot}, n.Span()), nil

	case *ast.Paren:
		if n.Inner == nil {
			return lw.emit(SequenceExpr{}, n.Span()), nil
		}
		return lw.lowerInto(n.Inner, sc)

	case *ast.Binary:
		return lw.lowerBinary(n, sc)

	case *ast.Unary:
		operand, err := lw.lowerInto(n.Operand, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(UnaryExpr{Op: n.Op, Operand: operand}, n.Span()), nil

	case *ast.FunctionCall:
		return lw.lowerFunctionCall(n, sc)

	case *ast.DynamicCall:
		callee, err := lw.lowerInto(n.Callee, sc)
		if err != nil {
			return nil, err
		}
		args, err := lw.lowerAtomList(n.Args, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(CallDynamic{Callee: callee, Args: args}, n.Span()), nil

	case *ast.NamedFunctionRef:
		space, local := registry.ResolveName(n.Name)
		if n.Name.Space != "" {
			space = n.Name.Space
		}
		key := registry.Key{Space: space, Local: local, Arity: n.Arity}
		if _, ok := lw.sctx.Functions.Lookup(space, local, n.Arity); !ok {
			return nil, xerrors.New(xerrors.XPST0017, n.Span(), "unknown function %s#%d", local, n.Arity)
		}
		return lw.emit(MakeClosure{Params: namedRefParamNames(n.Arity), Captures: nil, Body: namedRefThunk(key, n.Arity)}, n.Span()), nil

	case *ast.InlineFunction:
		return lw.lowerInlineFunction(n, sc)

	case *ast.Step:
		return lw.lowerStep(n, sc, ContextRef{Which: ContextItemName})

	case *ast.Path:
		return lw.lowerPath(n, sc)

	case *ast.Predicate:
		return lw.lowerPredicate(n, sc)

	case *ast.Let:
		inner := &scope{parent: sc, names: map[string]int{}}
		for _, b := range n.Bindings {
			val, err := lw.lowerInto(b.Expr, inner)
			if err != nil {
				return nil, err
			}
			slot := lw.freshSlot()
			lw.bindings = append(lw.bindings, Binding{Temp: -1, Expr: bindSlot(slot, val), Span: n.Span()})
			inner.names[b.Name.Local] = slot
		}
		return lw.lowerInto(n.Body, inner)

	case *ast.For:
		return lw.lowerFor(n, sc)

	case *ast.If:
		cond, err := lw.lowerInto(n.Cond, sc)
		if err != nil {
			return nil, err
		}
		thenBlock, err := lw.subBlock(n.Then, sc)
		if err != nil {
			return nil, err
		}
		elseBlock, err := lw.subBlock(n.Else, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(IfExpr{Cond: cond, Then: thenBlock, Else: elseBlock}, n.Span()), nil

	case *ast.Quantified:
		return lw.lowerQuantified(n, sc)

	case *ast.Apply:
		return lw.lowerApply(n, sc)

	case *ast.ArrayCtor:
		members, err := lw.lowerAtomList(n.Members, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(ArrayExpr{Members: members}, n.Span()), nil

	case *ast.MapCtor:
		var keys, vals []Atom
		for _, ent := range n.Entries {
			k, err := lw.lowerInto(ent.Key, sc)
			if err != nil {
				return nil, err
			}
			v, err := lw.lowerInto(ent.Value, sc)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			vals = append(vals, v)
		}
		return lw.emit(MapExpr{Keys: keys, Values: vals}, n.Span()), nil

	case *ast.Lookup:
		var target Atom
		var err error
		if n.Target != nil {
			target, err = lw.lowerInto(n.Target, sc)
		} else {
			target, err = lw.lowerInto(&ast.ContextItem{}, sc)
		}
		if err != nil {
			return nil, err
		}
		le := LookupExpr{Target: target}
		switch n.Kind {
		case ast.LookupWildcard:
			le.Wildcard = true
		case ast.LookupKey:
			if n.KeyName != "" {
				le.KeyName = n.KeyName
			} else {
				i := new(big.Int)
				i.SetString(n.KeyIndex, 10)
				le.KeyIndex = Literal{Value: values.NewIntegerFromBigInt(i)}
			}
		case ast.LookupParen:
			idx, err := lw.lowerInto(n.KeyExpr, sc)
			if err != nil {
				return nil, err
			}
			le.KeyIndex = idx
		}
		return lw.emit(le, n.Span()), nil

	case *ast.Arrow:
		return lw.lowerArrow(n, sc)

	default:
		return nil, xerrors.New(xerrors.XPST0003, e.Span(), "unsupported expression form %T", e)
	}
}

func bindSlot(slot int, val Atom) Expr {
	return VarBindExpr{Slot: slot, Value: val}
}

// VarBindExpr materializes an atom into a variable slot; emitted with
// Temp == -1 (a statement with no result consumer) to distinguish a
// pure side-effecting slot write from an ordinary ANF binding.
type VarBindExpr struct {
	Slot  int
	Value Atom
}

func (VarBindExpr) exprIR() {}

func (lw *lowerer) lowerAtomList(exprs []ast.Expr, sc *scope) ([]Atom, error) {
	out := make([]Atom, 0, len(exprs))
	for _, e := range exprs {
		a, err := lw.lowerInto(e, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (lw *lowerer) lowerBinary(n *ast.Binary, sc *scope) (Atom, error) {
	if n.Op == ast.OpSimpleMap {
		src, err := lw.lowerInto(n.Left, sc)
		if err != nil {
			return nil, err
		}
		body, err := lw.subBlock(n.Right, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(SimpleMapExpr{Source: src, Body: body}, n.Span()), nil
	}
	if n.Op == ast.OpTo {
		lo, err := lw.lowerInto(n.Left, sc)
		if err != nil {
			return nil, err
		}
		hi, err := lw.lowerInto(n.Right, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(RangeExpr{Lo: lo, Hi: hi}, n.Span()), nil
	}
	if n.Op == ast.OpConcat {
		parts, err := lw.flattenConcat(n, sc)
		if err != nil {
			return nil, err
		}
		return lw.emit(SequenceExpr{Parts: parts}, n.Span()), nil
	}
	// `and`/`or` short-circuit: lower to If rather than a strict BinaryExpr.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		left, err := lw.lowerInto(n.Left, sc)
		if err != nil {
			return nil, err
		}
		rightBlock, err := lw.subBlock(n.Right, sc)
		if err != nil {
			return nil, err
		}
		falseBlock := &Block{Result: Literal{Value: values.NewBoolean(false)}}
		trueBlock := &Block{Result: Literal{Value: values.NewBoolean(true)}}
		if n.Op == ast.OpAnd {
			return lw.emit(IfExpr{Cond: left, Then: rightBlock, Else: falseBlock}, n.Span()), nil
		}
		return lw.emit(IfExpr{Cond: left, Then: trueBlock, Else: rightBlock}, n.Span()), nil
	}
	left, err := lw.lowerInto(n.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := lw.lowerInto(n.Right, sc)
	if err != nil {
		return nil, err
	}
	return lw.emit(BinaryExpr{Op: n.Op, Left: left, Right: right}, n.Span()), nil
}

func (lw *lowerer) flattenConcat(n *ast.Binary, sc *scope) ([]Atom, error) {
	var parts []Atom
	var walk func(ast.Expr) error
	walk = func(e ast.Expr) error {
		if b, ok := e.(*ast.Binary); ok && b.Op == ast.OpConcat {
			if err := walk(b.Left); err != nil {
				return err
			}
			return walk(b.Right)
		}
		a, err := lw.lowerInto(e, sc)
		if err != nil {
			return err
		}
		parts = append(parts, a)
		return nil
	}
	if err := walk(n); err != nil {
		return nil, err
	}
	return parts, nil
}

func (lw *lowerer) lowerFunctionCall(n *ast.FunctionCall, sc *scope) (Atom, error) {
	if n.PlaceholderN > 0 {
		return lw.lowerPartialApplication(n, sc)
	}
	space, local := registry.ResolveName(n.Name)
	if n.Name.Space != "" {
		space = n.Name.Space
	}
	fn, ok := lw.sctx.Functions.Lookup(space, local, len(n.Args))
	if !ok {
		return nil, xerrors.New(xerrors.XPST0017, n.Span(), "unknown function %s (arity %d)", local, len(n.Args))
	}
	args, err := lw.lowerAtomList(n.Args, sc)
	if err != nil {
		return nil, err
	}
	return lw.emit(CallStatic{Key: fn.Key, Args: args}, n.Span()), nil
}

// lowerPartialApplication rewrites f(?, $x) into an inline function
// `function($p1) { f($p1, $x) }`, matching the XPath 3.1 rule that
// argument placeholders desugar to a new function with one parameter
// per placeholder, in placeholder order.
func (lw *lowerer) lowerPartialApplication(n *ast.FunctionCall, sc *scope) (Atom, error) {
	inner := &scope{parent: sc, names: map[string]int{}}
	var paramSlots []int
	fullArgs := make([]ast.Expr, len(n.Args))
	placeholderIdx := 0
	for i, a := range n.Args {
		if parser.IsPlaceholder(a) {
			slot := lw.freshSlot()
			name := fmt.Sprintf("%%placeholder%d", placeholderIdx)
			inner.names[name] = slot
			paramSlots = append(paramSlots, slot)
			fullArgs[i] = &ast.VarRef{Name: ast.Name{Local: name}}
			placeholderIdx++
		} else {
			fullArgs[i] = a
		}
	}
	rewritten := &ast.FunctionCall{Name: n.Name, Args: fullArgs}
	body, err := lw.subBlock(rewritten, inner)
	if err != nil {
		return nil, err
	}
	return lw.emit(MakeClosure{Params: paramNamesForSlots(len(paramSlots)), Captures: paramSlots, Body: body}, n.Span()), nil
}

func namedRefParamNames(arity int) []string { return paramNamesForSlots(arity) }

func paramNamesForSlots(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}

func namedRefThunk(key registry.Key, arity int) *Block {
	args := make([]Atom, arity)
	for i := range args {
		args[i] = VarArg{Index: i}
	}
	return &Block{Result: Temp{ID: 0}, Bindings: []Binding{{Temp: 0, Expr: CallStatic{Key: key, Args: args}}}}
}

// VarArg is a placeholder Atom used only inside a NamedFunctionRef
// thunk's synthetic body, later resolved by the compiler to "read
// parameter i of the enclosing closure frame".
type VarArg struct{ Index int }

func (VarArg) atomNode() {}

func (lw *lowerer) lowerInlineFunction(n *ast.InlineFunction, sc *scope) (Atom, error) {
	inner := &scope{parent: sc, names: map[string]int{}}
	paramNames := make([]string, len(n.Params))
	for i, p := range n.Params {
		slot := lw.freshSlot()
		inner.names[p.Name.Local] = slot
		paramNames[i] = fmt.Sprintf("slot%d", slot)
	}
	body, err := lw.subBlock(n.Body, inner)
	if err != nil {
		return nil, err
	}
	return lw.emit(MakeClosure{Params: paramNames, Body: body}, n.Span()), nil
}

func (lw *lowerer) lowerStep(n *ast.Step, sc *scope, input Atom) (Atom, error) {
	e := StepExpr{Input: input, Axis: n.AxisSpec, Test: n.Test, Dedup: true}
	result := lw.emit(e, n.Span())
	for _, pred := range n.Predicates {
		var err error
		result, err = lw.emitPredicate(result, pred, sc)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (lw *lowerer) emitPredicate(input Atom, pred ast.Expr, sc *scope) (Atom, error) {
	body, err := lw.subBlock(pred, sc)
	if err != nil {
		return nil, err
	}
	numeric := isBareNumericPredicate(pred)
	return lw.emit(PredicateExpr{Input: input, PredBody: body, Numeric: numeric}, pred.Span()), nil
}

func isBareNumericPredicate(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit:
		return true
	default:
		return false
	}
}

func (lw *lowerer) lowerPredicate(n *ast.Predicate, sc *scope) (Atom, error) {
	input, err := lw.lowerInto(n.Target, sc)
	if err != nil {
		return nil, err
	}
	return lw.emitPredicate(input, n.Test, sc)
}

func (lw *lowerer) lowerPath(n *ast.Path, sc *scope) (Atom, error) {
	var current Atom
	var err error
	switch n.Root {
	case ast.RootedSlash, ast.RootedSlashSlash:
		current = lw.emit(CallStatic{Key: rootKey(lw.sctx)}, n.Span())
		if n.Root == ast.RootedSlashSlash {
			current = lw.emit(StepExpr{Input: current, Axis: ast.DescendantOrSelf, Test: ast.NodeTest{Kind: ast.KindTestAnyNode}, Dedup: true}, n.Span())
		}
	default:
		if len(n.Steps) == 0 {
			return nil, xerrors.New(xerrors.XPST0003, n.Span(), "empty path")
		}
	}
	steps := n.Steps
	startIdx := 0
	if current == nil {
		current, err = lw.lowerInto(steps[0], sc)
		if err != nil {
			return nil, err
		}
		startIdx = 1
	}
	for i := startIdx; i < len(steps); i++ {
		switch st := steps[i].(type) {
		case *ast.Step:
			current, err = lw.lowerStep(st, sc, current)
			if err != nil {
				return nil, err
			}
		default:
			// A non-Step postfix expression used as a path step (rare,
			// e.g. a parenthesized sequence of nodes): evaluate it with
			// the running node as the implicit simple-map source.
			body, berr := lw.subBlock(st, sc)
			if berr != nil {
				return nil, berr
			}
			current = lw.emit(SimpleMapExpr{Source: current, Body: body}, st.Span())
		}
	}
	return current, nil
}

func rootKey(sctx *StaticContext) registry.Key {
	space, local := registry.ResolveName(ast.Name{Local: "root"})
	return registry.Key{Space: space, Local: local, Arity: 0}
}

func (lw *lowerer) lowerFor(n *ast.For, sc *scope) (Atom, error) {
	return lw.lowerForClauses(n.Clauses, n.Body, sc)
}

func (lw *lowerer) lowerForClauses(clauses []ast.ForClause, body ast.Expr, sc *scope) (Atom, error) {
	if len(clauses) == 0 {
		return lw.lowerInto(body, sc)
	}
	c := clauses[0]
	source, err := lw.lowerInto(c.Expr, sc)
	if err != nil {
		return nil, err
	}
	inner := &scope{parent: sc, names: map[string]int{}}
	varSlot := lw.freshSlot()
	inner.names[c.Name.Local] = varSlot
	posSlot := -1
	if c.PosVar.Local != "" {
		posSlot = lw.freshSlot()
		inner.names[c.PosVar.Local] = posSlot
	}
	bodyBlock, err := lw.subBlock(forBodyExpr(clauses[1:], body), inner)
	if err != nil {
		return nil, err
	}
	return lw.emit(ForExpr{VarSlot: varSlot, PosSlot: posSlot, Source: source, Body: bodyBlock}, body.Span()), nil
}

// forBodyExpr threads the remaining for-clauses through as a nested
// synthetic For node so lowerForClauses can recurse one clause at a
// time while still producing a single nested ForExpr chain.
func forBodyExpr(rest []ast.ForClause, body ast.Expr) ast.Expr {
	if len(rest) == 0 {
		return body
	}
	return &ast.For{Clauses: rest, Body: body}
}

func (lw *lowerer) lowerQuantified(n *ast.Quantified, sc *scope) (Atom, error) {
	// Only the first clause is lowered directly into a QuantifiedExpr;
	// additional clauses nest via the same forBodyExpr trick, wrapped in
	// an inner Quantified of the same kind so `every`/`some` semantics
	// are preserved across multiple binding clauses.
	c := n.Clauses[0]
	source, err := lw.lowerInto(c.Expr, sc)
	if err != nil {
		return nil, err
	}
	inner := &scope{parent: sc, names: map[string]int{}}
	varSlot := lw.freshSlot()
	inner.names[c.Name.Local] = varSlot
	posSlot := -1
	if c.PosVar.Local != "" {
		posSlot = lw.freshSlot()
		inner.names[c.PosVar.Local] = posSlot
	}
	var testExpr ast.Expr = n.Test
	if len(n.Clauses) > 1 {
		testExpr = &ast.Quantified{Quant: n.Quant, Clauses: n.Clauses[1:], Test: n.Test}
	}
	testBlock, err := lw.subBlock(testExpr, inner)
	if err != nil {
		return nil, err
	}
	return lw.emit(QuantifiedExpr{VarSlot: varSlot, PosSlot: posSlot, Source: source, Every: n.Quant == ast.Every, Test: testBlock}, n.Span()), nil
}

func (lw *lowerer) lowerApply(n *ast.Apply, sc *scope) (Atom, error) {
	operand, err := lw.lowerInto(n.Operand, sc)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case ast.CastAs:
		return lw.emit(CastExpr{Operand: operand, Type: n.TypeDecl}, n.Span()), nil
	case ast.CastableAs:
		return lw.emit(CastExpr{Operand: operand, Type: n.TypeDecl, Castable: true}, n.Span()), nil
	case ast.InstanceOf:
		return lw.emit(InstanceOfExpr{Operand: operand, Type: n.TypeDecl}, n.Span()), nil
	case ast.TreatAs:
		return lw.emit(TreatExpr{Operand: operand, Type: n.TypeDecl}, n.Span()), nil
	default:
		return nil, xerrors.New(xerrors.XPST0003, n.Span(), "unknown apply kind")
	}
}

func (lw *lowerer) lowerArrow(n *ast.Arrow, sc *scope) (Atom, error) {
	source, err := lw.lowerInto(n.Source, sc)
	if err != nil {
		return nil, err
	}
	rest, err := lw.lowerAtomList(n.Args, sc)
	if err != nil {
		return nil, err
	}
	args := append([]Atom{source}, rest...)
	if n.Name.Local != "" {
		space, local := registry.ResolveName(n.Name)
		if n.Name.Space != "" {
			space = n.Name.Space
		}
		fn, ok := lw.sctx.Functions.Lookup(space, local, len(args))
		if !ok {
			return nil, xerrors.New(xerrors.XPST0017, n.Span(), "unknown function %s (arity %d)", local, len(args))
		}
		return lw.emit(CallStatic{Key: fn.Key, Args: args}, n.Span()), nil
	}
	callee, err := lw.lowerInto(n.Callee, sc)
	if err != nil {
		return nil, err
	}
	return lw.emit(CallDynamic{Callee: callee, Args: args}, n.Span()), nil
}
