package vm

import (
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// callStatic implements OpCallStatic: resolve the chunk's interned
// registry.Key, build a registry.Dynamic carrying the current focus plus
// a CallFunction callback so higher-order builtins can invoke a
// function-item argument, and dispatch.
func (m *VM) callStatic(c *compiler.Chunk, in compiler.Inst, args []values.Sequence, f focus) values.Sequence {
	key := c.FuncRefs[in.A]
	fn, ok := m.table.Lookup(key.Space, key.Local, key.Arity)
	if !ok {
		fail(xerrors.XPST0017, in.Span, "unknown function %s#%d", key.Local, key.Arity)
	}
	for i, checker := range fn.ArgCheckers {
		if checker == nil || i >= len(args) {
			continue
		}
		if ok, reason := checker(args[i]); !ok {
			fail(xerrors.XPTY0004, in.Span, "argument %d to %s: %s", i+1, key.Local, reason)
		}
	}
	dyn := &registry.Dynamic{
		ContextItem:  f.item,
		Position:     f.position,
		Size:         f.size,
		CallFunction: m.callFunctionItem,
	}
	res, err := fn.Call(dyn, args)
	if err != nil {
		if xe, ok := err.(*xerrors.Error); ok {
			fail(xe.Code, in.Span, "%s: %s", key.Local, xe.Message)
		}
		fail(xerrors.FORG0006, in.Span, "%s: %s", key.Local, err.Error())
	}
	return res
}

// callFunctionItem is the CallFunction callback threaded into every
// registry.Dynamic, letting static builtins (e.g. a future fn:sort key
// callback) invoke a function-item value.
func (m *VM) callFunctionItem(fn values.FunctionItem, args []values.Sequence) (values.Sequence, error) {
	return fn.Call(args)
}

// callDynamic implements OpCallDynamic: callee must be exactly one
// function item.
func (m *VM) callDynamic(callee values.Sequence, args []values.Sequence, sp ast.Span) values.Sequence {
	if len(callee) != 1 {
		fail(xerrors.XPTY0004, sp, "dynamic call target must be a single function item")
	}
	fi, ok := callee[0].(values.FunctionItem)
	if !ok {
		fail(xerrors.XPTY0004, sp, "dynamic call target is not a function item")
	}
	switch {
	case fi.IsArray:
		if len(args) != 1 {
			fail(xerrors.XPTY0004, sp, "an array used as a function requires exactly one argument")
		}
		return arrayLookup(fi, args[0], sp)
	case fi.IsMap:
		if len(args) != 1 {
			fail(xerrors.XPTY0004, sp, "a map used as a function requires exactly one argument")
		}
		return mapLookup(fi, args[0])
	default:
		res, err := fi.Call(args)
		if err != nil {
			fail(xerrors.XPTY0004, sp, "%s", err.Error())
		}
		return res
	}
}

// makeClosure implements OpMakeClosure: builds a FunctionItem whose Call
// writes its arguments into the body chunk's ParamSlots and then
// executes the body chunk under the focus captured at closure-creation
// time -- inline function expressions lexically capture the enclosing
// focus the same way they capture enclosing slot bindings (see
// compiler/emit.go's OpMakeClosure comment: slot numbers are never
// reused, so an outer let/for binding is visible to the body simply by
// referencing the same slot number).
func (m *VM) makeClosure(in compiler.Inst, f focus) values.Sequence {
	bodyIdx := in.A
	body := m.chunk(bodyIdx)
	arity := len(body.ParamSlots)
	call := func(args []values.Sequence) (values.Sequence, error) {
		if len(args) != arity {
			return nil, xerrors.New(xerrors.XPTY0004, in.Span, "function expects %d argument(s), got %d", arity, len(args))
		}
		for i, slot := range body.ParamSlots {
			m.setSlot(slot, args[i])
		}
		return m.execChunk(bodyIdx, f), nil
	}
	return values.Single(values.FunctionItem{
		Signature: values.FunctionSignature{Arity: arity},
		Call:      call,
	})
}

func arrayCall(members []values.Sequence) func(args []values.Sequence) (values.Sequence, error) {
	return func(args []values.Sequence) (values.Sequence, error) {
		if len(args) != 1 {
			return nil, xerrors.New(xerrors.XPTY0004, ast.Span{}, "an array used as a function requires exactly one argument")
		}
		return arrayLookup(values.FunctionItem{IsArray: true, ArrayMembers: members}, args[0], ast.Span{})
	}
}

func arrayLookup(fi values.FunctionItem, idx values.Sequence, sp ast.Span) values.Sequence {
	idx = atomize(idx, sp)
	if len(idx) != 1 {
		fail(xerrors.XPTY0004, sp, "array lookup requires a single integer index")
	}
	bi, ok := mustAtomic(idx[0], sp).AsBigInt()
	if !ok {
		fail(xerrors.XPTY0004, sp, "array lookup requires an integer index")
	}
	i := bi.Int64()
	if i < 1 || int(i) > len(fi.ArrayMembers) {
		fail(xerrors.FOAY0001, sp, "array index %d out of bounds (array has %d members)", i, len(fi.ArrayMembers))
	}
	return fi.ArrayMembers[i-1]
}

func mapLookup(fi values.FunctionItem, key values.Sequence) values.Sequence {
	key = atomize(key, ast.Span{})
	if len(key) != 1 {
		return values.Empty
	}
	k := mustAtomic(key[0], ast.Span{})
	for i, mk := range fi.MapKeys {
		if mk.Type == k.Type && mk.String() == k.String() {
			return fi.MapValues[i]
		}
	}
	return values.Empty
}

// makeMap implements OpMakeMap over the flattened [key0, val0, key1,
// val1, ...] operand list OpMakeMap pops.
func (m *VM) makeMap(kv []values.Sequence) values.Sequence {
	n := len(kv) / 2
	keys := make([]values.Atomic, 0, n)
	vals := make([]values.Sequence, 0, n)
	for i := 0; i < n; i++ {
		k := atomize(kv[2*i], ast.Span{})
		if len(k) != 1 {
			fail(xerrors.XPTY0004, ast.Span{}, "a map key must be a single atomic value")
		}
		keys = append(keys, mustAtomic(k[0], ast.Span{}))
		vals = append(vals, kv[2*i+1])
	}
	return values.Single(values.FunctionItem{
		IsMap:     true,
		MapKeys:   keys,
		MapValues: vals,
	})
}

// lookup implements OpLookup for all three forms (?name, ?(expr), ?*).
func (m *VM) lookup(c *compiler.Chunk, in compiler.Inst, target values.Sequence) values.Sequence {
	switch in.A {
	case 0: // key name, B = const index holding the key string
		key := values.AtomicItem{Value: c.Consts[in.B]}
		var out values.Sequence
		for _, it := range target {
			fi, ok := it.(values.FunctionItem)
			if !ok || !fi.IsMap {
				fail(xerrors.XPTY0004, in.Span, "?name lookup requires a map")
			}
			out = append(out, mapLookup(fi, values.Single(key))...)
		}
		return out
	case 2: // wildcard
		var out values.Sequence
		for _, it := range target {
			fi, ok := it.(values.FunctionItem)
			if !ok {
				fail(xerrors.XPTY0004, in.Span, "?* lookup requires a map or array")
			}
			if fi.IsMap {
				out = append(out, fi.MapValues...)
			} else if fi.IsArray {
				out = append(out, fi.ArrayMembers...)
			}
		}
		return out
	default:
		fail(xerrors.XPTY0004, in.Span, "internal: unknown lookup kind")
		panic("unreachable")
	}
}

// lookupByIndex implements the ?(expr)/?1 numeric-or-computed-key lookup
// form, applicable to both maps (atomic key) and arrays (integer index).
func (m *VM) lookupByIndex(target, idx values.Sequence, sp ast.Span) values.Sequence {
	var out values.Sequence
	for _, it := range target {
		fi, ok := it.(values.FunctionItem)
		if !ok {
			fail(xerrors.XPTY0004, sp, "?(...) lookup requires a map or array")
		}
		if fi.IsArray {
			out = append(out, arrayLookup(fi, idx, sp)...)
		} else if fi.IsMap {
			out = append(out, mapLookup(fi, idx)...)
		}
	}
	return out
}

// simpleMap implements OpSimpleMap ('!'): evaluate body once per source
// item with the context item/position/size rebound, concatenating
// results in order.
func (m *VM) simpleMap(bodyIdx int, source values.Sequence, f focus) values.Sequence {
	var out values.Sequence
	for i, it := range source {
		sub := focus{item: values.Single(it), position: i + 1, size: len(source)}
		out = append(out, m.execChunk(bodyIdx, sub)...)
	}
	return out
}

// predicate implements OpPredicate: evaluate the predicate body once per
// input item with the context item/position/size rebound; a predicate
// result that is a single numeric value is a positional test (item kept
// iff its 1-based position equals that number), otherwise the ordinary
// effective-boolean-value rule applies -- this dynamic check subsumes
// the compiler's static Numeric hint, since a non-literal predicate
// (e.g. `[position() - 1]`) only reveals its numeric-ness at runtime.
func (m *VM) predicate(bodyIdx int, input values.Sequence) values.Sequence {
	var out values.Sequence
	for i, it := range input {
		f := focus{item: values.Single(it), position: i + 1, size: len(input)}
		result := m.execChunk(bodyIdx, f)
		if keep := predicateKeep(result, i+1); keep {
			out = append(out, it)
		}
	}
	return out
}

func predicateKeep(result values.Sequence, position int) bool {
	if len(result) == 1 {
		if ai, ok := result[0].(values.AtomicItem); ok && ai.Value.Type.IsNumeric() {
			f, _ := ai.Value.AsFloat64()
			return f == float64(position)
		}
	}
	b, _ := result.EffectiveBooleanValue()
	return b
}

// forLoop implements OpFor: iterate Source, binding VarSlot (and
// PosSlot, if present) per the body chunk's ParamSlots, concatenating
// per-iteration results -- the standard `for` flattening semantics.
func (m *VM) forLoop(in compiler.Inst, source values.Sequence, f focus) values.Sequence {
	body := m.chunk(in.A)
	hasPos := in.B == 1
	var out values.Sequence
	for i, it := range source {
		m.setSlot(body.ParamSlots[0], values.Single(it))
		if hasPos {
			m.setSlot(body.ParamSlots[1], values.Single(values.AtomicItem{Value: values.NewInteger(int64(i + 1))}))
		}
		out = append(out, m.execChunk(in.A, f)...)
	}
	return out
}

// quantified implements OpQuantified ('some'/'every'), short-circuiting
// on the first satisfying/falsifying item.
func (m *VM) quantified(in compiler.Inst, source values.Sequence, f focus) values.Sequence {
	body := m.chunk(in.A)
	every := in.B == 1
	hasPos := len(body.ParamSlots) > 1
	for i, it := range source {
		m.setSlot(body.ParamSlots[0], values.Single(it))
		if hasPos {
			m.setSlot(body.ParamSlots[1], values.Single(values.AtomicItem{Value: values.NewInteger(int64(i + 1))}))
		}
		result := m.execChunk(in.A, f)
		b, _ := result.EffectiveBooleanValue()
		if every && !b {
			return values.Single(values.AtomicItem{Value: values.NewBoolean(false)})
		}
		if !every && b {
			return values.Single(values.AtomicItem{Value: values.NewBoolean(true)})
		}
	}
	return values.Single(values.AtomicItem{Value: values.NewBoolean(every)})
}
