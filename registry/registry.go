// Package registry holds the static function table: the set of
// (namespace, local-name, arity) -> implementation bindings resolved at
// compile time, the way the reference design's symbol.go resolves XPath function
// calls against its xpathFunctionTable before ever reaching the
// bytecode. the reference design's four-argument-kind checker style
// (DatumTypeChecker) is kept; the function list itself is a representative
// subset of the fn:* core library (see StandardLibrary) rather than the
// reference design's YANG-must subset.
package registry

import (
	"math"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// Key identifies a static function by qualified name and arity; XPath
// functions are overloaded on arity (count(), count($x)) so arity is
// part of the lookup key, exactly as the reference design's symbolTable keys on
// (name, numParams) in symbol.go.
type Key struct {
	Space string
	Local string
	Arity int
}

// Dynamic is the subset of runtime state a builtin function's Call needs:
// the focus (context item/position/size) and any evaluator-supplied
// callback for invoking function items (used by higher-order functions
// like fn:sort's key callback, once wired). It is declared here, not
// imported from package vm, to avoid a registry -> vm import cycle
// (vm imports registry to resolve calls at runtime).
type Dynamic struct {
	ContextItem values.Sequence
	Position    int
	Size        int

	// CallFunction invokes a function item with the given arguments; set
	// by the vm package before builtins that take function-item
	// arguments are called.
	CallFunction func(fn values.FunctionItem, args []values.Sequence) (values.Sequence, error)
}

// Func is a single static function binding.
type Func struct {
	Key         Key
	ArgCheckers []values.TypeChecker
	Ret         values.TypeChecker
	Call        func(d *Dynamic, args []values.Sequence) (values.Sequence, error)
}

// Table is a static function registry, looked up by (name, arity).
type Table struct {
	byKey map[Key]*Func
}

func NewTable() *Table { return &Table{byKey: map[Key]*Func{}} }

func (t *Table) Register(f *Func) { t.byKey[f.Key] = f }

// Lookup resolves a static function call by namespace, local name and
// argument count, mirroring symbol.go's LookupXpathFunction.
func (t *Table) Lookup(space, local string, arity int) (*Func, bool) {
	f, ok := t.byKey[Key{Space: space, Local: local, Arity: arity}]
	return f, ok
}

// Names returns every (space, local) pair with at least one registered
// arity, as sorted "space:local" strings.
func (t *Table) Names() []string {
	seen := map[string]bool{}
	for k := range t.byKey {
		seen[k.Space+":"+k.Local] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

const fnNS = "http://www.w3.org/2005/xpath-functions"

func reg(t *Table, local string, arity int, args []values.TypeChecker, ret values.TypeChecker, call func(d *Dynamic, args []values.Sequence) (values.Sequence, error)) {
	t.Register(&Func{Key: Key{Space: fnNS, Local: local, Arity: arity}, ArgCheckers: args, Ret: ret, Call: call})
}

func str1() []values.TypeChecker { return []values.TypeChecker{values.ZeroOrOneAtomic(values.TString, true)} }
func num1() []values.TypeChecker { return []values.TypeChecker{values.ExactlyOneAtomic(0, true)} }

func atomStr(s string) values.Sequence { return values.Single(values.AtomicItem{Value: values.NewString(s)}) }
func atomBool(b bool) values.Sequence  { return values.Single(values.AtomicItem{Value: values.NewBoolean(b)}) }
func atomInt(i int64) values.Sequence  { return values.Single(values.AtomicItem{Value: values.NewInteger(i)}) }
func atomDbl(f float64) values.Sequence { return values.Single(values.AtomicItem{Value: values.NewDouble(f)}) }

func argString(s values.Sequence, fallback string) string {
	if len(s) == 0 {
		return fallback
	}
	ai, ok := s[0].(values.AtomicItem)
	if !ok {
		return fallback
	}
	return ai.Value.String()
}

func argFloat(s values.Sequence) (float64, bool) {
	if len(s) != 1 {
		return 0, false
	}
	ai, ok := s[0].(values.AtomicItem)
	if !ok {
		return 0, false
	}
	return ai.Value.AsFloat64()
}

// StandardLibrary builds the fn:* function table this design and the
// reference design's symbol.go (xpathFunctionTable) both name: boolean/not,
// string/string-length/concat/contains/starts-with/ends-with/
// substring(-before|-after)/normalize-space/translate, upper-case/
// lower-case/matches, number/ceiling/floor/round/abs, count/sum/avg,
// last/position, true/false, name/local-name, and fn:root added for the
// path-root rule. fn:min and fn:max are not registered.
func StandardLibrary() *Table {
	t := NewTable()

	reg(t, "true", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomBool(true), nil
	})
	reg(t, "false", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomBool(false), nil
	})
	reg(t, "not", 1, []values.TypeChecker{values.AnyItem()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		b, ok := a[0].EffectiveBooleanValue()
		if !ok {
			return nil, xerrors.New(xerrors.FORG0006, ast.Span{}, "fn:not: cannot derive effective boolean value")
		}
		return atomBool(!b), nil
	})
	reg(t, "boolean", 1, []values.TypeChecker{values.AnyItem()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		b, ok := a[0].EffectiveBooleanValue()
		if !ok {
			return nil, xerrors.New(xerrors.FORG0006, ast.Span{}, "fn:boolean: cannot derive effective boolean value")
		}
		return atomBool(b), nil
	})

	reg(t, "string", 1, str1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(sequenceStringValue(a[0])), nil
	})
	reg(t, "concat", 2, nil, nil, fnConcat)
	for arity := 3; arity <= 8; arity++ {
		reg(t, "concat", arity, nil, nil, fnConcat)
	}
	reg(t, "string-length", 1, str1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomInt(int64(len([]rune(argString(a[0], ""))))), nil
	})
	reg(t, "string-length", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomInt(int64(len([]rune(sequenceStringValue(d.ContextItem))))), nil
	})
	reg(t, "normalize-space", 1, str1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(normalizeSpace(argString(a[0], ""))), nil
	})
	reg(t, "normalize-space", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(normalizeSpace(sequenceStringValue(d.ContextItem))), nil
	})
	reg(t, "contains", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomBool(strings.Contains(argString(a[0], ""), argString(a[1], ""))), nil
	})
	reg(t, "starts-with", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomBool(strings.HasPrefix(argString(a[0], ""), argString(a[1], ""))), nil
	})
	reg(t, "ends-with", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomBool(strings.HasSuffix(argString(a[0], ""), argString(a[1], ""))), nil
	})
	reg(t, "substring-before", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		s, sub := argString(a[0], ""), argString(a[1], "")
		if i := strings.Index(s, sub); i >= 0 {
			return atomStr(s[:i]), nil
		}
		return atomStr(""), nil
	})
	reg(t, "substring-after", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		s, sub := argString(a[0], ""), argString(a[1], "")
		if i := strings.Index(s, sub); i >= 0 {
			return atomStr(s[i+len(sub):]), nil
		}
		return atomStr(""), nil
	})
	reg(t, "substring", 2, nil, nil, fnSubstring)
	reg(t, "substring", 3, nil, nil, fnSubstring)
	reg(t, "translate", 3, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(translate(argString(a[0], ""), argString(a[1], ""), argString(a[2], ""))), nil
	})
	reg(t, "upper-case", 1, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(strings.ToUpper(argString(a[0], ""))), nil
	})
	reg(t, "lower-case", 1, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomStr(strings.ToLower(argString(a[0], ""))), nil
	})
	reg(t, "matches", 2, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		re, err := regexp.Compile(argString(a[1], ""))
		if err != nil {
			return nil, xerrors.New(xerrors.FORX0002, ast.Span{}, "fn:matches: invalid regular expression: %s", err.Error())
		}
		return atomBool(re.MatchString(argString(a[0], ""))), nil
	})

	reg(t, "number", 1, num1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		f, ok := argFloat(a[0])
		if !ok {
			return atomDbl(math.NaN()), nil
		}
		return atomDbl(f), nil
	})
	reg(t, "abs", 1, num1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return numericUnary(a[0], math.Abs, func(r *big.Rat) *big.Rat { return new(big.Rat).Abs(r) })
	})
	reg(t, "ceiling", 1, num1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return numericUnary(a[0], math.Ceil, ratCeil)
	})
	reg(t, "floor", 1, num1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return numericUnary(a[0], math.Floor, ratFloor)
	})
	reg(t, "round", 1, num1(), nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return numericUnary(a[0], math.Round, ratRound)
	})

	reg(t, "count", 1, []values.TypeChecker{values.AnyItem()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomInt(int64(len(a[0]))), nil
	})
	reg(t, "sum", 1, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnSum(a[0])
	})
	reg(t, "avg", 1, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		if len(a[0]) == 0 {
			return values.Empty, nil
		}
		sum, err := fnSum(a[0])
		if err != nil {
			return nil, err
		}
		f, _ := sum[0].(values.AtomicItem).Value.AsFloat64()
		return atomDbl(f / float64(len(a[0]))), nil
	})

	reg(t, "last", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomInt(int64(d.Size)), nil
	})
	reg(t, "position", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return atomInt(int64(d.Position)), nil
	})

	reg(t, "root", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnRoot(d.ContextItem)
	})
	reg(t, "root", 1, []values.TypeChecker{values.ExactlyOneNode()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnRoot(a[0])
	})

	reg(t, "name", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnName(d.ContextItem)
	})
	reg(t, "name", 1, []values.TypeChecker{values.ExactlyOneNode()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnName(a[0])
	})
	reg(t, "local-name", 0, nil, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnLocalName(d.ContextItem)
	})
	reg(t, "local-name", 1, []values.TypeChecker{values.ExactlyOneNode()}, nil, func(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
		return fnLocalName(a[0])
	})

	return t
}

func fnConcat(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
	var b strings.Builder
	for _, s := range a {
		b.WriteString(argString(s, ""))
	}
	return atomStr(b.String()), nil
}

func fnSubstring(d *Dynamic, a []values.Sequence) (values.Sequence, error) {
	s := []rune(argString(a[0], ""))
	start, _ := argFloat(a[1])
	startIdx := math.Round(start)
	var length float64 = math.Inf(1)
	if len(a) == 3 {
		l, _ := argFloat(a[2])
		length = math.Round(l)
	}
	from := int(math.Max(startIdx, 1)) - 1
	var to int
	if math.IsInf(length, 1) {
		to = len(s)
	} else {
		to = int(startIdx + length - 1)
	}
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	if from >= to || from >= len(s) {
		return atomStr(""), nil
	}
	return atomStr(string(s[from:to])), nil
}

func fnSum(s values.Sequence) (values.Sequence, error) {
	if len(s) == 0 {
		return atomInt(0), nil
	}
	acc := new(big.Rat)
	for _, it := range s {
		ai, ok := it.(values.AtomicItem)
		if !ok {
			return nil, xerrors.New(xerrors.FORG0006, ast.Span{}, "fn:sum: non-atomic item in sequence")
		}
		r, ok := ai.Value.AsBigRat()
		if !ok {
			return nil, xerrors.New(xerrors.FORG0006, ast.Span{}, "fn:sum: non-numeric item in sequence")
		}
		acc.Add(acc, r)
	}
	return values.Single(values.AtomicItem{Value: values.NewDecimal(acc)}), nil
}

func fnRoot(s values.Sequence) (values.Sequence, error) {
	if len(s) != 1 {
		return nil, xerrors.New(xerrors.XPTY0004, ast.Span{}, "fn:root: context item is not a single node")
	}
	ni, ok := s[0].(values.NodeItem)
	if !ok {
		return nil, xerrors.New(xerrors.XPTY0004, ast.Span{}, "fn:root: context item is not a node")
	}
	n := ni.Value
	for {
		p, ok := n.Parent()
		if !ok {
			return values.Single(values.NodeItem{Value: n}), nil
		}
		n = p
	}
}

func fnName(s values.Sequence) (values.Sequence, error) {
	if len(s) != 1 {
		return atomStr(""), nil
	}
	ni, ok := s[0].(values.NodeItem)
	if !ok {
		return atomStr(""), nil
	}
	qn := ni.Value.Name()
	return atomStr(qn.Local), nil
}

func fnLocalName(s values.Sequence) (values.Sequence, error) {
	return fnName(s)
}

func sequenceStringValue(s values.Sequence) string {
	if len(s) == 0 {
		return ""
	}
	switch it := s[0].(type) {
	case values.AtomicItem:
		return it.Value.String()
	case values.NodeItem:
		return it.Value.StringValue()
	default:
		return ""
	}
}

func normalizeSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func translate(s, from, to string) string {
	fr := []rune(from)
	tr := []rune(to)
	var b strings.Builder
	for _, r := range s {
		idx := -1
		for i, fc := range fr {
			if fc == r {
				idx = i
				break
			}
		}
		if idx < 0 {
			b.WriteRune(r)
			continue
		}
		if idx < len(tr) {
			b.WriteRune(tr[idx])
		}
	}
	return b.String()
}

func numericUnary(s values.Sequence, ffn func(float64) float64, rfn func(*big.Rat) *big.Rat) (values.Sequence, error) {
	if len(s) != 1 {
		return nil, xerrors.New(xerrors.XPTY0004, ast.Span{}, "expected exactly one numeric argument")
	}
	ai, ok := s[0].(values.AtomicItem)
	if !ok {
		return nil, xerrors.New(xerrors.XPTY0004, ast.Span{}, "expected a numeric argument")
	}
	switch ai.Value.Type {
	case values.TInteger:
		return values.Single(values.AtomicItem{Value: ai.Value}), nil
	case values.TDecimal:
		r, _ := ai.Value.AsBigRat()
		return values.Single(values.AtomicItem{Value: values.NewDecimal(rfn(r))}), nil
	default:
		f, _ := ai.Value.AsFloat64()
		if ai.Value.Type == values.TFloat {
			return values.Single(values.AtomicItem{Value: values.NewFloat(float32(ffn(f)))}), nil
		}
		return values.Single(values.AtomicItem{Value: values.NewDouble(ffn(f))}), nil
	}
}

func ratCeil(r *big.Rat) *big.Rat {
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(r.Num(), r.Denom(), m)
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return new(big.Rat).SetInt(q)
}

func ratFloor(r *big.Rat) *big.Rat {
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(r.Num(), r.Denom(), m)
	return new(big.Rat).SetInt(q)
}

func ratRound(r *big.Rat) *big.Rat {
	half := big.NewRat(1, 2)
	shifted := new(big.Rat).Add(r, half)
	return ratFloor(shifted)
}

// ResolveName resolves an ast.Name against the static function namespace,
// defaulting unprefixed names to the fn: namespace, matching §4.A's
// default-function-namespace rule.
func ResolveName(n ast.Name) (space, local string) {
	if n.Space != "" {
		return n.Space, n.Local
	}
	return fnNS, n.Local
}
