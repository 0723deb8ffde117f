package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/vm"
)

func eval(t *testing.T, expr string, sctx *StaticContext, dctx *vm.Dynamic) values.Sequence {
	t.Helper()
	prog, err := Compile(expr, sctx)
	require.NoError(t, err)
	if dctx == nil {
		dctx = &vm.Dynamic{}
	}
	seq, err := prog.Eval(dctx)
	require.NoError(t, err)
	return seq
}

func ints(t *testing.T, seq values.Sequence) []int64 {
	t.Helper()
	var out []int64
	for _, it := range seq {
		a, ok := it.(values.AtomicItem)
		require.True(t, ok)
		i, ok := a.Value.AsBigInt()
		require.True(t, ok)
		out = append(out, i.Int64())
	}
	return out
}

// Scenario 1: arithmetic and associativity.
func TestScenarioArithmeticAssociativity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []int64{7}, ints(t, eval(t, "1 + 2 * 3", nil, nil)))
	assert.Equal(t, []int64{9}, ints(t, eval(t, "(1 + 2) * 3", nil, nil)))
}

// Scenario 2: range + for.
func TestScenarioRangeAndFor(t *testing.T) {
	t.Parallel()
	seq := eval(t, "for $x in 1 to 5 return $x + 2", nil, nil)
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, ints(t, seq))
}

// Scenario 3: quantified expression over two variable bindings.
func TestScenarioQuantifiedOverPairs(t *testing.T) {
	t.Parallel()
	seq := eval(t, "every $x in (2,3,4), $y in (0,1) satisfies $x gt $y", nil, nil)
	require.Len(t, seq, 1)
	b, _ := seq.EffectiveBooleanValue()
	assert.True(t, b)

	seq = eval(t, "every $x in (2,3,4), $y in (1,2) satisfies $x gt $y", nil, nil)
	b, _ = seq.EffectiveBooleanValue()
	assert.False(t, b)
}

func buildScenarioDoc(leafText bool) domgraph.Node {
	doc := memtree.NewDocument(1)
	d := doc.AddElement(domgraph.QName{Local: "doc"})
	a := d.AddElement(domgraph.QName{Local: "a"})
	b := d.AddElement(domgraph.QName{Local: "b"})
	if leafText {
		a.AddText("A")
		b.AddText("A")
	} else {
		b.AddElement(domgraph.QName{Local: "c"})
	}
	doc.Finalize()
	return doc
}

// Scenario 4: descendant path + local-name().
func TestScenarioDescendantLocalName(t *testing.T) {
	t.Parallel()
	doc := buildScenarioDoc(false)
	dctx := &vm.Dynamic{ContextItem: values.Single(values.NodeItem{Value: doc})}
	seq := eval(t, "descendant::*/local-name()", nil, dctx)
	var names []string
	for _, it := range seq {
		a := it.(values.AtomicItem)
		names = append(names, a.Value.String())
	}
	assert.Equal(t, []string{"doc", "a", "b", "c"}, names)
}

// Scenario 5: general vs. value comparison.
func TestScenarioGeneralVsValueComparison(t *testing.T) {
	t.Parallel()
	diffDoc := memtree.NewDocument(1)
	d := diffDoc.AddElement(domgraph.QName{Local: "doc"})
	a := d.AddElement(domgraph.QName{Local: "a"})
	a.AddText("A")
	b := d.AddElement(domgraph.QName{Local: "b"})
	b.AddText("B")
	diffDoc.Finalize()

	dctx := &vm.Dynamic{ContextItem: values.Single(values.NodeItem{Value: diffDoc})}
	seq := eval(t, "doc/a eq doc/b", nil, dctx)
	ok, _ := seq.EffectiveBooleanValue()
	assert.False(t, ok)

	sameDoc := buildScenarioDoc(true)
	dctx = &vm.Dynamic{ContextItem: values.Single(values.NodeItem{Value: sameDoc})}
	seq = eval(t, "doc/a eq doc/b", nil, dctx)
	ok, _ = seq.EffectiveBooleanValue()
	assert.True(t, ok)
}

// Scenario 6: cast and castable.
func TestScenarioCastAndCastable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []int64{1}, ints(t, eval(t, "'1' cast as xs:integer", nil, nil)))

	seq := eval(t, "'x' castable as xs:integer", nil, nil)
	ok, _ := seq.EffectiveBooleanValue()
	assert.False(t, ok)

	seq = eval(t, "() cast as xs:integer?", nil, nil)
	assert.Empty(t, seq)
}

// Scenario 7: partial application via placeholder arguments.
func TestScenarioPartialApplication(t *testing.T) {
	t.Parallel()
	seq := eval(t, "let $f := fn:concat(?, '!', ?) return $f('hi','there')", nil, nil)
	require.Len(t, seq, 1)
	a := seq[0].(values.AtomicItem)
	assert.Equal(t, "hi!there", a.Value.String())
}

// Scenario 8: predicate positional vs. boolean semantics.
func TestScenarioPredicatePositionalVsBoolean(t *testing.T) {
	t.Parallel()
	seq := eval(t, "(10,20,30)[2]", nil, nil)
	assert.Equal(t, []int64{20}, ints(t, seq))

	seq = eval(t, "(10,20,30)[. ge 20]", nil, nil)
	assert.Equal(t, []int64{20, 30}, ints(t, seq))
}

// External variable binding through StaticContext.Variables / Dynamic.ExternalVars.
func TestExternalVariableBinding(t *testing.T) {
	t.Parallel()
	sctx := &StaticContext{Variables: []string{"x", "y"}}
	prog, err := Compile("$x + $y", sctx)
	require.NoError(t, err)

	dctx := &vm.Dynamic{ExternalVars: map[int]values.Sequence{
		0: values.Single(values.AtomicItem{Value: values.NewInteger(4)}),
		1: values.Single(values.AtomicItem{Value: values.NewInteger(5)}),
	}}
	seq, err := prog.Eval(dctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ints(t, seq))
}

func TestRangeOverflowRaisesError(t *testing.T) {
	t.Parallel()
	_, err := Compile("1 to (2 * 2)", nil)
	require.NoError(t, err)

	prog, err := Compile("1 to (33554432 + 1)", nil)
	require.NoError(t, err)
	_, err = prog.Eval(&vm.Dynamic{})
	require.Error(t, err)
}
