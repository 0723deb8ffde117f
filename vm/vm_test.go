package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
)

func run(t *testing.T, src string, dctx *Dynamic) *Result {
	t.Helper()
	expr, err := parser.Parse(src, nil)
	require.NoError(t, err)
	block, err := ir.Lower(expr, &ir.StaticContext{Functions: registry.StandardLibrary(), DefaultFunctionNS: ""})
	require.NoError(t, err)
	prog, err := compiler.Compile(block)
	require.NoError(t, err)
	m := New(prog, registry.StandardLibrary(), Options{})
	return m.Run(dctx)
}

func TestArithmeticPromotion(t *testing.T) {
	t.Parallel()
	res := run(t, "1 + 2", nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "3", s)

	res = run(t, "1 div 2", nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "0.5", s)

	res = run(t, "5 idiv 2", nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "2", s)

	res = run(t, "5 mod 3", nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "2", s)
}

func TestValueAndGeneralComparison(t *testing.T) {
	t.Parallel()
	res := run(t, "1 eq 1", nil)
	b, err := res.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	res = run(t, "(1, 2, 3) = 2", nil)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	res = run(t, "(1, 2, 3) = 9", nil)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.False(t, b)
}

func TestRangeAndPredicate(t *testing.T) {
	t.Parallel()
	res := run(t, "(1 to 5)[position() = 3]", nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "3", s)

	res = run(t, "(10 to 20)[3]", nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "12", s)
}

func TestIfExpression(t *testing.T) {
	t.Parallel()
	res := run(t, "if (1 < 2) then 'yes' else 'no'", nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "yes", s)
}

func TestForExpression(t *testing.T) {
	t.Parallel()
	res := run(t, "for $x in (1, 2, 3) return $x * 2", nil)
	seq, err := res.Sequence()
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, "2", itemStringValue(seq[0]))
	assert.Equal(t, "6", itemStringValue(seq[2]))
}

func TestQuantifiedExpression(t *testing.T) {
	t.Parallel()
	res := run(t, "some $x in (1, 2, 3) satisfies $x = 2", nil)
	b, err := res.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	res = run(t, "every $x in (1, 2, 3) satisfies $x > 0", nil)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	res = run(t, "every $x in (1, 2, 3) satisfies $x > 1", nil)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.False(t, b)
}

func TestInlineFunctionClosure(t *testing.T) {
	t.Parallel()
	res := run(t, "let $f := function($x) { $x + 1 } return $f(41)", nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "42", s)
}

func TestCastAsAndCastableAs(t *testing.T) {
	t.Parallel()
	res := run(t, `"42" cast as xs:integer`, nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	res = run(t, `"abc" castable as xs:integer`, nil)
	b, err := res.Bool()
	require.NoError(t, err)
	assert.False(t, b)

	res = run(t, `"42" castable as xs:integer`, nil)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestMapAndArrayConstruction(t *testing.T) {
	t.Parallel()
	res := run(t, `map { "a": 1, "b": 2 }?a`, nil)
	s, err := res.String()
	require.NoError(t, err)
	assert.Equal(t, "1", s)

	res = run(t, `[10, 20, 30](2)`, nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "20", s)

	res = run(t, `[10, 20, 30]?(2)`, nil)
	s, err = res.String()
	require.NoError(t, err)
	assert.Equal(t, "20", s)
}

func buildDoc() (domgraph.Node, domgraph.Node) {
	doc := memtree.NewDocument(1)
	root := doc.AddElement(domgraph.QName{Local: "root"})
	a := root.AddElement(domgraph.QName{Local: "a"})
	a.SetAttr(domgraph.QName{Local: "id"}, "1")
	root.AddElement(domgraph.QName{Local: "b"})
	doc.Finalize()
	return doc, root
}

func TestStepAxisAndNodeTest(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "child::a", dctx)
	nodes, err := res.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].Name().Local)

	res = run(t, "child::*", dctx)
	nodes, err = res.Nodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	res = run(t, "a/@id", dctx)
	nodes, err = res.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "id", nodes[0].Name().Local)
}

func TestSimpleMap(t *testing.T) {
	t.Parallel()
	res := run(t, "(1, 2, 3) ! (. * 10)", nil)
	seq, err := res.Sequence()
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, "30", itemStringValue(seq[2]))
}

func TestUnionIntersectExcept(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "(child::a | child::b)", dctx)
	nodes, err := res.Nodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	res = run(t, "(child::* except child::b)", dctx)
	nodes, err = res.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].Name().Local)
}

func TestDivisionByZeroRaisesError(t *testing.T) {
	t.Parallel()
	res := run(t, "1 idiv 0", nil)
	_, err := res.Sequence()
	require.Error(t, err)
}
