package xslt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
)

// buildCatalog builds <catalog><book id="1">Go</book><book id="2">Rust</book></catalog>.
func buildCatalog() domgraph.Node {
	doc := memtree.NewDocument(1)
	catalog := doc.AddElement(domgraph.QName{Local: "catalog"})
	b1 := catalog.AddElement(domgraph.QName{Local: "book"})
	b1.SetAttr(domgraph.QName{Local: "id"}, "1")
	b1.AddText("Go")
	b2 := catalog.AddElement(domgraph.QName{Local: "book"})
	b2.SetAttr(domgraph.QName{Local: "id"}, "2")
	b2.AddText("Rust")
	doc.Finalize()
	return doc
}

func table(t *testing.T) *registry.Table {
	t.Helper()
	return registry.StandardLibrary()
}

func TestPatternMatchesByNameAndPriority(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()
	catalog := doc.Children()[0]
	book := catalog.Children()[0]

	bookPattern, err := CompilePattern("book", tbl)
	require.NoError(t, err)
	assert.True(t, bookPattern.Matches(tbl, book))
	assert.False(t, bookPattern.Matches(tbl, catalog))
	assert.Equal(t, 0.5, bookPattern.Priority())

	wildPattern, err := CompilePattern("*", tbl)
	require.NoError(t, err)
	assert.True(t, wildPattern.Matches(tbl, book))
	assert.Equal(t, -0.5, wildPattern.Priority())
}

func TestModeLookupPicksHighestPriority(t *testing.T) {
	t.Parallel()
	tbl := table(t)

	bookPattern, err := CompilePattern("book", tbl)
	require.NoError(t, err)
	wildPattern, err := CompilePattern("*", tbl)
	require.NoError(t, err)

	mode := NewMode("")
	mode.Add(&Template{Match: wildPattern, Body: []Instruction{&Text{Value: "wild"}}})
	mode.Add(&Template{Match: bookPattern, Body: []Instruction{&Text{Value: "book"}}})

	doc := buildCatalog()
	book := doc.Children()[0].Children()[0]
	tpl := mode.Lookup(tbl, book)
	require.NotNil(t, tpl)
	require.Len(t, tpl.Body, 1)
	text, ok := tpl.Body[0].(*Text)
	require.True(t, ok)
	assert.Equal(t, "book", text.Value)
}

func TestApplyValueOfAndForEach(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()

	bookPattern, err := CompilePattern("book", tbl)
	require.NoError(t, err)
	catalogPattern, err := CompilePattern("catalog", tbl)
	require.NoError(t, err)

	ss := NewStylesheet(tbl)
	ss.AddTemplate(&Template{
		Match: catalogPattern,
		Body: []Instruction{
			&ForEach{
				Select: "book",
				Body: []Instruction{
					&Element{
						Name: domgraph.QName{Local: "title"},
						Body: []Instruction{
							&Attribute{Name: domgraph.QName{Local: "ref"}, Select: "@id"},
							&ValueOf{Select: "text()"},
						},
					},
				},
			},
		},
	})
	ss.AddTemplate(&Template{Match: bookPattern, Body: []Instruction{&ValueOf{Select: "."}}})

	out, err := Apply(ss, doc.Children()[0], "")
	require.NoError(t, err)
	titles := out.Children()
	require.Len(t, titles, 2)
	assert.Equal(t, "title", titles[0].Name().Local)
	assert.Equal(t, "Go", titles[0].StringValue())
	assert.Equal(t, "1", titles[0].Attributes()[0].StringValue())
	assert.Equal(t, "Rust", titles[1].StringValue())
}

func TestApplyTemplatesBuiltinRuleCopiesText(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()
	ss := NewStylesheet(tbl)

	out, err := Apply(ss, doc.Children()[0], "")
	require.NoError(t, err)
	assert.Equal(t, "GoRust", out.StringValue())
}

func TestIfAndVariableScoping(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()
	bookPattern, err := CompilePattern("book", tbl)
	require.NoError(t, err)

	ss := NewStylesheet(tbl)
	ss.AddTemplate(&Template{
		Match: bookPattern,
		Body: []Instruction{
			&Variable{Name: "threshold", Select: "1"},
			&If{
				Test: "@id > $threshold",
				Then: []Instruction{&Text{Value: "big"}},
			},
		},
	})

	out, err := Apply(ss, doc.Children()[0].Children()[1], "")
	require.NoError(t, err)
	assert.Equal(t, "big", out.StringValue())
}

func TestCopyOfDeepCopiesSubtree(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()
	catalogPattern, err := CompilePattern("catalog", tbl)
	require.NoError(t, err)

	ss := NewStylesheet(tbl)
	ss.AddTemplate(&Template{
		Match: catalogPattern,
		Body:  []Instruction{&CopyOf{Select: "book[1]"}},
	})

	out, err := Apply(ss, doc.Children()[0], "")
	require.NoError(t, err)
	kids := out.Children()
	require.Len(t, kids, 1)
	assert.Equal(t, "book", kids[0].Name().Local)
	assert.Equal(t, "Go", kids[0].StringValue())
	assert.Equal(t, "1", kids[0].Attributes()[0].StringValue())
}

func TestAssertRaisesOnFailure(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()
	bookPattern, err := CompilePattern("book", tbl)
	require.NoError(t, err)

	ss := NewStylesheet(tbl)
	ss.AddTemplate(&Template{
		Match: bookPattern,
		Body:  []Instruction{&Assert{Test: "@id = '999'", Message: "unexpected id"}},
	})

	_, err = Apply(ss, doc.Children()[0].Children()[0], "")
	require.Error(t, err)
}

func TestCallTemplateWithParams(t *testing.T) {
	t.Parallel()
	tbl := table(t)
	doc := buildCatalog()

	ss := NewStylesheet(tbl)
	ss.AddTemplate(&Template{
		Name: "greet",
		Body: []Instruction{&ValueOf{Select: "$who"}},
	})

	params := map[string]values.Sequence{
		"who": values.Single(values.AtomicItem{Value: values.NewString("world")}),
	}
	out, err := CallTemplate(ss, "greet", doc.Children()[0], params)
	require.NoError(t, err)
	assert.Equal(t, "world", out.StringValue())
}
