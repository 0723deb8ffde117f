package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/values"
)

func TestStandardLibraryStringFunctions(t *testing.T) {
	t.Parallel()
	tbl := StandardLibrary()
	d := &Dynamic{}

	f, ok := tbl.Lookup(fnNS, "concat", 2)
	assert.True(t, ok)
	res, err := f.Call(d, []values.Sequence{
		values.Single(values.AtomicItem{Value: values.NewString("foo")}),
		values.Single(values.AtomicItem{Value: values.NewString("bar")}),
	})
	assert.NoError(t, err)
	assert.Equal(t, "foobar", res[0].(values.AtomicItem).Value.String())

	f, ok = tbl.Lookup(fnNS, "substring", 2)
	assert.True(t, ok)
	res, err = f.Call(d, []values.Sequence{
		values.Single(values.AtomicItem{Value: values.NewString("motor car")}),
		values.Single(values.AtomicItem{Value: values.NewInteger(6)}),
	})
	assert.NoError(t, err)
	assert.Equal(t, "car", res[0].(values.AtomicItem).Value.String())
}

func TestStandardLibraryCount(t *testing.T) {
	t.Parallel()
	tbl := StandardLibrary()
	f, ok := tbl.Lookup(fnNS, "count", 1)
	assert.True(t, ok)
	res, err := f.Call(&Dynamic{}, []values.Sequence{{
		values.AtomicItem{Value: values.NewInteger(1)},
		values.AtomicItem{Value: values.NewInteger(2)},
	}})
	assert.NoError(t, err)
	assert.Equal(t, "2", res[0].(values.AtomicItem).Value.String())
}

func TestResolveNameDefaultsToFn(t *testing.T) {
	space, local := ResolveName(ast.Name{Local: "count"})
	assert.Equal(t, fnNS, space)
	assert.Equal(t, "count", local)
}
