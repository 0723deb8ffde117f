package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// TestStepDedupsAcrossSiblings guards against every path step emitting
// one copy of a node per input node that reaches it: two children of the
// same parent both stepping parent::* must collapse to a single result.
func TestStepDedupsAcrossSiblings(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "*/parent::*", dctx)
	nodes, err := res.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1, "parent of every child should dedup to the single shared parent")
	assert.Equal(t, "root", nodes[0].Name().Local)
}

func TestNodeCompareEmptySequenceYieldsEmpty(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "child::nonexistent is child::a", dctx)
	seq, err := res.Sequence()
	require.NoError(t, err)
	assert.Empty(t, seq, "`is` with an empty operand must yield the empty sequence, not a type error")

	res = run(t, "child::a is child::nonexistent", dctx)
	seq, err = res.Sequence()
	require.NoError(t, err)
	assert.Empty(t, seq)

	res = run(t, "child::nonexistent << child::a", dctx)
	seq, err = res.Sequence()
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestNodeCompareMultiItemOperandStillErrors(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "child::* is child::a", dctx)
	_, err := res.Sequence()
	require.Error(t, err)
}

// TestRegistryErrorCodePropagatesThroughCallStatic guards against every
// registry function failure being mislabeled as FOAR0001 (division by
// zero): fn:matches' invalid-regex failure must surface as FORX0002.
func TestRegistryErrorCodePropagatesThroughCallStatic(t *testing.T) {
	t.Parallel()
	res := run(t, `matches("abc", "(")`, nil)
	_, err := res.Sequence()
	require.Error(t, err)
	assert.True(t, xerrors.As(err, xerrors.FORX0002), "expected FORX0002, got %v", err)
}

// TestGeneralCompareCoercesUntypedToOtherSideType guards against
// coerceForGeneralCompare only handling the numeric-vs-untyped case: an
// attribute's untypedAtomic string value must still compare equal to a
// typed integer literal.
func TestGeneralCompareCoercesUntypedToOtherSideType(t *testing.T) {
	t.Parallel()
	_, root := buildDoc()
	dctx := &Dynamic{ContextItem: values.Single(values.NodeItem{Value: root})}

	res := run(t, "a/@id = 1", dctx)
	b, err := res.Bool()
	require.NoError(t, err)
	assert.True(t, b, "untypedAtomic attribute value \"1\" should coerce to integer 1 and compare equal")

	res = run(t, "a/@id = 2", dctx)
	b, err = res.Bool()
	require.NoError(t, err)
	assert.False(t, b)
}
