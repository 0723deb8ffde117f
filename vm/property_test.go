package vm

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
)

func evalExpr(src string) (values.Sequence, error) {
	expr, err := parser.Parse(src, nil)
	if err != nil {
		return nil, err
	}
	block, err := ir.Lower(expr, &ir.StaticContext{Functions: registry.StandardLibrary(), DefaultFunctionNS: ""})
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(block)
	if err != nil {
		return nil, err
	}
	return New(prog, registry.StandardLibrary(), Options{}).Run(nil).Sequence()
}

// TestCastIntegerStringRoundTrip checks that casting an integer to
// string and back always recovers the original value, the same
// differential-round-trip shape as the reference design's property tests.
func TestCastIntegerStringRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(-1_000_000, 1_000_000).Draw(rt, "n")
		src := fmt.Sprintf("%d cast as xs:string cast as xs:integer", n)
		seq, err := evalExpr(src)
		if err != nil {
			rt.Fatalf("eval error: %v", err)
		}
		if len(seq) != 1 {
			rt.Fatalf("expected a single result item, got %d", len(seq))
		}
		got := itemStringValue(seq[0])
		if got != fmt.Sprintf("%d", n) {
			rt.Fatalf("round-trip mismatch: got %s, want %d", got, n)
		}
	})
}

// TestDedupSortIdempotent checks that running document-order
// deduplication twice over a node sequence with duplicates and
// scrambled order is idempotent and removes every duplicate, whatever
// subset and ordering rapid draws.
func TestDedupSortIdempotent(t *testing.T) {
	t.Parallel()
	doc := memtree.NewDocument(1)
	root := doc.AddElement(domgraph.QName{Local: "root"})
	for i := 0; i < 6; i++ {
		root.AddElement(domgraph.QName{Local: "c"})
	}
	doc.Finalize()
	children := root.Children()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, len(children)).Draw(rt, "n")
		pool := make([]int, len(children))
		for i := range pool {
			pool[i] = i
		}
		for i := len(pool) - 1; i > 0; i-- {
			j := rapid.IntRange(0, i).Draw(rt, fmt.Sprintf("swap%d", i))
			pool[i], pool[j] = pool[j], pool[i]
		}
		idxs := pool[:n]

		var seq values.Sequence
		for _, i := range idxs {
			seq = append(seq, values.NodeItem{Value: children[i]})
			seq = append(seq, values.NodeItem{Value: children[i]}) // duplicate each
		}

		m := &VM{}
		once := m.dedupSortNodes(seq, ast.Span{})
		twice := m.dedupSortNodes(once, ast.Span{})
		if len(once) != len(twice) {
			rt.Fatalf("dedup not idempotent: %d vs %d", len(once), len(twice))
		}
		if len(once) != n {
			rt.Fatalf("dedup did not remove duplicates: got %d, want %d", len(once), n)
		}
		for i := range once {
			if twice[i].(values.NodeItem).Value.Identity() != once[i].(values.NodeItem).Value.Identity() {
				rt.Fatalf("dedup not stable across repeated application at index %d", i)
			}
		}
	})
}
