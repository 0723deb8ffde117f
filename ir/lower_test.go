package ir

import (
	"testing"

	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/xerrors"
)

func lowerSource(t *testing.T, src string) *Block {
	t.Helper()
	expr, err := parser.Parse(src, nil)
	if err != nil {
		t.Fatalf("parser.Parse(%q): %v", src, err)
	}
	block, err := Lower(expr, &StaticContext{Functions: registry.StandardLibrary()})
	if err != nil {
		t.Fatalf("Lower(%q): %v", src, err)
	}
	return block
}

// stepExprs collects every StepExpr binding anywhere in block, recursing
// into nested predicate/closure/if/for bodies.
func stepExprs(block *Block) []StepExpr {
	var out []StepExpr
	var walk func(b *Block)
	walk = func(b *Block) {
		if b == nil {
			return
		}
		for _, bind := range b.Bindings {
			switch e := bind.Expr.(type) {
			case StepExpr:
				out = append(out, e)
			case PredicateExpr:
				walk(e.PredBody)
			case IfExpr:
				walk(e.Then)
				walk(e.Else)
			case ForExpr:
				walk(e.Body)
			case QuantifiedExpr:
				walk(e.Test)
			case MakeClosure:
				walk(e.Body)
			case SimpleMapExpr:
				walk(e.Body)
			case VarBindExpr:
				// no nested block
			}
		}
	}
	walk(block)
	return out
}

func TestLowerStepSetsDedup(t *testing.T) {
	block := lowerSource(t, "child::foo")
	steps := stepExprs(block)
	if len(steps) != 1 {
		t.Fatalf("expected exactly one StepExpr, got %d", len(steps))
	}
	if !steps[0].Dedup {
		t.Fatalf("ordinary path step must set Dedup so the VM sorts/dedups its result")
	}
}

func TestLowerRootedDoubleSlashSetsDedupOnSyntheticDescendantStep(t *testing.T) {
	block := lowerSource(t, "//foo")
	steps := stepExprs(block)
	if len(steps) < 2 {
		t.Fatalf("expected at least 2 StepExpr (synthetic descendant-or-self + foo), got %d", len(steps))
	}
	for _, s := range steps {
		if !s.Dedup {
			t.Fatalf("every step of a rooted // path must set Dedup, got %+v", s)
		}
	}
}

func TestLowerUnknownVariableRaisesXPST0008(t *testing.T) {
	expr, err := parser.Parse("$nope", nil)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	_, err = Lower(expr, &StaticContext{Functions: registry.StandardLibrary()})
	if !xerrors.As(err, xerrors.XPST0008) {
		t.Fatalf("Lower($nope) err = %v, want XPST0008", err)
	}
}

func TestLowerUnknownFunctionRaisesXPST0017(t *testing.T) {
	expr, err := parser.Parse("not-a-real-function(1)", nil)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	_, err = Lower(expr, &StaticContext{Functions: registry.StandardLibrary()})
	if !xerrors.As(err, xerrors.XPST0017) {
		t.Fatalf("Lower(not-a-real-function(1)) err = %v, want XPST0017", err)
	}
}

func TestLowerExternalVarsBindPositionally(t *testing.T) {
	expr, err := parser.Parse("$a + $b", nil)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	block, err := Lower(expr, &StaticContext{
		Functions:    registry.StandardLibrary(),
		ExternalVars: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if block == nil {
		t.Fatalf("Lower returned a nil block")
	}
	if len(block.Bindings) < 2 {
		t.Fatalf("expected at least 2 bindings, got %d", len(block.Bindings))
	}
	for i, want := range []int{0, 1} {
		v, ok := block.Bindings[i].Expr.(VarExpr)
		if !ok || v.Slot != want {
			t.Fatalf("binding %d = %+v, want VarExpr{Slot: %d}", i, block.Bindings[i].Expr, want)
		}
	}
}
