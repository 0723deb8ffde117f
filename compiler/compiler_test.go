package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
)

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	expr, err := parser.Parse(src, nil)
	require.NoError(t, err)
	block, err := ir.Lower(expr, &ir.StaticContext{Functions: registry.StandardLibrary(), DefaultFunctionNS: ""})
	require.NoError(t, err)
	prog, err := Compile(block)
	require.NoError(t, err)
	return prog
}

func TestCompileLiteralAddition(t *testing.T) {
	t.Parallel()
	prog := compileSource(t, "1 + 2")
	main := prog.Chunks[prog.Main]
	var sawArith bool
	for _, in := range main.Insts {
		if in.Op == OpArith {
			sawArith = true
		}
	}
	assert.True(t, sawArith, "expected an OpArith instruction, got %v", main.Insts)
	assert.Equal(t, OpReturn, main.Insts[len(main.Insts)-1].Op)
}

func TestCompileValueVsGeneralComparison(t *testing.T) {
	t.Parallel()
	value := compileSource(t, "1 eq 2")
	general := compileSource(t, "1 = 2")

	assertHasOp := func(t *testing.T, p *Program, op Opcode) {
		t.Helper()
		for _, in := range p.Chunks[p.Main].Insts {
			if in.Op == op {
				return
			}
		}
		t.Fatalf("expected opcode %s in %v", op, p.Chunks[p.Main].Insts)
	}
	assertHasOp(t, value, OpCompareVal)
	assertHasOp(t, general, OpCompareGen)
}

func TestCompileStepWithPredicateEmitsNestedChunk(t *testing.T) {
	t.Parallel()
	prog := compileSource(t, "child::foo[1]")
	main := prog.Chunks[prog.Main]

	var predInst *Inst
	for i := range main.Insts {
		if main.Insts[i].Op == OpPredicate {
			predInst = &main.Insts[i]
		}
	}
	require.NotNil(t, predInst, "expected an OpPredicate instruction")
	require.Equal(t, 1, predInst.B, "bare integer predicate should set the numeric flag")
	require.Less(t, predInst.A, len(prog.Chunks))

	var sawStep bool
	for _, in := range main.Insts {
		if in.Op == OpStep {
			sawStep = true
		}
	}
	assert.True(t, sawStep)
}

func TestCompileIfBranchesToSeparateChunks(t *testing.T) {
	t.Parallel()
	prog := compileSource(t, "if (true()) then 1 else 2")
	main := prog.Chunks[prog.Main]

	var ifInst *Inst
	for i := range main.Insts {
		if main.Insts[i].Op == OpIf {
			ifInst = &main.Insts[i]
		}
	}
	require.NotNil(t, ifInst)
	assert.NotEqual(t, ifInst.A, ifInst.B, "then/else must compile to distinct chunks")
	assert.Less(t, ifInst.A, len(prog.Chunks))
	assert.Less(t, ifInst.B, len(prog.Chunks))
}

func TestCompileInlineFunctionClosure(t *testing.T) {
	t.Parallel()
	prog := compileSource(t, "function($x) { $x + 1 }(41)")
	main := prog.Chunks[prog.Main]

	var closureInst *Inst
	for i := range main.Insts {
		if main.Insts[i].Op == OpMakeClosure {
			closureInst = &main.Insts[i]
		}
	}
	require.NotNil(t, closureInst)
	assert.Equal(t, 1, closureInst.B, "single-parameter inline function")
	body := prog.Chunks[closureInst.A]
	var sawArith bool
	for _, in := range body.Insts {
		if in.Op == OpArith {
			sawArith = true
		}
	}
	assert.True(t, sawArith)
}

func TestConstantPoolDeduplicates(t *testing.T) {
	t.Parallel()
	prog := compileSource(t, "(1, 1, 1)")
	main := prog.Chunks[prog.Main]
	assert.Len(t, main.Consts, 1)
}
