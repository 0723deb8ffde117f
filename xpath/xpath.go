// Package xpath is the public facade tying lexer/parser/ir/compiler/vm
// into the two calls most callers need: Compile an expression once
// against a static context, then Eval it any number of times against a
// dynamic context. lexer/ast/ir/compiler/vm remain independently usable
// (and independently tested) for callers that need finer control --
// parse once, evaluate many times against different dynamic contexts,
// the same "build once, run repeatedly" shape the underlying pipeline
// packages were already built to support.
package xpath

import (
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/vm"
)

// StaticContext holds the namespace/prefix map and default namespaces an
// expression is parsed against, the externally-bound variable names it
// may reference, and the function table it compiles against.
type StaticContext struct {
	Prefixes                 map[string]string
	DefaultElementNamespace  string
	DefaultFunctionNamespace string

	// Variables declares, in order, the names of the external variables
	// the caller will bind at Eval time. A Dynamic's ExternalVars map
	// must use the same positional slot numbering (Variables[i] -> slot
	// i), mirroring ir.StaticContext.ExternalVars.
	Variables []string

	// Functions is the static function registry consulted at compile
	// time. A nil Functions falls back to registry.StandardLibrary().
	Functions *registry.Table
}

func (sc *StaticContext) functions() *registry.Table {
	if sc != nil && sc.Functions != nil {
		return sc.Functions
	}
	return registry.StandardLibrary()
}

func (sc *StaticContext) namespaceContext() *parser.NamespaceContext {
	if sc == nil {
		return nil
	}
	return &parser.NamespaceContext{
		Prefixes:          sc.Prefixes,
		DefaultElementNS:  sc.DefaultElementNamespace,
		DefaultFunctionNS: sc.DefaultFunctionNamespace,
	}
}

func (sc *StaticContext) variables() []string {
	if sc == nil {
		return nil
	}
	return sc.Variables
}

// Program is a compiled expression, ready to be run against any number
// of dynamic contexts.
type Program struct {
	prog  *compiler.Program
	table *registry.Table
}

// Compile parses, lowers and compiles expr against sctx, the full
// lexer->parser->ir->compiler pipeline in one call.
func Compile(expr string, sctx *StaticContext) (*Program, error) {
	table := sctx.functions()

	astExpr, err := parser.Parse(expr, sctx.namespaceContext())
	if err != nil {
		return nil, err
	}

	var defaultFunctionNS string
	if sctx != nil {
		defaultFunctionNS = sctx.DefaultFunctionNamespace
	}
	block, err := ir.Lower(astExpr, &ir.StaticContext{
		Functions:         table,
		DefaultFunctionNS: defaultFunctionNS,
		ExternalVars:      sctx.variables(),
	})
	if err != nil {
		return nil, err
	}

	prog, err := compiler.Compile(block)
	if err != nil {
		return nil, err
	}

	return &Program{prog: prog, table: table}, nil
}

// Eval runs the compiled program against dctx and returns its result
// sequence (or the first error the run produced).
func (p *Program) Eval(dctx *vm.Dynamic) (values.Sequence, error) {
	m := vm.New(p.prog, p.table, vm.Options{})
	return m.Run(dctx).Sequence()
}

// EvalTrace is Eval with instruction-dispatch tracing enabled (see
// vm.Options.Trace), for callers diagnosing a slow or misbehaving
// expression.
func (p *Program) EvalTrace(dctx *vm.Dynamic) (values.Sequence, error) {
	m := vm.New(p.prog, p.table, vm.Options{Trace: true})
	return m.Run(dctx).Sequence()
}
