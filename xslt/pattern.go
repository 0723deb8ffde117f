package xslt

import (
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/compiler"
	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/ir"
	"github.com/sdcio/xpath3/parser"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/vm"
)

// Pattern is a compiled xsl:template match pattern. A pattern is an
// ordinary XPath expression; matching re-evaluates it as a *select* from
// each candidate node outward to the document root and checks whether
// the original node appears (by identity) in the result: walk from the
// target node up through ancestors, re-select the pattern from each one,
// and see if the target is among the results. This lets the pattern
// compiler be nothing more than the ordinary expression pipeline, at the
// cost of a handful of redundant re-evaluations per candidate, acceptable
// for this bounded subset.
type Pattern struct {
	Source   string
	prog     *compiler.Program
	priority float64
}

// CompilePattern compiles src as a match pattern against table.
func CompilePattern(src string, table *registry.Table) (*Pattern, error) {
	expr, err := parser.Parse(src, nil)
	if err != nil {
		return nil, err
	}
	block, err := ir.Lower(expr, &ir.StaticContext{Functions: table})
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(block)
	if err != nil {
		return nil, err
	}
	return &Pattern{Source: src, prog: prog, priority: defaultPriority(expr)}, nil
}

// Priority returns the pattern's computed default priority, per the
// standard XSLT rule: an unwildcarded name test (0.5) is more specific
// than a partly wildcarded one such as prefix:* or *:local (-0.25), which
// is in turn more specific than a bare * or a kind test (both -0.5).
func (p *Pattern) Priority() float64 { return p.priority }

// Matches reports whether node satisfies the pattern, evaluating it as
// a select from node and each successive ancestor until the node itself
// turns up in a result (or the document root is exhausted).
func (p *Pattern) Matches(table *registry.Table, node domgraph.Node) bool {
	target := node.Identity()
	for cur := node; ; {
		m := vm.New(p.prog, table, vm.Options{})
		res := m.Run(&vm.Dynamic{ContextItem: values.Single(values.NodeItem{Value: cur})})
		if seq, err := res.Sequence(); err == nil {
			for _, it := range seq {
				if ni, ok := it.(values.NodeItem); ok && ni.Value.Identity() == target {
					return true
				}
			}
		}
		parent, ok := cur.Parent()
		if !ok {
			return false
		}
		cur = parent
	}
}

// defaultPriority implements the XSLT default-priority rule for the
// restricted pattern grammar this package supports: a path pattern's
// specificity is driven by its last step's node test.
func defaultPriority(expr ast.Expr) float64 {
	path, ok := expr.(*ast.Path)
	if !ok || len(path.Steps) == 0 {
		return 0.5
	}
	last := path.Steps[len(path.Steps)-1]
	step, ok := last.(*ast.Step)
	if !ok {
		return 0.5
	}
	switch step.Test.Kind {
	case ast.NameTest:
		switch {
		case step.Test.Name.Local == "*" && step.Test.Name.Space == "*":
			return -0.5
		case step.Test.Name.Local == "*" || step.Test.Name.Space == "*":
			return -0.25
		default:
			return 0.5
		}
	default:
		return -0.5
	}
}
