package parser

import (
	"testing"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/xerrors"
)

func mustParse(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func TestParseChildStepBuildsAxisStep(t *testing.T) {
	e := mustParse(t, "child::foo")
	path, ok := e.(*ast.Path)
	if !ok {
		t.Fatalf("expected *ast.Path, got %T", e)
	}
	if len(path.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(path.Steps))
	}
	step, ok := path.Steps[0].(*ast.Step)
	if !ok {
		t.Fatalf("expected *ast.Step, got %T", path.Steps[0])
	}
	if step.AxisSpec != ast.Child {
		t.Fatalf("AxisSpec = %v, want Child", step.AxisSpec)
	}
	if step.Test.Name.Local != "foo" {
		t.Fatalf("Test.Name.Local = %q, want foo", step.Test.Name.Local)
	}
}

func TestParseDoubleSlashMarksRootedSlashSlash(t *testing.T) {
	e := mustParse(t, "//foo")
	path, ok := e.(*ast.Path)
	if !ok {
		t.Fatalf("expected *ast.Path, got %T", e)
	}
	if path.Root != ast.RootedSlashSlash {
		t.Fatalf("Root = %v, want RootedSlashSlash", path.Root)
	}
	if len(path.Steps) != 1 {
		t.Fatalf("expected 1 step after the synthetic root expansion, got %d", len(path.Steps))
	}
}

func TestParseFunctionCallVsNameTest(t *testing.T) {
	e := mustParse(t, "foo()")
	if _, ok := e.(*ast.FunctionCall); !ok {
		t.Fatalf("foo() should parse as *ast.FunctionCall, got %T", e)
	}

	e = mustParse(t, "foo")
	path, ok := e.(*ast.Path)
	if !ok {
		t.Fatalf("bare name should parse as a single-step *ast.Path, got %T", e)
	}
	if _, ok := path.Steps[0].(*ast.Step); !ok {
		t.Fatalf("expected the bare name to parse as a name-test step, got %T", path.Steps[0])
	}
}

func TestParseMapConstructorSyntax(t *testing.T) {
	e := mustParse(t, `map{"a": 1}`)
	if _, ok := e.(*ast.MapCtor); !ok {
		t.Fatalf(`map{"a": 1} should parse as *ast.MapCtor, got %T`, e)
	}
}

func TestParseArrayConstructorSyntax(t *testing.T) {
	if _, ok := mustParse(t, "array{1,2}").(*ast.ArrayCtor); !ok {
		t.Fatalf("array{1,2} should parse as *ast.ArrayCtor")
	}
	if _, ok := mustParse(t, "array[1,2]").(*ast.ArrayCtor); !ok {
		t.Fatalf("array[1,2] should parse as *ast.ArrayCtor")
	}
}

func TestParseMapCallAsReservedNameIsRejected(t *testing.T) {
	_, err := Parse("map(1,2)", nil)
	if !xerrors.As(err, xerrors.XPST0003ReservedName) {
		t.Fatalf("map(1,2) err = %v, want XPST0003ReservedName", err)
	}
}

func TestParseArrayCallAsReservedNameIsRejected(t *testing.T) {
	_, err := Parse("array(1,2)", nil)
	if !xerrors.As(err, xerrors.XPST0003ReservedName) {
		t.Fatalf("array(1,2) err = %v, want XPST0003ReservedName", err)
	}
}

func TestParseNamespacePrefixResolution(t *testing.T) {
	ns := &NamespaceContext{Prefixes: map[string]string{"x": "urn:example"}}
	e, err := Parse("x:foo", ns)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	path := e.(*ast.Path)
	step := path.Steps[0].(*ast.Step)
	if step.Test.Name.Space != "urn:example" {
		t.Fatalf("resolved namespace = %q, want urn:example", step.Test.Name.Space)
	}
}

func TestParseUnknownPrefixStillParsesWithEmptyNamespace(t *testing.T) {
	e, err := Parse("x:foo", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	path := e.(*ast.Path)
	step := path.Steps[0].(*ast.Step)
	if step.Test.Name.Space != "" {
		t.Fatalf("unresolved prefix should leave an empty namespace, got %q", step.Test.Name.Space)
	}
}

func TestParseTrailingTokenIsAnError(t *testing.T) {
	_, err := Parse("1 2", nil)
	if err == nil {
		t.Fatalf("expected an error for trailing input")
	}
}
