package xerrors

import (
	"errors"
	"strings"
	"testing"

	"github.com/sdcio/xpath3/ast"
)

func TestNewFormatsMessage(t *testing.T) {
	sp := ast.Span{Start: 1, End: 4}
	e := New(XPTY0004, sp, "wrong type: %s", "integer")

	if e.Code != XPTY0004 {
		t.Fatalf("Code = %v, want %v", e.Code, XPTY0004)
	}
	if e.Span != sp {
		t.Fatalf("Span = %v, want %v", e.Span, sp)
	}
	if e.Message != "wrong type: integer" {
		t.Fatalf("Message = %q", e.Message)
	}
	if !strings.Contains(e.Error(), string(XPTY0004)) {
		t.Fatalf("Error() = %q, expected it to mention the code", e.Error())
	}
}

func TestWrapUnwrapsToCause(t *testing.T) {
	cause := errors.New("underlying failure")
	e := Wrap(FORG0001, ast.Span{}, cause, "cast failed")

	if !errors.Is(e, cause) {
		t.Fatalf("errors.Is(e, cause) = false, want true")
	}
}

func TestAsMatchesCodeOnly(t *testing.T) {
	e := New(XPST0017, ast.Span{}, "unknown function foo#1")

	if !As(e, XPST0017) {
		t.Fatalf("As(e, XPST0017) = false, want true")
	}
	if As(e, XPTY0004) {
		t.Fatalf("As(e, XPTY0004) = true, want false")
	}
	if As(errors.New("plain error"), XPST0017) {
		t.Fatalf("As on a non-*Error should be false")
	}
}

func TestToMgmtErrorReturnsNonNilAcrossClasses(t *testing.T) {
	codes := []Code{XPST0003, XPTY0004, XTDE0450, FOAR0001, FORG0006, FORX0002}
	for _, c := range codes {
		e := New(c, ast.Span{Start: 2, End: 5}, "boom for %s", c)
		merr := e.ToMgmtError()
		if merr == nil {
			t.Fatalf("ToMgmtError(%s) returned nil", c)
		}
		if merr.Error() == "" {
			t.Fatalf("ToMgmtError(%s).Error() was empty", c)
		}
	}
}

func TestClassifyBucketsNewCodesAsDynamic(t *testing.T) {
	for _, c := range []Code{FORG0006, FORX0002, FOAR0001, FOAR0002, FOAY0001} {
		if got := classify(c); got != classDynamic {
			t.Fatalf("classify(%s) = %v, want classDynamic", c, got)
		}
	}
	if got := classify(XPTY0004); got != classType {
		t.Fatalf("classify(XPTY0004) = %v, want classType", got)
	}
	if got := classify(XPST0003ReservedName); got != classStatic {
		t.Fatalf("classify(XPST0003ReservedName) = %v, want classStatic", got)
	}
}
