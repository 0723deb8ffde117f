// Package xerrors implements the closed error-code taxonomy of this design
// and §7: every XPath/XSLT error the pipeline detects in an expression is
// a typed *Error carrying a code, a source Span, and a message. Internal
// invariant failures (in the compiler and VM) and a few host-facing
// conditions (for example an unknown named template in package xslt) are
// reported as plain errors.
//
// Rendering to a host is done through github.com/danos/mgmterror, the same
// structured-application-error library the reference design uses in schema/errors.go
// to turn internal validation failures into NETCONF-shaped errors, so a
// hosting system gets a conventional error surface without this package
// depending on any transport.
package xerrors

import (
	"fmt"

	"github.com/danos/mgmterror"
	"github.com/danos/utils/pathutil"

	"github.com/sdcio/xpath3/ast"
)

// Code is one of the closed set of XPath/XSLT error identifiers. Hosts
// render codes; this package never invents new ones outside the taxonomy
// named in this design plus the small set of internal codes noted there.
type Code string

const (
	// Static errors (parser / IR lowerer).
	XPST0003 Code = "XPST0003" // parse error
	XPST0008 Code = "XPST0008" // unknown variable
	XPST0017 Code = "XPST0017" // unknown function (name, arity)
	XPST0081 Code = "XPST0081" // unknown namespace prefix
	XPST0003ReservedName Code = "XPST0003" // reserved function name used as a call

	// Dynamic/context errors.
	XPDY0002 Code = "XPDY0002" // focus used outside focus-introducing scope
	XPDY0050 Code = "XPDY0050" // treat-as mismatch
	XPDY0130 Code = "XPDY0130" // resource bound exceeded (slots/captures)

	// Type errors.
	XPTY0004 Code = "XPTY0004" // wrong type for operator/operand

	// Function/arithmetic errors.
	FOAR0001 Code = "FOAR0001" // division by zero
	FOAR0002 Code = "FOAR0002" // numeric overflow / range too large
	FOAY0001 Code = "FOAY0001" // array index out of bounds
	FOTY0013 Code = "FOTY0013" // function item in atomization context
	FORG0001 Code = "FORG0001" // invalid value for cast
	FORG0006 Code = "FORG0006" // invalid argument type to a function
	FORX0002 Code = "FORX0002" // invalid regular expression
	FOCA0002 Code = "FOCA0002" // invalid lexical representation

	// XSLT.
	XTTE3180 Code = "XTTE3180" // template result does not match required type
	XTDE0450 Code = "XTDE0450" // circular template/import definition
	XTMM9000 Code = "XTMM9000" // xsl:message terminate="yes" / failed xsl:assert
)

// Error is the sum type every component returns on failure.
type Error struct {
	Code    Code
	Span    ast.Span
	Message string
	cause   error
}

func New(code Code, span ast.Span, format string, args ...interface{}) *Error {
	return &Error{Code: code, Span: span, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, span ast.Span, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Span: span, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Span, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// As reports whether err is (or wraps) an *Error with the given code.
func As(err error, code Code) bool {
	xe, ok := err.(*Error)
	return ok && xe.Code == code
}

// errorClass buckets a code into the mgmterror application-error shape
// that best matches its XPath error class, per this design's three classes
// (static / type / dynamic) plus assertion-like errors.
type errorClass int

const (
	classStatic errorClass = iota
	classType
	classDynamic
	classAssertion
)

func classify(c Code) errorClass {
	switch c {
	case XPST0003, XPST0008, XPST0017, XPST0081:
		return classStatic
	case XPTY0004, FOTY0013, XPDY0050, XTTE3180:
		return classType
	case XTDE0450, XTMM9000:
		return classAssertion
	default:
		return classDynamic
	}
}

// ToMgmtError renders e as a github.com/danos/mgmterror application error,
// the same family of error the reference design's schema/errors.go constructs, so a
// NETCONF/YANG-adjacent host can surface it without depending on this
// module's internals. The XPath error code travels as an Info tag under
// the Vyatta namespace (mirroring the reference design's own use of
// mgmterror.NewMgmtErrorInfoTag for carrying out-of-band diagnostic detail).
func (e *Error) ToMgmtError() error {
	pathStr := pathutil.Pathstr([]string{e.Span.String()})

	var merr interface {
		error
	}

	switch classify(e.Code) {
	case classStatic:
		se := mgmterror.NewOperationFailedApplicationError()
		se.Path = pathStr
		se.Message = e.Message
		se.Info = append(se.Info, *mgmterror.NewMgmtErrorInfoTag(
			mgmterror.VyattaNamespace, "xpath-error-code", string(e.Code)))
		merr = se
	case classType:
		te := mgmterror.NewInvalidValueApplicationError()
		te.Path = pathStr
		te.Message = e.Message
		te.Info = append(te.Info, *mgmterror.NewMgmtErrorInfoTag(
			mgmterror.VyattaNamespace, "xpath-error-code", string(e.Code)))
		merr = te
	case classAssertion:
		ae := mgmterror.NewOperationFailedApplicationError()
		ae.Path = pathStr
		ae.Message = e.Message
		ae.Info = append(ae.Info, *mgmterror.NewMgmtErrorInfoTag(
			mgmterror.VyattaNamespace, "xpath-error-code", string(e.Code)))
		merr = ae
	default:
		de := mgmterror.NewOperationFailedApplicationError()
		de.Path = pathStr
		de.Message = e.Message
		de.Info = append(de.Info, *mgmterror.NewMgmtErrorInfoTag(
			mgmterror.VyattaNamespace, "xpath-error-code", string(e.Code)))
		merr = de
	}

	return merr
}
