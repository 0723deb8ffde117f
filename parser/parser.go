// Package parser implements a hand-written recursive-descent parser for
// XPath 3.1 expressions, consuming lexer.Tokens and producing ast.Expr
// trees. It is grounded in shape on the reference design's XPath grammar
// (xpath/common_lexer.go's token set mirrors the productions the
// goyacc grammar consumes) but is written as ordinary recursive descent
// with precedence climbing for binary operators, the style shown in
// other_examples/754b29e5_..._xpath_parser.go, since this module has no
// goyacc-generated grammar to drive.
package parser

import (
	"fmt"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/lexer"
	"github.com/sdcio/xpath3/xerrors"
)

// NamespaceContext resolves prefixes and default namespaces during
// parsing, the static piece of the static context this design requires
// to exist before any expression can be compiled.
type NamespaceContext struct {
	Prefixes            map[string]string
	DefaultElementNS     string
	DefaultFunctionNS    string
}

func (nc *NamespaceContext) resolve(prefix string) (string, bool) {
	if nc == nil || nc.Prefixes == nil {
		return "", false
	}
	uri, ok := nc.Prefixes[prefix]
	return uri, ok
}

// Parser holds the token stream and parse state. lookahead buffers tokens
// read past p.tok so the parser can resolve multi-token ambiguities (a
// prefixed EQName followed by "(" is a function call; otherwise, in step
// position, it is a name test) without backtracking.
type Parser struct {
	lex       *lexer.Lexer
	tok       lexer.Token
	lookahead []lexer.Token
	ns        *NamespaceContext
	err       error
}

func New(src string, ns *NamespaceContext) *Parser {
	p := &Parser{lex: lexer.New(src), ns: ns}
	p.advance()
	return p
}

// Parse parses a complete XPath expression and checks for trailing input.
func Parse(src string, ns *NamespaceContext) (ast.Expr, error) {
	p := New(src, ns)
	e := p.parseExpr()
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.Kind != lexer.EOF {
		return nil, p.errorf("unexpected trailing token %s", p.tok.Kind)
	}
	return e, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	if p.err == nil {
		p.err = fmt.Errorf("parse error at %d: %s", p.tok.Start, fmt.Sprintf(format, args...))
	}
	return p.err
}

// errorCode raises a typed xerrors.Error at the current token's position,
// for parse failures the closed error-code taxonomy names explicitly
// rather than a generic parse error.
func (p *Parser) errorCode(code xerrors.Code, format string, args ...interface{}) error {
	if p.err == nil {
		p.err = xerrors.New(code, p.span(p.tok.Start), format, args...)
	}
	return p.err
}

func (p *Parser) advance() {
	if len(p.lookahead) > 0 {
		p.tok = p.lookahead[0]
		p.lookahead = p.lookahead[1:]
		return
	}
	p.tok = p.lex.Next()
	if p.tok.Kind == lexer.Error {
		p.errorf("%s", p.tok.Text)
	}
}

// peekAt returns the token n positions ahead of p.tok (peekAt(1) is the
// immediate next token, i.e. what peek2() used to return).
func (p *Parser) peekAt(n int) lexer.Token {
	for len(p.lookahead) < n {
		p.lookahead = append(p.lookahead, p.lex.Next())
	}
	return p.lookahead[n-1]
}

func (p *Parser) peek2() lexer.Token { return p.peekAt(1) }

func (p *Parser) expect(k lexer.Kind) (lexer.Token, bool) {
	if p.tok.Kind != k {
		p.errorf("expected %s, got %s %q", k, p.tok.Kind, p.tok.Text)
		return lexer.Token{}, false
	}
	tok := p.tok
	p.advance()
	return tok, true
}

func (p *Parser) span(start int) ast.Span { return ast.Span{Start: start, End: p.tok.Start} }

// --- Expr ::= ExprSingle ("," ExprSingle)* ---

func (p *Parser) parseExpr() ast.Expr {
	start := p.tok.Start
	first := p.parseExprSingle()
	if p.tok.Kind != lexer.Comma {
		return first
	}
	// A top-level comma builds a sequence via the Comma binary op,
	// left-associative, matching the reference design's program.go sequence
	// construction via repeated OpComma instructions.
	result := first
	for p.tok.Kind == lexer.Comma {
		p.advance()
		rhs := p.parseExprSingle()
		result = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpConcat, Left: result, Right: rhs}
	}
	return result
}

func (p *Parser) parseExprSingle() ast.Expr {
	switch p.tok.Kind {
	case lexer.KwLet:
		return p.parseLet()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwSome, lexer.KwEvery:
		return p.parseQuantified()
	default:
		return p.parseOrExpr()
	}
}

func (p *Parser) parseLet() ast.Expr {
	start := p.tok.Start
	p.advance() // let
	var bindings []ast.Binding
	for {
		if _, ok := p.expect(lexer.Dollar); !ok {
			return nil
		}
		name := p.parseEQName()
		if _, ok := p.expect(lexer.Assign); !ok {
			return nil
		}
		e := p.parseExprSingle()
		bindings = append(bindings, ast.Binding{Name: name, Expr: e})
		if p.tok.Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.KwReturn); !ok {
		return nil
	}
	body := p.parseExprSingle()
	return &ast.Let{Base: ast.NewBase(p.span(start)), Bindings: bindings, Body: body}
}

func (p *Parser) parseForClauses() []ast.ForClause {
	var clauses []ast.ForClause
	for {
		if _, ok := p.expect(lexer.Dollar); !ok {
			return nil
		}
		name := p.parseEQName()
		var posVar ast.Name
		if p.tok.Kind == lexer.KwAt {
			p.advance()
			if _, ok := p.expect(lexer.Dollar); !ok {
				return nil
			}
			posVar = p.parseEQName()
		}
		if _, ok := p.expect(lexer.KwIn); !ok {
			return nil
		}
		e := p.parseExprSingle()
		clauses = append(clauses, ast.ForClause{Name: name, PosVar: posVar, Expr: e})
		if p.tok.Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	return clauses
}

func (p *Parser) parseFor() ast.Expr {
	start := p.tok.Start
	p.advance() // for
	clauses := p.parseForClauses()
	if _, ok := p.expect(lexer.KwReturn); !ok {
		return nil
	}
	body := p.parseExprSingle()
	return &ast.For{Base: ast.NewBase(p.span(start)), Clauses: clauses, Body: body}
}

func (p *Parser) parseIf() ast.Expr {
	start := p.tok.Start
	p.advance() // if
	if _, ok := p.expect(lexer.LParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if _, ok := p.expect(lexer.RParen); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.KwThen); !ok {
		return nil
	}
	then := p.parseExprSingle()
	if _, ok := p.expect(lexer.KwElse); !ok {
		return nil
	}
	els := p.parseExprSingle()
	return &ast.If{Base: ast.NewBase(p.span(start)), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseQuantified() ast.Expr {
	start := p.tok.Start
	quant := ast.Some
	if p.tok.Kind == lexer.KwEvery {
		quant = ast.Every
	}
	p.advance()
	clauses := p.parseForClauses()
	if _, ok := p.expect(lexer.KwSatisfies); !ok {
		return nil
	}
	test := p.parseExprSingle()
	return &ast.Quantified{Base: ast.NewBase(p.span(start)), Quant: quant, Clauses: clauses, Test: test}
}

// --- Binary precedence ladder: or, and, comparisons (non-assoc), range,
// additive, multiplicative, union, intersect/except, instance-of, treat,
// castable, cast, unary, simple-map, path. ---

func (p *Parser) parseOrExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseAndExpr()
	for p.tok.Kind == lexer.KwOr {
		p.advance()
		right := p.parseAndExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAndExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseComparisonExpr()
	for p.tok.Kind == lexer.KwAnd {
		p.advance()
		right := p.parseComparisonExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

// generalCompOps holds the five symbolic comparison operators (=, !=, <,
// <=, >, >=), which perform XPath *general* comparison: existentially
// quantified over the cross product of the two operand sequences after
// atomization.
var generalCompOps = map[lexer.Kind]ast.BinOp{
	lexer.Eq: ast.OpGenEq, lexer.NotEq: ast.OpGenNe, lexer.Lt: ast.OpGenLt,
	lexer.Le: ast.OpGenLe, lexer.Gt: ast.OpGenGt, lexer.Ge: ast.OpGenGe,
}

// valueCompOps holds the six keyword comparison operators (eq, ne, lt,
// le, gt, ge), which perform XPath *value* comparison: both operands
// must be at most a single item, compared directly with no existential
// quantification.
var valueCompOps = map[lexer.Kind]ast.BinOp{
	lexer.KwValueEq: ast.OpEq, lexer.KwValueNe: ast.OpNe, lexer.KwValueLt: ast.OpLt,
	lexer.KwValueLe: ast.OpLe, lexer.KwValueGt: ast.OpGt, lexer.KwValueGe: ast.OpGe,
}

// parseComparisonExpr enforces "at most one comparison operator at the
// top level" (no chained `a = b = c`), exactly as required by this design's
// grammar note and the XPath 3.1 spec's non-associative comparisons.
func (p *Parser) parseComparisonExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseRangeExpr()
	if op, ok := generalCompOps[p.tok.Kind]; ok {
		p.advance()
		right := p.parseRangeExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
	}
	if op, ok := valueCompOps[p.tok.Kind]; ok {
		p.advance()
		right := p.parseRangeExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
	}
	if p.tok.Kind == lexer.KwIs {
		p.advance()
		right := p.parseRangeExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpIs, Left: left, Right: right}
	}
	if p.tok.Kind == lexer.Precedes {
		p.advance()
		right := p.parseRangeExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpPrecedes, Left: left, Right: right}
	}
	if p.tok.Kind == lexer.Follows {
		p.advance()
		right := p.parseRangeExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpFollows, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRangeExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseAdditiveExpr()
	if p.tok.Kind == lexer.KwTo {
		p.advance()
		right := p.parseAdditiveExpr()
		return &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpTo, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditiveExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseMultiplicativeExpr()
	for p.tok.Kind == lexer.Plus || p.tok.Kind == lexer.Minus {
		op := ast.OpAdd
		if p.tok.Kind == lexer.Minus {
			op = ast.OpSub
		}
		p.advance()
		right := p.parseMultiplicativeExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicativeExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseUnionExpr()
	for {
		var op ast.BinOp
		switch p.tok.Kind {
		case lexer.Star:
			op = ast.OpMul
		case lexer.KwDiv:
			op = ast.OpDiv
		case lexer.KwIDiv:
			op = ast.OpIDiv
		case lexer.KwMod:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnionExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnionExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseIntersectExceptExpr()
	for p.tok.Kind == lexer.Pipe || p.tok.Kind == lexer.KwUnion {
		p.advance()
		right := p.parseIntersectExceptExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpUnion, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseIntersectExceptExpr() ast.Expr {
	start := p.tok.Start
	left := p.parseInstanceOfExpr()
	for p.tok.Kind == lexer.KwIntersect || p.tok.Kind == lexer.KwExcept {
		op := ast.OpIntersect
		if p.tok.Kind == lexer.KwExcept {
			op = ast.OpExcept
		}
		p.advance()
		right := p.parseInstanceOfExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseInstanceOfExpr() ast.Expr {
	start := p.tok.Start
	e := p.parseTreatExpr()
	if p.tok.Kind == lexer.KwInstance {
		p.advance()
		if _, ok := p.expect(lexer.KwOf); !ok {
			return nil
		}
		st := p.parseSequenceType()
		return &ast.Apply{Base: ast.NewBase(p.span(start)), Kind: ast.InstanceOf, Operand: e, TypeDecl: st}
	}
	return e
}

func (p *Parser) parseTreatExpr() ast.Expr {
	start := p.tok.Start
	e := p.parseCastableExpr()
	if p.tok.Kind == lexer.KwTreat {
		p.advance()
		if _, ok := p.expect(lexer.KwAs); !ok {
			return nil
		}
		st := p.parseSequenceType()
		return &ast.Apply{Base: ast.NewBase(p.span(start)), Kind: ast.TreatAs, Operand: e, TypeDecl: st}
	}
	return e
}

func (p *Parser) parseCastableExpr() ast.Expr {
	start := p.tok.Start
	e := p.parseCastExpr()
	if p.tok.Kind == lexer.KwCastable {
		p.advance()
		if _, ok := p.expect(lexer.KwAs); !ok {
			return nil
		}
		st := p.parseSingleType()
		return &ast.Apply{Base: ast.NewBase(p.span(start)), Kind: ast.CastableAs, Operand: e, TypeDecl: st}
	}
	return e
}

func (p *Parser) parseCastExpr() ast.Expr {
	start := p.tok.Start
	e := p.parseUnaryExpr()
	if p.tok.Kind == lexer.KwCast {
		p.advance()
		if _, ok := p.expect(lexer.KwAs); !ok {
			return nil
		}
		st := p.parseSingleType()
		return &ast.Apply{Base: ast.NewBase(p.span(start)), Kind: ast.CastAs, Operand: e, TypeDecl: st}
	}
	return e
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	start := p.tok.Start
	if p.tok.Kind == lexer.Plus || p.tok.Kind == lexer.Minus {
		op := ast.UnaryPlus
		if p.tok.Kind == lexer.Minus {
			op = ast.UnaryMinus
		}
		p.advance()
		operand := p.parseUnaryExpr()
		return &ast.Unary{Base: ast.NewBase(p.span(start)), Op: op, Operand: operand}
	}
	return p.parseSimpleMapExpr()
}

func (p *Parser) parseSimpleMapExpr() ast.Expr {
	start := p.tok.Start
	left := p.parsePathExpr()
	for p.tok.Kind == lexer.Bang {
		p.advance()
		right := p.parsePathExpr()
		left = &ast.Binary{Base: ast.NewBase(p.span(start)), Op: ast.OpSimpleMap, Left: left, Right: right}
	}
	return left
}

// parseSingleType parses AtomicType "?"? for cast/castable.
func (p *Parser) parseSingleType() ast.SequenceType {
	name := p.parseEQName()
	occ := ast.OccurrenceOne
	if p.tok.Kind == lexer.Question {
		p.advance()
		occ = ast.OccurrenceOptional
	}
	return ast.SequenceType{Item: ast.ItemType{Kind: ast.ItemTypeAtomic, Atomic: ast.AtomicTypeRef{Name: name}}, Occurrence: occ}
}
