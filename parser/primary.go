package parser

import (
	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/lexer"
	"github.com/sdcio/xpath3/xerrors"
)

// parsePostfixExpr parses PrimaryExpr (Predicate | ArgumentList | Lookup)*
// and the trailing "=>" arrow-operator chain, which binds looser than
// predicates/lookups but tighter than the rest of the path ladder.
func (p *Parser) parsePostfixExpr() ast.Expr {
	start := p.tok.Start
	e := p.parsePrimaryExpr()
	for {
		switch p.tok.Kind {
		case lexer.LBracket:
			p.advance()
			test := p.parseExpr()
			p.expect(lexer.RBracket)
			e = &ast.Predicate{Base: ast.NewBase(p.span(start)), Target: e, Test: test}
		case lexer.LParen:
			args := p.parseArgumentList()
			e = &ast.DynamicCall{Base: ast.NewBase(p.span(start)), Callee: e, Args: args}
		case lexer.Question:
			e = p.parseLookupOn(e, start)
		case lexer.Arrow:
			p.advance()
			e = p.parseArrowTarget(e, start)
		default:
			return e
		}
	}
}

func (p *Parser) parseArrowTarget(source ast.Expr, start int) ast.Expr {
	if p.tok.Kind == lexer.Dollar {
		p.advance()
		name := p.parseEQName()
		args := p.parseArgumentList()
		return &ast.Arrow{Base: ast.NewBase(p.span(start)), Source: source, Callee: &ast.VarRef{Name: name}, Args: args}
	}
	if p.tok.Kind == lexer.LParen {
		p.advance()
		callee := p.parseExpr()
		p.expect(lexer.RParen)
		args := p.parseArgumentList()
		return &ast.Arrow{Base: ast.NewBase(p.span(start)), Source: source, Callee: callee, Args: args}
	}
	name := p.parseEQName()
	args := p.parseArgumentList()
	return &ast.Arrow{Base: ast.NewBase(p.span(start)), Source: source, Name: name, Args: args}
}

func (p *Parser) parseLookupOn(target ast.Expr, start int) ast.Expr {
	p.advance() // ?
	switch p.tok.Kind {
	case lexer.Star:
		p.advance()
		return &ast.Lookup{Base: ast.NewBase(p.span(start)), Target: target, Kind: ast.LookupWildcard}
	case lexer.NCName:
		name := p.tok.Text
		p.advance()
		return &ast.Lookup{Base: ast.NewBase(p.span(start)), Target: target, Kind: ast.LookupKey, KeyName: name}
	case lexer.IntegerLiteral:
		idx := p.tok.Text
		p.advance()
		return &ast.Lookup{Base: ast.NewBase(p.span(start)), Target: target, Kind: ast.LookupKey, KeyIndex: idx}
	case lexer.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RParen)
		return &ast.Lookup{Base: ast.NewBase(p.span(start)), Target: target, Kind: ast.LookupParen, KeyExpr: e}
	default:
		p.errorf("expected lookup key after '?'")
		return target
	}
}

// parseArgumentList parses "(" (Argument ("," Argument)*)? ")", where an
// Argument may be "?" (an argument placeholder for partial function
// application, see §4.B).
func (p *Parser) parseArgumentList() []ast.Expr {
	p.expect(lexer.LParen)
	var args []ast.Expr
	if p.tok.Kind == lexer.RParen {
		p.advance()
		return args
	}
	for {
		if p.tok.Kind == lexer.Question && p.peek2().Kind != lexer.NCName && p.peek2().Kind != lexer.IntegerLiteral && p.peek2().Kind != lexer.LParen && p.peek2().Kind != lexer.Star {
			start := p.tok.Start
			p.advance()
			args = append(args, &placeholderMarker{Base: ast.NewBase(p.span(start))})
		} else {
			args = append(args, p.parseExprSingle())
		}
		if p.tok.Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	p.expect(lexer.RParen)
	return args
}

// placeholderMarker is a parser-internal sentinel for a bare "?" argument
// placeholder; the ir lowerer rewrites any FunctionCall containing one
// into a synthetic inline function per §4.B's partial-application rule.
type placeholderMarker struct{ ast.Base }

func (*placeholderMarker) exprNode() {}

// IsPlaceholder reports whether e is a bare argument placeholder "?".
func IsPlaceholder(e ast.Expr) bool {
	_, ok := e.(*placeholderMarker)
	return ok
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	start := p.tok.Start
	switch p.tok.Kind {
	case lexer.IntegerLiteral:
		text := p.tok.Text
		p.advance()
		return &ast.IntLit{Base: ast.NewBase(p.span(start)), Text: text}
	case lexer.DecimalLiteral:
		text := p.tok.Text
		p.advance()
		return &ast.DecimalLit{Base: ast.NewBase(p.span(start)), Text: text}
	case lexer.DoubleLiteral:
		text := p.tok.Text
		p.advance()
		return &ast.DoubleLit{Base: ast.NewBase(p.span(start)), Text: text}
	case lexer.StringLiteral:
		text := p.tok.Text
		p.advance()
		return &ast.StringLit{Base: ast.NewBase(p.span(start)), Value: text}
	case lexer.Dollar:
		p.advance()
		name := p.parseEQName()
		return &ast.VarRef{Base: ast.NewBase(p.span(start)), Name: name}
	case lexer.Dot:
		p.advance()
		return &ast.ContextItem{Base: ast.NewBase(p.span(start))}
	case lexer.LParen:
		p.advance()
		if p.tok.Kind == lexer.RParen {
			p.advance()
			return &ast.Paren{Base: ast.NewBase(p.span(start))}
		}
		inner := p.parseExpr()
		p.expect(lexer.RParen)
		return &ast.Paren{Base: ast.NewBase(p.span(start)), Inner: inner}
	case lexer.Star:
		// Wildcard name test appearing where a primary is expected only
		// happens inside step parsing; fall through to a name test step
		// handled by the caller. Here treat as an error primary.
		p.errorf("unexpected '*'")
		return nil
	case lexer.KwFunction:
		return p.parseInlineFunction()
	case lexer.KwMap:
		if p.peek2().Kind == lexer.LBrace {
			return p.parseMapCtor()
		}
		p.errorCode(xerrors.XPST0003ReservedName, "%q is a reserved constructor name and cannot be used as a function call", "map")
		return nil
	case lexer.KwArray:
		if p.peek2().Kind == lexer.LBrace || p.peek2().Kind == lexer.LBracket {
			return p.parseArrayCtor()
		}
		p.errorCode(xerrors.XPST0003ReservedName, "%q is a reserved constructor name and cannot be used as a function call", "array")
		return nil
	case lexer.LBracket:
		return p.parseSquareArray()
	case lexer.Hash:
		p.advance()
		return p.parseNamedFunctionRef()
	case lexer.NCName, lexer.BracedURILiteral:
		return p.parseFunctionCallOrName()
	default:
		p.errorf("unexpected token %s %q in expression", p.tok.Kind, p.tok.Text)
		return nil
	}
}

// parseFunctionCallOrName disambiguates a bare/prefixed name: if followed
// by "(" it is a FunctionCall, otherwise it would be a name test (only
// valid in step position, handled earlier by parseNodeTest), so at the
// primary-expression level a bare name must be a function call.
func (p *Parser) parseFunctionCallOrName() ast.Expr {
	start := p.tok.Start
	name := p.parseEQName()
	args := p.parseArgumentList()
	placeholders := 0
	for _, a := range args {
		if IsPlaceholder(a) {
			placeholders++
		}
	}
	return &ast.FunctionCall{Base: ast.NewBase(p.span(start)), Name: name, Args: args, PlaceholderN: placeholders}
}

func (p *Parser) parseNamedFunctionRef() ast.Expr {
	start := p.tok.Start
	name := p.parseEQName()
	p.expect(lexer.Star)
	arityTok, _ := p.expect(lexer.IntegerLiteral)
	arity := 0
	for _, c := range arityTok.Text {
		arity = arity*10 + int(c-'0')
	}
	return &ast.NamedFunctionRef{Base: ast.NewBase(p.span(start)), Name: name, Arity: arity}
}

func (p *Parser) parseInlineFunction() ast.Expr {
	start := p.tok.Start
	p.advance() // function
	p.expect(lexer.LParen)
	var params []ast.Param
	for p.tok.Kind != lexer.RParen {
		p.expect(lexer.Dollar)
		name := p.parseEQName()
		var decl *ast.SequenceType
		if p.tok.Kind == lexer.KwAs {
			p.advance()
			st := p.parseSequenceType()
			decl = &st
		}
		params = append(params, ast.Param{Name: name, TypeDecl: decl})
		if p.tok.Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	p.expect(lexer.RParen)
	var ret *ast.SequenceType
	if p.tok.Kind == lexer.KwAs {
		p.advance()
		st := p.parseSequenceType()
		ret = &st
	}
	p.expect(lexer.LBrace)
	body := p.parseExpr()
	p.expect(lexer.RBrace)
	return &ast.InlineFunction{Base: ast.NewBase(p.span(start)), Params: params, ReturnType: ret, Body: body}
}

func (p *Parser) parseMapCtor() ast.Expr {
	start := p.tok.Start
	p.advance() // map
	p.expect(lexer.LBrace)
	var entries []ast.MapEntry
	for p.tok.Kind != lexer.RBrace {
		key := p.parseExprSingle()
		p.expect(lexer.Colon)
		val := p.parseExprSingle()
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.tok.Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	p.expect(lexer.RBrace)
	return &ast.MapCtor{Base: ast.NewBase(p.span(start)), Entries: entries}
}

func (p *Parser) parseArrayCtor() ast.Expr {
	start := p.tok.Start
	p.advance() // array
	if p.tok.Kind == lexer.LBrace {
		p.advance()
		var members []ast.Expr
		if p.tok.Kind != lexer.RBrace {
			members = append(members, p.parseExprSingle())
			for p.tok.Kind == lexer.Comma {
				p.advance()
				members = append(members, p.parseExprSingle())
			}
		}
		p.expect(lexer.RBrace)
		return &ast.ArrayCtor{Base: ast.NewBase(p.span(start)), Kind: ast.CurlyArray, Members: members}
	}
	p.expect(lexer.LBracket)
	var members []ast.Expr
	if p.tok.Kind != lexer.RBracket {
		members = append(members, p.parseExprSingle())
		for p.tok.Kind == lexer.Comma {
			p.advance()
			members = append(members, p.parseExprSingle())
		}
	}
	p.expect(lexer.RBracket)
	return &ast.ArrayCtor{Base: ast.NewBase(p.span(start)), Kind: ast.SquareArray, Members: members}
}

func (p *Parser) parseSquareArray() ast.Expr {
	start := p.tok.Start
	p.advance() // [
	var members []ast.Expr
	if p.tok.Kind != lexer.RBracket {
		members = append(members, p.parseExprSingle())
		for p.tok.Kind == lexer.Comma {
			p.advance()
			members = append(members, p.parseExprSingle())
		}
	}
	p.expect(lexer.RBracket)
	return &ast.ArrayCtor{Base: ast.NewBase(p.span(start)), Kind: ast.SquareArray, Members: members}
}

// parseSequenceType parses "empty-sequence()" | ItemType OccurrenceIndicator?
func (p *Parser) parseSequenceType() ast.SequenceType {
	if p.tok.Kind == lexer.KwEmptySequence {
		p.advance()
		p.expect(lexer.LParen)
		p.expect(lexer.RParen)
		return ast.SequenceType{EmptySequence: true}
	}
	it := p.parseItemType()
	occ := ast.OccurrenceOne
	switch p.tok.Kind {
	case lexer.Question:
		p.advance()
		occ = ast.OccurrenceOptional
	case lexer.Star:
		p.advance()
		occ = ast.OccurrenceZeroOrMore
	case lexer.Plus:
		p.advance()
		occ = ast.OccurrenceOneOrMore
	}
	return ast.SequenceType{Item: it, Occurrence: occ}
}

func (p *Parser) parseItemType() ast.ItemType {
	if p.tok.Kind == lexer.KwItem {
		p.advance()
		p.expect(lexer.LParen)
		p.expect(lexer.RParen)
		return ast.ItemType{Kind: ast.ItemTypeAny}
	}
	if p.tok.Kind == lexer.KwFunction {
		p.advance()
		p.expect(lexer.LParen)
		if p.tok.Kind == lexer.Star {
			p.advance()
		} else {
			for p.tok.Kind != lexer.RParen {
				p.parseSequenceType()
				if p.tok.Kind != lexer.Comma {
					break
				}
				p.advance()
			}
		}
		p.expect(lexer.RParen)
		if p.tok.Kind == lexer.KwAs {
			p.advance()
			p.parseSequenceType()
		}
		return ast.ItemType{Kind: ast.ItemTypeFunction}
	}
	if p.tok.Kind == lexer.KwNode || p.tok.Kind == lexer.KwText || p.tok.Kind == lexer.KwComment ||
		p.tok.Kind == lexer.KwDocumentNode || p.tok.Kind == lexer.KwProcessingInstruction ||
		p.tok.Kind == lexer.KwElement || p.tok.Kind == lexer.KwAttribute {
		test := p.parseNodeTest()
		return ast.ItemType{Kind: ast.ItemTypeNodeKind, Node: test}
	}
	name := p.parseEQName()
	return ast.ItemType{Kind: ast.ItemTypeAtomic, Atomic: ast.AtomicTypeRef{Name: name}}
}
