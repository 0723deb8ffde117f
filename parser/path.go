package parser

import (
	"strings"

	"github.com/sdcio/xpath3/ast"
	"github.com/sdcio/xpath3/lexer"
)

// parseEQName parses an (optionally prefixed) name and resolves its
// prefix through the namespace context, implementing the EQName
// production (also accepting the Q{uri}local braced form).
func (p *Parser) parseEQName() ast.Name {
	if p.tok.Kind == lexer.BracedURILiteral {
		uri := extractBracedURI(p.tok.Text)
		p.advance()
		local, _ := p.expect(lexer.NCName)
		return ast.Name{Space: uri, Local: local.Text}
	}
	first := p.tok.Text
	p.advance()
	if p.tok.Kind == lexer.Colon {
		p.advance()
		local, _ := p.expect(lexer.NCName)
		uri, _ := p.ns.resolve(first)
		return ast.Name{Prefix: first, Space: uri, Local: local.Text}
	}
	if p.ns != nil {
		return ast.Name{Local: first, Space: p.ns.DefaultElementNS}
	}
	return ast.Name{Local: first}
}

func extractBracedURI(text string) string {
	// text is like "Q{http://example.com}"; strip the Q{ and trailing }.
	inner := strings.TrimPrefix(text, "Q{")
	inner = strings.TrimSuffix(inner, "}")
	return inner
}

// --- PathExpr ::= ("/" RelativePathExpr?) | ("//" RelativePathExpr) | RelativePathExpr ---

func (p *Parser) parsePathExpr() ast.Expr {
	start := p.tok.Start
	switch p.tok.Kind {
	case lexer.Slash:
		p.advance()
		if p.startsRelativePath() {
			steps := p.parseRelativeSteps()
			return &ast.Path{Base: ast.NewBase(p.span(start)), Root: ast.RootedSlash, Steps: steps}
		}
		return &ast.Path{Base: ast.NewBase(p.span(start)), Root: ast.RootedSlash}
	case lexer.SlashSlash:
		p.advance()
		steps := p.parseRelativeSteps()
		return &ast.Path{Base: ast.NewBase(p.span(start)), Root: ast.RootedSlashSlash, Steps: steps}
	default:
		steps := p.parseRelativeSteps()
		if len(steps) == 1 {
			if _, isStep := steps[0].(*ast.Step); !isStep {
				return steps[0]
			}
		}
		return &ast.Path{Base: ast.NewBase(p.span(start)), Root: ast.NotRooted, Steps: steps}
	}
}

func (p *Parser) startsRelativePath() bool {
	switch p.tok.Kind {
	case lexer.EOF, lexer.RParen, lexer.RBracket, lexer.RBrace, lexer.Comma,
		lexer.KwThen, lexer.KwElse, lexer.KwReturn, lexer.KwSatisfies, lexer.KwIn:
		return false
	default:
		return true
	}
}

// parseRelativeSteps parses StepExpr ( ("/" | "//") StepExpr )* and
// returns the flattened step list, folding "//" into an intervening
// descendant-or-self::node() step the way the reference design's program.go
// treats DoubleSlash path separators.
func (p *Parser) parseRelativeSteps() []ast.Expr {
	var steps []ast.Expr
	steps = append(steps, p.parseStepExpr())
	for p.tok.Kind == lexer.Slash || p.tok.Kind == lexer.SlashSlash {
		if p.tok.Kind == lexer.SlashSlash {
			steps = append(steps, descendantOrSelfNode(p.tok.Start))
		}
		p.advance()
		steps = append(steps, p.parseStepExpr())
	}
	return steps
}

func descendantOrSelfNode(pos int) ast.Expr {
	return &ast.Step{
		Base:     ast.NewBase(ast.Span{Start: pos, End: pos}),
		AxisSpec: ast.DescendantOrSelf,
		Test:     ast.NodeTest{Kind: ast.KindTestAnyNode},
	}
}

// parseStepExpr parses either an AxisStep (axis::test predicates* or the
// abbreviated forms @x, .., .) or a PostfixExpr (a primary expression
// followed by predicates/argument-lists/lookups), matching the grammar's
// StepExpr ::= PostfixExpr | AxisStep choice.
func (p *Parser) parseStepExpr() ast.Expr {
	start := p.tok.Start
	switch p.tok.Kind {
	case lexer.At:
		p.advance()
		test := p.parseNodeTest()
		preds := p.parsePredicates()
		return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: ast.Attribute, Test: test, Predicates: preds}
	case lexer.DotDot:
		p.advance()
		preds := p.parsePredicates()
		return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: ast.Parent, Test: ast.NodeTest{Kind: ast.KindTestAnyNode}, Predicates: preds}
	case lexer.AxisChild, lexer.AxisDescendant, lexer.AxisParent, lexer.AxisAncestor,
		lexer.AxisAttribute, lexer.AxisSelf, lexer.AxisDescendantOrSelf,
		lexer.AxisFollowingSibling, lexer.AxisPrecedingSibling,
		lexer.AxisFollowing, lexer.AxisPreceding, lexer.AxisNamespace:
		axis := axisFromKind(p.tok.Kind)
		p.advance()
		p.expect(lexer.ColonColon)
		test := p.parseNodeTest()
		preds := p.parsePredicates()
		return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: axis, Test: test, Predicates: preds}
	case lexer.Star:
		test := p.parseNodeTest()
		preds := p.parsePredicates()
		return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: ast.Child, Test: test, Predicates: preds}
	case lexer.KwNode, lexer.KwText, lexer.KwComment, lexer.KwDocumentNode,
		lexer.KwProcessingInstruction, lexer.KwElement, lexer.KwAttribute:
		if p.peek2().Kind == lexer.LParen {
			test := p.parseNodeTest()
			preds := p.parsePredicates()
			return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: ast.Child, Test: test, Predicates: preds}
		}
		return p.parsePostfixExpr()
	case lexer.NCName, lexer.BracedURILiteral:
		if p.nameTestFollows() {
			test := p.parseNodeTest()
			preds := p.parsePredicates()
			return &ast.Step{Base: ast.NewBase(p.span(start)), AxisSpec: ast.Child, Test: test, Predicates: preds}
		}
		return p.parsePostfixExpr()
	default:
		return p.parsePostfixExpr()
	}
}

// nameTestFollows reports whether the upcoming (EQ)Name, as seen from the
// current token, is a plain name test (a step) rather than the start of
// a function call. An unprefixed name directly followed by "(" is always
// a call; a name (prefixed or not) NOT directly followed by "(" is a
// name test. A prefixed name ("a:b(") is also a call.
func (p *Parser) nameTestFollows() bool {
	if p.tok.Kind == lexer.BracedURILiteral {
		// Q{uri}local (arg-list) is a call; otherwise a name test.
		return p.peekAt(2).Kind != lexer.LParen
	}
	if p.peek2().Kind == lexer.Colon {
		// prefixed name: need to look past "ncname : ncname"
		return p.peekAt(3).Kind != lexer.LParen
	}
	return p.peek2().Kind != lexer.LParen
}

func axisFromKind(k lexer.Kind) ast.Axis {
	switch k {
	case lexer.AxisChild:
		return ast.Child
	case lexer.AxisDescendant:
		return ast.Descendant
	case lexer.AxisParent:
		return ast.Parent
	case lexer.AxisAncestor:
		return ast.Ancestor
	case lexer.AxisAttribute:
		return ast.Attribute
	case lexer.AxisSelf:
		return ast.Self
	case lexer.AxisDescendantOrSelf:
		return ast.DescendantOrSelf
	case lexer.AxisFollowingSibling:
		return ast.FollowingSibling
	case lexer.AxisPrecedingSibling:
		return ast.PrecedingSibling
	case lexer.AxisFollowing:
		return ast.Following
	case lexer.AxisPreceding:
		return ast.Preceding
	case lexer.AxisNamespace:
		return ast.Namespace
	default:
		return ast.Child
	}
}

var kindTestNames = map[string]ast.NodeTestKind{
	"node": ast.KindTestAnyNode, "text": ast.KindTestText,
	"comment": ast.KindTestComment, "document-node": ast.KindTestDocument,
	"processing-instruction": ast.KindTestPI, "element": ast.KindTestElement,
	"attribute": ast.KindTestAttribute,
}

// parseNodeTest parses a NameTest (possibly wildcarded) or a KindTest.
func (p *Parser) parseNodeTest() ast.NodeTest {
	if p.tok.Kind == lexer.Star {
		p.advance()
		if p.tok.Kind == lexer.Colon {
			p.advance()
			local, _ := p.expect(lexer.NCName)
			return ast.NodeTest{Kind: ast.NameTest, Name: ast.Name{Local: local.Text, Space: "*"}}
		}
		return ast.NodeTest{Kind: ast.NameTest, Name: ast.Name{Local: "*", Space: "*"}}
	}

	// KindTest: NCName followed immediately by "(" and a keyword kind name.
	if p.tok.Kind == lexer.KwNode || p.tok.Kind == lexer.KwText || p.tok.Kind == lexer.KwComment ||
		p.tok.Kind == lexer.KwDocumentNode || p.tok.Kind == lexer.KwProcessingInstruction ||
		p.tok.Kind == lexer.KwElement || p.tok.Kind == lexer.KwAttribute {
		if p.peek2().Kind == lexer.LParen {
			kindWord := p.tok.Text
			p.advance()
			p.advance() // (
			var piTarget string
			if p.tok.Kind == lexer.NCName && p.peek2().Kind == lexer.RParen {
				piTarget = p.tok.Text
				p.advance()
			} else if p.tok.Kind == lexer.StringLiteral {
				piTarget = p.tok.Text
				p.advance()
			}
			p.expect(lexer.RParen)
			return ast.NodeTest{Kind: kindTestNames[kindWord], PITargetName: piTarget}
		}
	}

	name := p.parseEQName()
	if p.tok.Kind == lexer.Colon && p.peek2().Kind == lexer.Star {
		p.advance()
		p.advance()
		return ast.NodeTest{Kind: ast.NameTest, Name: ast.Name{Local: "*", Space: name.Space, Prefix: name.Prefix}}
	}
	return ast.NodeTest{Kind: ast.NameTest, Name: name}
}

func (p *Parser) parsePredicates() []ast.Expr {
	var preds []ast.Expr
	for p.tok.Kind == lexer.LBracket {
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RBracket)
		preds = append(preds, e)
	}
	return preds
}
