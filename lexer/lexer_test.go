package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok := l.Next()
		if tok.Kind == EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func kinds(toks []Token) []Kind {
	ks := make([]Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "1 + 2 * 3 != 4 <= 5 => 6")
	assert.Equal(t, []Kind{
		IntegerLiteral, Plus, IntegerLiteral, Star, IntegerLiteral, NotEq,
		IntegerLiteral, Le, IntegerLiteral, Arrow, IntegerLiteral,
	}, kinds(toks))
}

func TestLexerStringLiteralWithEscapedQuote(t *testing.T) {
	toks := scanAll(t, `'it''s' "a""b"`)
	assert.Len(t, toks, 2)
	assert.Equal(t, "it's", toks[0].Text)
	assert.Equal(t, `a"b`, toks[1].Text)
}

func TestLexerNumberForms(t *testing.T) {
	toks := scanAll(t, "1 1.5 1.5e10 .5 1e-3")
	want := []Kind{IntegerLiteral, DecimalLiteral, DoubleLiteral, DecimalLiteral, DoubleLiteral}
	assert.Equal(t, want, kinds(toks))
}

func TestLexerAxisOnlyBeforeDoubleColon(t *testing.T) {
	toks := scanAll(t, "child::foo")
	assert.Equal(t, AxisChild, toks[0].Kind)

	toks = scanAll(t, "child")
	assert.Equal(t, NCName, toks[0].Kind)
}

func TestLexerKeywordSpellings(t *testing.T) {
	toks := scanAll(t, "cast as xs:integer")
	assert.Equal(t, []Kind{KwCast, KwAs, NCName, Colon, NCName}, kinds(toks))
}

func TestLexerDotDotAndDotDotDot(t *testing.T) {
	toks := scanAll(t, ". .. ...")
	assert.Equal(t, []Kind{Dot, DotDot, DotDotDot}, kinds(toks))
}

func TestLexerBracedURILiteral(t *testing.T) {
	toks := scanAll(t, "Q{http://example.com}name")
	assert.Equal(t, BracedURILiteral, toks[0].Kind)
	assert.Equal(t, NCName, toks[1].Kind)
}

func TestLexerUnterminatedStringIsError(t *testing.T) {
	l := New("'unterminated")
	tok := l.Next()
	assert.Equal(t, Error, tok.Kind)
	assert.Error(t, l.Err())
}
