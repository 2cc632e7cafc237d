package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scanAll(source string) []token {
	sc := newScanner(source)
	var toks []token
	for {
		tok := sc.scanToken()
		toks = append(toks, tok)
		if tok.typ == tokenEOF {
			return toks
		}
	}
}

func TestScannerKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll("var x = orchid;")
	types := make([]tokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.typ
	}
	assert.Equal(t, []tokenType{
		tokenVar, tokenIdentifier, tokenEqual, tokenIdentifier, tokenSemicolon, tokenEOF,
	}, types)
	// "orchid" starts with the "or" keyword's letters but must still
	// scan as one identifier, not "or" + "chid".
	assert.Equal(t, "orchid", toks[3].lexeme)
}

func TestScannerTwoCharOperators(t *testing.T) {
	toks := scanAll("!= == <= >= < > = !")
	types := make([]tokenType, 0, len(toks))
	for _, tok := range toks {
		if tok.typ != tokenEOF {
			types = append(types, tok.typ)
		}
	}
	assert.Equal(t, []tokenType{
		tokenBangEqual, tokenEqualEqual, tokenLessEqual, tokenGreaterEqual,
		tokenLess, tokenGreater, tokenEqual, tokenBang,
	}, types)
}

func TestScannerSkipsCommentsAndWhitespace(t *testing.T) {
	toks := scanAll("// a whole comment\n  \t 42")
	tok := toks[0]
	assert.Equal(t, tokenNumber, tok.typ)
	assert.Equal(t, "42", tok.lexeme)
	assert.Equal(t, 2, tok.line)
}

func TestScannerUnterminatedString(t *testing.T) {
	toks := scanAll(`"never closed`)
	assert.Equal(t, tokenError, toks[0].typ)
	assert.Equal(t, "Unterminated string.", toks[0].message)
}

func TestScannerNumberWithFraction(t *testing.T) {
	toks := scanAll("3.14")
	assert.Equal(t, tokenNumber, toks[0].typ)
	assert.Equal(t, "3.14", toks[0].lexeme)
}
