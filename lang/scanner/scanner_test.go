package scanner_test

import (
	"testing"

	"github.com/mna/glox/lang/scanner"
	"github.com/mna/glox/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanAll drains s, collecting every error reported through errh alongside
// the token stream (EOF included as the final token).
func scanAll(t *testing.T, src string) ([]scanner.Token, []string) {
	t.Helper()
	var s scanner.Scanner
	var errs []string
	s.Init(src, func(pos scanner.Position, msg string) { errs = append(errs, msg) })

	var toks []scanner.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, errs
}

func TestPunctuationAndOperators(t *testing.T) {
	toks, errs := scanAll(t, `( ) { } , . - + ; * / ! != = == > >= < <=`)
	assert.Empty(t, errs)
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMI, token.STAR, token.SLASH,
		token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ, token.GT, token.GT_EQ,
		token.LT, token.LT_EQ, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks, errs := scanAll(t, `and break class continue else false for fun if nil or print return super this true var while notAKeyword`)
	assert.Empty(t, errs)
	want := []token.Kind{
		token.AND, token.BREAK, token.CLASS, token.CONTINUE, token.ELSE,
		token.FALSE, token.FOR, token.FUN, token.IF, token.NIL, token.OR,
		token.PRINT, token.RETURN, token.SUPER, token.THIS, token.TRUE,
		token.VAR, token.WHILE, token.IDENT, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, "notAKeyword", toks[len(toks)-2].Lexeme)
}

func TestNumberLiteral(t *testing.T) {
	toks, errs := scanAll(t, `123 4.56`)
	assert.Empty(t, errs)
	require.Len(t, toks, 3)
	assert.Equal(t, token.NUMBER, toks[0].Kind)
	assert.Equal(t, "123", toks[0].Literal)
	assert.Equal(t, token.NUMBER, toks[1].Kind)
	assert.Equal(t, "4.56", toks[1].Literal)
}

func TestStringLiteral(t *testing.T) {
	toks, errs := scanAll(t, `"hello world"`)
	assert.Empty(t, errs)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Literal)
}

func TestLineCommentIsIgnored(t *testing.T) {
	toks, errs := scanAll(t, "// a comment\nvar")
	assert.Empty(t, errs)
	require.Len(t, toks, 2)
	assert.Equal(t, token.VAR, toks[0].Kind)
	assert.Equal(t, 2, toks[0].Line)
}

func TestNestedBlockComments(t *testing.T) {
	toks, errs := scanAll(t, `/* outer /* inner */ still outer */ var`)
	assert.Empty(t, errs, "nested block comments must not surface a spurious error")
	require.Len(t, toks, 2)
	assert.Equal(t, token.VAR, toks[0].Kind)
}

func TestUnterminatedBlockComment(t *testing.T) {
	_, errs := scanAll(t, `/* never closed`)
	require.Len(t, errs, 1)
	assert.Equal(t, "unterminated block comment", errs[0])
}

// TestIllegalTokenCarriesHumanReadableMessage is the contract spec.md §4.2
// names explicitly: an ILLEGAL token's Lexeme must be a human-readable
// message, never the raw (possibly garbled or unterminated) source slice.
func TestIllegalTokenCarriesHumanReadableMessage(t *testing.T) {
	t.Run("unexpected character", func(t *testing.T) {
		toks, errs := scanAll(t, `@`)
		require.Len(t, errs, 1)
		assert.Equal(t, "unexpected character: @", errs[0])

		require.Len(t, toks, 2)
		assert.Equal(t, token.ILLEGAL, toks[0].Kind)
		assert.Equal(t, errs[0], toks[0].Lexeme, "ILLEGAL token's Lexeme must be the message, not the raw source")
	})

	t.Run("unterminated string", func(t *testing.T) {
		toks, errs := scanAll(t, `"unterminated`)
		require.Len(t, errs, 1)
		assert.Equal(t, "unterminated string", errs[0])

		require.Len(t, toks, 2)
		assert.Equal(t, token.ILLEGAL, toks[0].Kind)
		assert.Equal(t, "unterminated string", toks[0].Lexeme)
		assert.NotContains(t, toks[0].Lexeme, "unterminated\n", "lexeme must not be the raw unterminated source slice")
	})
}

func TestEOFRepeatsOnceReached(t *testing.T) {
	var s scanner.Scanner
	s.Init(``, nil)
	first := s.Scan()
	second := s.Scan()
	assert.Equal(t, token.EOF, first.Kind)
	assert.Equal(t, token.EOF, second.Kind)
}

func TestNilErrorHandlerDoesNotPanic(t *testing.T) {
	var s scanner.Scanner
	s.Init(`@`, nil)
	assert.NotPanics(t, func() { s.Scan() })
}
