// Package scanner tokenizes glox source on demand. It is a contract-only
// component from the compiler's point of view (spec.md §4.2): the compiler
// asks for one token at a time and never looks at the rest of the source.
package scanner

import (
	"go/scanner"
	gotoken "go/token"
	"strings"

	"github.com/mna/glox/lang/token"
)

// Error and ErrorList are the standard library's go/scanner error types,
// reused verbatim rather than reinvented: they already provide sorted,
// position-aware, deduplicated error aggregation with a ready-made
// PrintError helper. Both are defined in terms of go/token.Position, which
// is why Position below aliases that type rather than inventing a
// parallel one.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError writes err (nil, a single Error, or an ErrorList) to w, one
// error per line.
var PrintError = scanner.PrintError

// Position is a 1-based line/column source location.
type Position = gotoken.Position

// Token pairs a token kind with its source text and position.
type Token struct {
	Kind    token.Kind
	Lexeme  string
	Literal string // unescaped string literal contents, or the raw number text
	Line    int
}

// A Scanner tokenizes one source buffer, producing tokens on demand via
// Scan. It never allocates a full token slice up front.
type Scanner struct {
	src     string
	start   int // start of the current lexeme
	current int // position of the next unread byte
	line    int

	errh func(pos Position, msg string)
}

// Init prepares s to scan src. errh, if non-nil, is called for every
// lexical error encountered (unterminated string, unclosed block comment).
func (s *Scanner) Init(src string, errh func(pos Position, msg string)) {
	s.src = src
	s.start = 0
	s.current = 0
	s.line = 1
	s.errh = errh
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	b := s.src[s.current]
	s.current++
	return b
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) match(expect byte) bool {
	if s.atEnd() || s.src[s.current] != expect {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) error(msg string) {
	if s.errh != nil {
		s.errh(Position{Line: s.line, Column: 1}, msg)
	}
}

func (s *Scanner) make(k token.Kind) Token {
	return Token{Kind: k, Lexeme: s.src[s.start:s.current], Line: s.line}
}

// makeIllegal returns an ILLEGAL token whose Lexeme is the human-readable
// msg rather than the raw (possibly garbled or unterminated) source slice,
// per spec.md §4.2: "produces an ERROR token carrying a human-readable
// message in place of the lexeme." errh has already recorded msg as a
// diagnostic; callers must not report it a second time.
func (s *Scanner) makeIllegal(msg string) Token {
	return Token{Kind: token.ILLEGAL, Lexeme: msg, Line: s.line}
}

// Scan returns the next token in the source. Once EOF has been returned,
// every subsequent call returns EOF again.
func (s *Scanner) Scan() Token {
	s.skipIgnorable()
	s.start = s.current
	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case ';':
		return s.make(token.SEMI)
	case '*':
		return s.make(token.STAR)
	case '/':
		return s.make(token.SLASH)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.match('=') {
			return s.make(token.LT_EQ)
		}
		return s.make(token.LT)
	case '>':
		if s.match('=') {
			return s.make(token.GT_EQ)
		}
		return s.make(token.GT)
	case '"':
		return s.stringLiteral()
	}

	msg := "unexpected character: " + string(c)
	s.error(msg)
	return s.makeIllegal(msg)
}

// skipIgnorable consumes whitespace, line comments and block comments,
// advancing s.line on every newline. An unterminated block comment is
// reported through errh; the scanner then stops at EOF.
func (s *Scanner) skipIgnorable() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else if s.peekNext() == '*' {
				s.blockComment()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) blockComment() {
	s.advance() // '/'
	s.advance() // '*'
	depth := 1
	for depth > 0 {
		if s.atEnd() {
			s.error("unterminated block comment")
			return
		}
		switch {
		case s.peek() == '\n':
			s.line++
			s.advance()
		case s.peek() == '/' && s.peekNext() == '*':
			s.advance()
			s.advance()
			depth++
		case s.peek() == '*' && s.peekNext() == '/':
			s.advance()
			s.advance()
			depth--
		default:
			s.advance()
		}
	}
}

func (s *Scanner) identifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	text := s.src[s.start:s.current]
	kind := token.IDENT
	if k, ok := token.Keywords[text]; ok {
		kind = k
	}
	return s.make(kind)
}

func (s *Scanner) number() Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	tok := s.make(token.NUMBER)
	tok.Literal = tok.Lexeme
	return tok
}

func (s *Scanner) stringLiteral() Token {
	var b strings.Builder
	startLine := s.line
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		b.WriteByte(s.advance())
	}
	if s.atEnd() {
		s.line = startLine
		const msg = "unterminated string"
		s.error(msg)
		return s.makeIllegal(msg)
	}
	s.advance() // closing quote
	tok := s.make(token.STRING)
	tok.Literal = b.String()
	return tok
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
