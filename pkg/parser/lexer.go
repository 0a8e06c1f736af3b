package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Mode is a set of flags controlling how a file is lexed.
type Mode uint

// Mode flags.
const (
	// HashComments makes `#` start a line comment and turns off `//` and
	// `/* */` comments. Starlark hosts need this, since `//` is floor
	// division there.
	HashComments Mode = 1 << iota
)

// Lexer tokenizes template source. Lexical problems are recorded as
// diagnostics and never stop the scan.
type Lexer struct {
	input string
	file  string
	mode  Mode
	diags *diag.List

	pos  int // current position in input
	line int // current line number (1-based)
	col  int // current column number (1-based)

	start token.Position // position at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string, mode Mode, diags *diag.List) *Lexer {
	if diags == nil {
		diags = &diag.List{}
	}
	return &Lexer{
		input: input,
		file:  file,
		mode:  mode,
		diags: diags,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the whole input into tokens. The result always ends
// with an EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()
	l.markStart()

	if l.pos >= len(l.input) {
		return l.emit(token.EOF, "")
	}

	r := l.peek()
	switch {
	case isLetter(r):
		return l.scanIdent()
	case isDigit(r):
		return l.scanNumber()
	}

	switch r {
	case '"':
		if l.matchString(`"""`) {
			return l.scanTriple(`"""`)
		}
		return l.scanString()
	case '\'':
		if l.matchString("'''") {
			return l.scanTriple("'''")
		}
		return l.scanChar()
	case '`':
		return l.scanRawString()
	}

	l.advance()
	switch r {
	case '(':
		return l.emit(token.LPAREN, "(")
	case ')':
		return l.emit(token.RPAREN, ")")
	case '[':
		return l.emit(token.LBRACKET, "[")
	case ']':
		return l.emit(token.RBRACKET, "]")
	case '{':
		return l.emit(token.LBRACE, "{")
	case '}':
		return l.emit(token.RBRACE, "}")
	case '<':
		return l.emit(token.LT, "<")
	case '>':
		return l.emit(token.GT, ">")
	case '/':
		return l.emit(token.SLASH, "/")
	case '=':
		return l.emit(token.ASSIGN, "=")
	case '!':
		return l.emit(token.BANG, "!")
	case '-':
		return l.emit(token.MINUS, "-")
	case ':':
		return l.emit(token.COLON, ":")
	case utf8.RuneError:
		tok := l.emit(token.ILLEGAL, string(r))
		l.diags.Add(diag.Lex(tok.Span, "invalid UTF-8 encoding"))
		return tok
	}
	return l.emit(token.PUNCT, string(r))
}

// scanIdent scans an identifier or keyword.
func (l *Lexer) scanIdent() token.Token {
	start := l.pos
	for l.pos < len(l.input) {
		r := l.peek()
		if !isLetter(r) && !isDigit(r) {
			break
		}
		l.advance()
	}
	word := l.input[start:l.pos]
	return l.emit(token.LookupIdent(word), word)
}

// scanNumber scans a numeric literal. The literal belongs to the host
// language, so any run of digits, letters, dots and underscores is
// accepted as written.
func (l *Lexer) scanNumber() token.Token {
	start := l.pos
	for l.pos < len(l.input) {
		r := l.peek()
		if !isLetter(r) && !isDigit(r) && r != '.' {
			break
		}
		l.advance()
	}
	return l.emit(token.NUMBER, l.input[start:l.pos])
}

// scanString scans a double-quoted string and decodes its escapes.
func (l *Lexer) scanString() token.Token {
	l.advance() // opening quote
	start := l.pos

	for {
		if l.pos >= len(l.input) || l.peek() == '\n' {
			tok := l.emit(token.STRING, l.input[start:l.pos])
			l.diags.Add(diag.Lex(tok.Span, "unterminated string literal"))
			return tok
		}
		r := l.peek()
		l.advance()
		if r == '\\' {
			if l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		if r == '"' {
			break
		}
	}

	raw := l.input[start : l.pos-1]
	tok := l.emit(token.STRING, raw)
	if strings.IndexByte(raw, '\\') < 0 {
		return tok
	}
	text, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		l.diags.Add(diag.Lex(tok.Span, "invalid escape sequence in string literal"))
		return tok
	}
	tok.Value = text
	return tok
}

// scanTriple scans a triple-quoted string. Its content is taken verbatim.
func (l *Lexer) scanTriple(quote string) token.Token {
	l.advanceN(len(quote))
	start := l.pos

	end := strings.Index(l.input[l.pos:], quote)
	if end < 0 {
		for l.pos < len(l.input) {
			l.advance()
		}
		tok := l.emit(token.STRING, l.input[start:])
		l.diags.Add(diag.Lex(tok.Span, "unterminated string literal"))
		return tok
	}

	for l.pos < start+end {
		l.advance()
	}
	l.advanceN(len(quote))
	return l.emit(token.STRING, l.input[start:start+end])
}

// scanRawString scans a backquoted string. Carriage returns are dropped
// from its content, as in Go.
func (l *Lexer) scanRawString() token.Token {
	l.advance() // opening backquote
	start := l.pos

	for l.pos < len(l.input) && l.peek() != '`' {
		l.advance()
	}
	if l.pos >= len(l.input) {
		tok := l.emit(token.STRING, strings.ReplaceAll(l.input[start:], "\r", ""))
		l.diags.Add(diag.Lex(tok.Span, "unterminated raw string literal"))
		return tok
	}

	text := strings.ReplaceAll(l.input[start:l.pos], "\r", "")
	l.advance()
	return l.emit(token.STRING, text)
}

// scanChar scans a single-quoted literal. It is host syntax (a Go rune or
// a Starlark string) and is kept as raw source. An unterminated literal
// ends at the line break; the host compiler reports it.
func (l *Lexer) scanChar() token.Token {
	start := l.pos
	l.advance() // opening quote

	for l.pos < len(l.input) {
		r := l.peek()
		if r == '\n' {
			break
		}
		l.advance()
		if r == '\\' {
			if l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		if r == '\'' {
			break
		}
	}
	return l.emit(token.CHAR, l.input[start:l.pos])
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		r := l.peek()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case l.mode&HashComments != 0 && r == '#':
			l.skipLine()
		case l.mode&HashComments == 0 && l.matchString("//"):
			l.skipLine()
		case l.mode&HashComments == 0 && l.matchString("/*"):
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLine() {
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	l.markStart()
	l.advanceN(2)
	for l.pos < len(l.input) {
		if l.matchString("*/") {
			l.advanceN(2)
			return
		}
		l.advance()
	}
	l.diags.Add(diag.Lex(token.Span{Start: l.start, End: l.position()}, "unterminated block comment"))
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) advanceN(n int) {
	for range n {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.start = l.position()
}

// position returns the current position.
func (l *Lexer) position() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.col, Offset: l.pos}
}

// emit builds a token spanning from the marked start to the current
// position.
func (l *Lexer) emit(t token.TokenType, value string) token.Token {
	return token.Token{
		Type:  t,
		Value: value,
		Span:  token.Span{Start: l.start, End: l.position()},
	}
}

func isLetter(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
