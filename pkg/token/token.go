// Package token defines the lexical tokens and source positions of the
// template language.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow the go/token convention
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // div, title, aria
	NUMBER // 123, 4.5
	STRING // "hello", `raw`
	CHAR   // 'x'

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }

	// Markup punctuation
	LT     // <
	GT     // >
	SLASH  // /
	ASSIGN // =
	BANG   // !
	MINUS  // -
	COLON  // :

	// PUNCT is any other single-rune punctuation. It only ever appears
	// inside host expression spans.
	PUNCT

	// Keywords
	IF
	ELSE
	FOR
	IN
	WHILE
	TEMPLATE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "end of input",
	ILLEGAL: "illegal token",

	IDENT:  "identifier",
	NUMBER: "number",
	STRING: "string literal",
	CHAR:   "character literal",

	LPAREN:   "`(`",
	RPAREN:   "`)`",
	LBRACKET: "`[`",
	RBRACKET: "`]`",
	LBRACE:   "`{`",
	RBRACE:   "`}`",

	LT:     "`<`",
	GT:     "`>`",
	SLASH:  "`/`",
	ASSIGN: "`=`",
	BANG:   "`!`",
	MINUS:  "`-`",
	COLON:  "`:`",
	PUNCT:  "punctuation",

	IF:       "`if`",
	ELSE:     "`else`",
	FOR:      "`for`",
	IN:       "`in`",
	WHILE:    "`while`",
	TEMPLATE: "`template`",
}

var keywords = map[string]TokenType{
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"in":       IN,
	"while":    WHILE,
	"template": TEMPLATE,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= IF && t <= TEMPLATE
}

// IsWord returns true for identifiers and keywords. Markup names such as
// attribute keys accept both, so `<label for="x">` works.
func IsWord(t TokenType) bool {
	return t == IDENT || IsKeyword(t)
}

// Closer returns the closing delimiter for an opening one.
func Closer(t TokenType) (TokenType, bool) {
	switch t {
	case LPAREN:
		return RPAREN, true
	case LBRACKET:
		return RBRACKET, true
	case LBRACE:
		return RBRACE, true
	default:
		return ILLEGAL, false
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string // Literal source text; decoded text for STRING
	Span  Span
}

// Pos returns the start position of the token.
func (t Token) Pos() Position {
	return t.Span.Start
}

// Describe returns the token as it should appear in diagnostics.
func (t Token) Describe() string {
	switch t.Type {
	case EOF, STRING, NUMBER, CHAR:
		return t.Type.String()
	case IDENT:
		return fmt.Sprintf("identifier `%s`", t.Value)
	case PUNCT, ILLEGAL:
		return fmt.Sprintf("`%s`", t.Value)
	default:
		return t.Type.String()
	}
}
