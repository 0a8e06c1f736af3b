package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

func lex(t *testing.T, input string, mode Mode) ([]token.Token, *diag.List) {
	t.Helper()
	diags := &diag.List{}
	tokens := NewLexer(input, "test.gtpl", mode, diags).Tokenize()
	require.NotEmpty(t, tokens)
	require.Equal(t, token.EOF, tokens[len(tokens)-1].Type)
	return tokens[:len(tokens)-1], diags
}

func types(tokens []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLexer_TokenTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.TokenType
	}{
		{
			name:  "element",
			input: `<div class="a">`,
			want:  []token.TokenType{token.LT, token.IDENT, token.IDENT, token.ASSIGN, token.STRING, token.GT},
		},
		{
			name:  "close tag",
			input: `</div>`,
			want:  []token.TokenType{token.LT, token.SLASH, token.IDENT, token.GT},
		},
		{
			name:  "doctype",
			input: `<!doctype html>`,
			want:  []token.TokenType{token.LT, token.BANG, token.IDENT, token.IDENT, token.GT},
		},
		{
			name:  "keywords",
			input: `if else for in while template`,
			want:  []token.TokenType{token.IF, token.ELSE, token.FOR, token.IN, token.WHILE, token.TEMPLATE},
		},
		{
			name:  "delimiters",
			input: `( ) [ ] { }`,
			want: []token.TokenType{
				token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET, token.LBRACE, token.RBRACE,
			},
		},
		{
			name:  "chained attribute key",
			input: `aria-current hx-on:click`,
			want: []token.TokenType{
				token.IDENT, token.MINUS, token.IDENT, token.IDENT, token.MINUS, token.IDENT, token.COLON, token.IDENT,
			},
		},
		{
			name:  "host punctuation",
			input: `a + b; c.d`,
			want:  []token.TokenType{token.IDENT, token.PUNCT, token.IDENT, token.PUNCT, token.IDENT, token.PUNCT, token.IDENT},
		},
		{
			name:  "numbers",
			input: `42 3.14 0xFF 1_000`,
			want:  []token.TokenType{token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER},
		},
		{
			name:  "char literal",
			input: `'x' '\n'`,
			want:  []token.TokenType{token.CHAR, token.CHAR},
		},
		{
			name:  "comments",
			input: "a // line\n/* block\n comment */ b",
			want:  []token.TokenType{token.IDENT, token.IDENT},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, diags := lex(t, tt.input, 0)
			assert.Equal(t, tt.want, types(tokens))
			assert.Zero(t, diags.Len())
		})
	}
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `"hello world"`, "hello world"},
		{"escapes", `"a\tb\n\"c\""`, "a\tb\n\"c\""},
		{"unicode escape", `"é"`, "é"},
		{"raw", "`<b>\\n</b>`", `<b>\n</b>`},
		{"raw multiline", "`a\r\nb`", "a\nb"},
		{"triple", `"""one "two" three"""`, `one "two" three`},
		{"empty", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, diags := lex(t, tt.input, 0)
			require.Len(t, tokens, 1)
			assert.Equal(t, token.STRING, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Value)
			assert.Zero(t, diags.Len())
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	tokens, _ := lex(t, "<p>\n  \"hé\" x", 0)
	require.Len(t, tokens, 5)

	str := tokens[3]
	assert.Equal(t, token.Position{File: "test.gtpl", Line: 2, Column: 3, Offset: 6}, str.Span.Start)
	assert.Equal(t, 2, str.Span.End.Line)
	assert.Equal(t, 7, str.Span.End.Column)

	ident := tokens[4]
	assert.Equal(t, 8, ident.Span.Start.Column)
	assert.Equal(t, "test.gtpl:2:8", ident.Span.Start.String())
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"unterminated string", "\"abc\n", "unterminated string literal"},
		{"unterminated at eof", `"abc`, "unterminated string literal"},
		{"bad escape", `"\q"`, "invalid escape sequence in string literal"},
		{"unterminated raw", "`abc", "unterminated raw string literal"},
		{"unterminated comment", "a /* b", "unterminated block comment"},
		{"unterminated triple", `"""abc`, "unterminated string literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := lex(t, tt.input, 0)
			require.Equal(t, 1, diags.Len())
			d := diags.All()[0]
			assert.Equal(t, diag.Lexical, d.Kind)
			assert.Equal(t, tt.message, d.Message)
		})
	}
}

func TestLexer_KeepsGoingAfterErrors(t *testing.T) {
	tokens, diags := lex(t, "\"abc\n<b>", 0)

	assert.Equal(t, 1, diags.Len())
	assert.Equal(t, []token.TokenType{token.STRING, token.LT, token.IDENT, token.GT}, types(tokens))
}

func TestLexer_HashComments(t *testing.T) {
	input := "# it's a \"comment\nx = a // b"

	tokens, diags := lex(t, input, HashComments)
	assert.Zero(t, diags.Len())
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.ASSIGN, token.IDENT, token.SLASH, token.SLASH, token.IDENT,
	}, types(tokens))
}

func TestLexer_CharIsLenient(t *testing.T) {
	tokens, diags := lex(t, "don't\nx", 0)

	assert.Zero(t, diags.Len())
	assert.Equal(t, []token.TokenType{token.IDENT, token.CHAR, token.IDENT}, types(tokens))
	assert.Equal(t, "'t", tokens[1].Value)
}
