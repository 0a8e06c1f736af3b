// Package parser parses template source into an ast.File.
//
// # Usage
//
//	file, diags := parser.ParseFile("page.gtpl", src, 0)
//	if err := diags.Err(); err != nil {
//	    // every independent error is reported, and file is still usable
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser with error recovery:
//
//	file      → { passthrough | "template" IDENT "(" params ")" "{" nodes "}" }
//	nodes     → { node }                       (until end of range or "</")
//	node      → STRING | value | code | if | for | while | element
//	value     → "(" expr ")" | "[" expr "]"
//	code      → "{" stmts "}"
//	if        → "if" cond "{" nodes "}" [ "else" ( if | "{" nodes "}" ) ]
//	for       → "for" pattern "in" expr "{" nodes "}"
//	while     → "while" cond "{" nodes "}"
//	element   → "<" ["!"] name { attr } ( "/>" | ">" [ nodes "</" name ">" ] )
//	attr      → name [ "=" ( STRING | "[" vnodes "]" | "(" expr ")" ) ]
//	          | code | if | for | while        (bodies hold attrs)
//	vnodes    → { STRING | value | code | if | for | while }
//
// Delimited bodies are parsed by a child parser restricted to the tokens
// between the matching delimiters, so recovery inside a body never escapes
// it. Host expressions are never parsed; they are captured as raw spans.
package parser

import (
	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Parser parses a range of tokens into template nodes.
type Parser struct {
	src     string
	tokens  []token.Token
	partner []int // index of the matching delimiter, or -1
	pos     int   // index of the current token
	end     int   // exclusive end of this parser's range
	eof     token.Token
	diags   *diag.List
}

// NewParser creates a parser over the whole of src. Diagnostics from both
// lexing and parsing are appended to diags.
func NewParser(filename, src string, mode Mode, diags *diag.List) *Parser {
	if diags == nil {
		diags = &diag.List{}
	}
	tokens := NewLexer(src, filename, mode, diags).Tokenize()
	last := len(tokens) - 1
	return &Parser{
		src:     src,
		tokens:  tokens,
		partner: matchDelimiters(tokens),
		end:     last,
		eof:     tokens[last],
		diags:   diags,
	}
}

// ParseNodes parses src as a bare node list.
func ParseNodes(filename, src string, mode Mode) ([]ast.Node, *diag.List) {
	diags := &diag.List{}
	p := NewParser(filename, src, mode, diags)
	return p.parseNodeList(), diags
}

// ParseFile parses a template file: host passthrough interleaved with
// template declarations. A best-effort file is always returned.
func ParseFile(filename string, src []byte, mode Mode) (*ast.File, *diag.List) {
	diags := &diag.List{}
	p := NewParser(filename, string(src), mode, diags)
	return p.parseFile(filename), diags
}

// Diagnostics returns the list this parser records into.
func (p *Parser) Diagnostics() *diag.List {
	return p.diags
}

// ---------- File ----------

func (p *Parser) parseFile(filename string) *ast.File {
	file := &ast.File{Name: filename, Source: p.src}
	passStart := 0 // byte offset where the pending passthrough begins
	passPos := token.Position{File: filename, Line: 1, Column: 1}

	flush := func(endOffset int, endPos token.Position) {
		if text := p.src[passStart:endOffset]; text != "" {
			pt := &ast.Passthrough{Text: text}
			pt.SetSpan(token.Span{Start: passPos, End: endPos})
			file.Decls = append(file.Decls, pt)
		}
	}

	for !p.atEnd() {
		if p.check(token.TEMPLATE) && p.checkPeek(token.IDENT) && p.at(p.pos+2).Type == token.LPAREN {
			start := p.token().Span.Start
			flush(start.Offset, start)

			tmpl := p.parseTemplate()
			file.Decls = append(file.Decls, tmpl)

			prev := p.prev().Span.End
			passStart, passPos = prev.Offset, prev
			continue
		}
		// Skip whole groups so declarations are only found at depth 0.
		if m := p.partner[p.pos]; m > p.pos {
			p.pos = m + 1
			continue
		}
		p.pos++
	}

	flush(len(p.src), p.eof.Span.End)
	return file
}

// parseTemplate parses `template Name(params) { nodes }`.
func (p *Parser) parseTemplate() *ast.Template {
	kw := p.nextToken()
	name := p.nextToken()

	tmpl := &ast.Template{Name: name.Value, NameSpan: name.Span}
	note := func(d *diag.Diagnostic) *diag.Diagnostic {
		return d.WithNote(name.Span, "while parsing template `"+name.Value+"`")
	}

	params, _, d := delimited(p, token.LPAREN, "parameter list", func(c *Parser) ast.Expr {
		return c.rest()
	})
	if d != nil {
		p.addError(note(d))
		tmpl.SetSpan(token.Span{Start: kw.Span.Start, End: p.prev().Span.End})
		return tmpl
	}
	tmpl.Params = params

	body, span, d := delimited(p, token.LBRACE, "template body", (*Parser).parseNodeList)
	if d != nil {
		p.addError(note(d))
		tmpl.SetSpan(token.Span{Start: kw.Span.Start, End: p.prev().Span.End})
		return tmpl
	}
	tmpl.Body = body
	tmpl.SetSpan(token.Span{Start: kw.Span.Start, End: span.End})
	return tmpl
}

// ---------- Token Helpers ----------

// at returns the token at index i, or the range terminator past the end.
func (p *Parser) at(i int) token.Token {
	if i >= p.end {
		return p.eof
	}
	return p.tokens[i]
}

// token returns the current token.
func (p *Parser) token() token.Token {
	return p.at(p.pos)
}

// prev returns the most recently consumed token.
func (p *Parser) prev() token.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

// nextToken consumes and returns the current token.
func (p *Parser) nextToken() token.Token {
	tok := p.token()
	if p.pos < p.end {
		p.pos++
	}
	return tok
}

// atEnd returns true when the range is exhausted.
func (p *Parser) atEnd() bool {
	return p.pos >= p.end
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return !p.atEnd() && p.token().Type == t
}

// checkPeek returns true if the lookahead token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.pos+1 < p.end && p.tokens[p.pos+1].Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise returns a
// diagnostic naming what was expected.
func (p *Parser) expect(t token.TokenType) (token.Token, *diag.Diagnostic) {
	if p.check(t) {
		return p.nextToken(), nil
	}
	return p.token(), diag.Unexpected(p.token(), t.String())
}

// adjacent reports whether the current token starts exactly where the
// previous one ended.
func (p *Parser) adjacent() bool {
	return p.pos > 0 && !p.atEnd() &&
		p.tokens[p.pos].Span.Start.Offset == p.tokens[p.pos-1].Span.End.Offset
}

// atCloseTag returns true at `<` `/`.
func (p *Parser) atCloseTag() bool {
	return p.check(token.LT) && p.checkPeek(token.SLASH)
}

// addError records a diagnostic.
func (p *Parser) addError(d *diag.Diagnostic) {
	p.diags.Add(d)
}

// skipAfterError guarantees progress after a failed production that
// started at token index start: if nothing was consumed, one token is
// skipped. Otherwise parsing resumes where the production stopped, not one
// token past start, so the tokens a failed production already consumed are
// never parsed again. `for x { "y" }` reports the missing `in` once
// instead of a second error for the orphaned body.
func (p *Parser) skipAfterError(start int) {
	if p.pos == start {
		p.nextToken()
	}
}

// ---------- Spans and Expressions ----------

// expr returns the source text covered by tokens[from:to].
func (p *Parser) expr(from, to int) ast.Expr {
	start := p.tokens[from].Span.Start
	end := p.tokens[to-1].Span.End
	return ast.Expr{
		Text: p.src[start.Offset:end.Offset],
		Span: token.Span{Start: start, End: end},
	}
}

// exprUntil consumes tokens up to the first token at nesting depth zero for
// which stop returns true, or the end of the range. It reports false if no
// token was consumed.
func (p *Parser) exprUntil(stop func(token.Token) bool) (ast.Expr, bool) {
	first := p.pos
	for !p.atEnd() && !stop(p.token()) {
		if m := p.partner[p.pos]; m > p.pos && m < p.end {
			p.pos = m + 1
			continue
		}
		p.pos++
	}
	if p.pos == first {
		return ast.Expr{}, false
	}
	return p.expr(first, p.pos), true
}

// rest consumes every remaining token of the range as one expression. The
// result is empty when the range is empty.
func (p *Parser) rest() ast.Expr {
	first := p.pos
	p.pos = p.end
	if first == p.end {
		return ast.Expr{Span: token.Span{Start: p.eof.Span.Start, End: p.eof.Span.Start}}
	}
	return p.expr(first, p.end)
}

// delimited parses the group opened by the current token with fn. fn runs
// on a child parser restricted to the tokens between the delimiters and
// sharing this parser's diagnostics. On return the cursor is past the
// closing delimiter. The span covers both delimiters.
func delimited[T any](p *Parser, open token.TokenType, what string, fn func(*Parser) T) (T, token.Span, *diag.Diagnostic) {
	var zero T
	tok := p.token()
	closer, _ := token.Closer(open)

	if !p.check(open) {
		return zero, tok.Span, diag.MissingBody(tok, what)
	}
	closeIdx := p.partner[p.pos]
	if closeIdx < 0 || closeIdx >= p.end {
		// Everything after an unclosed opener belongs to it.
		p.pos = p.end
		return zero, tok.Span, diag.Unclosed(tok, closer)
	}

	child := &Parser{
		src:     p.src,
		tokens:  p.tokens,
		partner: p.partner,
		pos:     p.pos + 1,
		end:     closeIdx,
		eof:     p.tokens[closeIdx],
		diags:   p.diags,
	}
	result := fn(child)
	p.pos = closeIdx + 1

	return result, token.Span{Start: tok.Span.Start, End: p.tokens[closeIdx].Span.End}, nil
}

// matchDelimiters pairs every opening delimiter with its closer. Stray or
// mismatched closers and unclosed openers are left at -1.
func matchDelimiters(tokens []token.Token) []int {
	partner := make([]int, len(tokens))
	for i := range partner {
		partner[i] = -1
	}

	var stack []int
	for i, tok := range tokens {
		switch tok.Type {
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			stack = append(stack, i)
		case token.RPAREN, token.RBRACKET, token.RBRACE:
			n := len(stack)
			if n == 0 {
				continue
			}
			if want, _ := token.Closer(tokens[stack[n-1]].Type); want == tok.Type {
				partner[stack[n-1]] = i
				partner[i] = stack[n-1]
				stack = stack[:n-1]
			}
		}
	}
	return partner
}
