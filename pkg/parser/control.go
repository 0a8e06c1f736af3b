package parser

import (
	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Control flow has the same grammar in every context; only the body
// differs. Each production takes the body parser for its context, and N is
// the node set that context allows.

// parseIf parses `if cond { ... } [else { ... } | else if ...]`.
func parseIf[N any](p *Parser, body func(*Parser) []N) (*ast.If[N], *diag.Diagnostic) {
	kw := p.nextToken() // if
	n := &ast.If[N]{}

	cond, d := p.condition()
	if d != nil {
		return nil, d.WithNote(kw.Span, "while parsing if condition")
	}
	n.Cond = cond

	then, span, d := delimited(p, token.LBRACE, "`{`", body)
	if d != nil {
		return nil, d.WithNote(cond.Span, "while parsing then branch")
	}
	n.Then = then
	end := span.End

	if elseTok := p.token(); p.match(token.ELSE) {
		n.HasElse = true
		if p.check(token.IF) {
			nested, d := parseIf(p, body)
			if d != nil {
				return nil, d.WithNote(elseTok.Span, "while parsing else branch")
			}
			n.Else = []N{any(nested).(N)}
			end = nested.Span().End
		} else {
			els, span, d := delimited(p, token.LBRACE, "`{` or `if`", body)
			if d != nil {
				return nil, d.WithNote(elseTok.Span, "while parsing else branch")
			}
			n.Else = els
			end = span.End
		}
	}

	n.SetSpan(token.Span{Start: kw.Span.Start, End: end})
	return n, nil
}

// parseFor parses `for pattern in source { ... }`.
func parseFor[N any](p *Parser, body func(*Parser) []N) (*ast.For[N], *diag.Diagnostic) {
	kw := p.nextToken() // for
	n := &ast.For[N]{}

	pattern, ok := p.exprUntil(func(t token.Token) bool {
		return t.Type == token.IN || t.Type == token.LBRACE
	})
	if !ok {
		return nil, diag.Unexpected(p.token(), "loop pattern")
	}
	if _, d := p.expect(token.IN); d != nil {
		return nil, d.WithNote(pattern.Span, "while parsing loop pattern")
	}
	n.Pattern = pattern

	source, d := p.condition()
	if d != nil {
		return nil, d.WithNote(pattern.Span, "while parsing loop source")
	}
	n.Source = source

	nodes, span, d := delimited(p, token.LBRACE, "`{`", body)
	if d != nil {
		return nil, d.WithNote(source.Span, "while parsing loop body")
	}
	n.Body = nodes

	n.SetSpan(token.Span{Start: kw.Span.Start, End: span.End})
	return n, nil
}

// parseWhile parses `while cond { ... }`.
func parseWhile[N any](p *Parser, body func(*Parser) []N) (*ast.While[N], *diag.Diagnostic) {
	kw := p.nextToken() // while
	n := &ast.While[N]{}

	cond, d := p.condition()
	if d != nil {
		return nil, d.WithNote(kw.Span, "while parsing while condition")
	}
	n.Cond = cond

	nodes, span, d := delimited(p, token.LBRACE, "`{`", body)
	if d != nil {
		return nil, d.WithNote(cond.Span, "while parsing loop body")
	}
	n.Body = nodes

	n.SetSpan(token.Span{Start: kw.Span.Start, End: span.End})
	return n, nil
}

// condition consumes the tokens up to the first `{` at depth zero. The
// brace itself is left for the caller.
func (p *Parser) condition() (ast.Expr, *diag.Diagnostic) {
	cond, ok := p.exprUntil(func(t token.Token) bool { return t.Type == token.LBRACE })
	if !ok {
		return ast.Expr{}, diag.Unexpected(p.token(), "expression")
	}
	if !p.check(token.LBRACE) {
		return ast.Expr{}, diag.MissingBody(p.token(), "`{`")
	}
	return cond, nil
}

// controlKeyword reports whether an `if` or `while` at the cursor starts
// control flow in an attribute list rather than naming an attribute, as
// in `<x if="a">` or `<x while-busy>`.
func (p *Parser) controlKeyword() bool {
	if p.pos+1 >= p.end {
		return false
	}
	next := p.tokens[p.pos+1]
	switch next.Type {
	case token.ASSIGN, token.GT, token.SLASH:
		return false
	case token.MINUS, token.COLON:
		return next.Span.Start.Offset != p.token().Span.End.Offset
	}
	return true
}

// looksLikeLoop reports whether a `for` at the cursor starts a loop: an
// `in` must follow before the attribute list could continue. This keeps
// `<label for="x">` an attribute.
func (p *Parser) looksLikeLoop() bool {
	for i := p.pos + 1; i < p.end; i++ {
		switch p.tokens[i].Type {
		case token.IN:
			return true
		case token.ASSIGN, token.GT, token.LBRACE:
			return false
		case token.SLASH:
			if i+1 < p.end && p.tokens[i+1].Type == token.GT {
				return false
			}
		}
		if m := p.partner[i]; m > i && m < p.end {
			i = m
		}
	}
	return false
}
