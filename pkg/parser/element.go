package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/diag"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// nodeStarts lists what may begin a node, for diagnostics.
var nodeStarts = []string{"string literal", "`(`", "`[`", "`{`", "`<`", "`if`", "`for`", "`while`"}

// ---------- Node Lists ----------

// parseNodeList parses element children until the range is exhausted. A
// closing tag that no element here is waiting for is reported and skipped.
func (p *Parser) parseNodeList() []ast.Node {
	nodes := p.parseChildren()
	for !p.atEnd() {
		p.strayCloseTag()
		nodes = append(nodes, p.parseChildren()...)
	}
	return nodes
}

// parseChildren parses nodes until the range is exhausted or `<` `/`.
func (p *Parser) parseChildren() []ast.Node {
	listStart := p.token().Span
	var nodes []ast.Node
	for !p.atEnd() && !p.atCloseTag() {
		start, childStart := p.pos, p.token().Span
		n, d := p.parseNode()
		if d != nil {
			p.addError(d.WithNote(childStart, "while parsing child").
				WithNote(listStart, "while parsing children"))
			p.skipAfterError(start)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// strayCloseTag reports and consumes `</name>` at the cursor.
func (p *Parser) strayCloseTag() {
	lt := p.nextToken()
	p.nextToken() // /
	name := ""
	if token.IsWord(p.token().Type) {
		name, _ = p.parseName()
	}
	p.match(token.GT)

	p.addError(&diag.Diagnostic{
		Kind:    diag.MismatchedTag,
		Span:    token.Span{Start: lt.Span.Start, End: p.prev().Span.End},
		Message: fmt.Sprintf("unexpected closing tag `</%s>` with no open element", name),
	})
}

// parseNode parses one node in element-children context.
func (p *Parser) parseNode() (ast.Node, *diag.Diagnostic) {
	tok := p.token()
	switch tok.Type {
	case token.STRING:
		p.nextToken()
		return ast.NewText(tok.Value, tok.Span), nil
	case token.LPAREN, token.LBRACKET:
		return p.parseValue()
	case token.LBRACE:
		return p.parseCode()
	case token.LT:
		el, d := p.parseElement()
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing element")
		}
		return el, nil
	case token.IF:
		n, d := parseIf(p, (*Parser).parseNodeList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing if")
		}
		return n, nil
	case token.FOR:
		n, d := parseFor(p, (*Parser).parseNodeList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing for")
		}
		return n, nil
	case token.WHILE:
		n, d := parseWhile(p, (*Parser).parseNodeList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing while")
		}
		return n, nil
	}
	return nil, diag.Unexpected(tok, nodeStarts...)
}

// ---------- Attribute Values ----------

// parseValueList parses the parts of a bracketed attribute value until
// the range is exhausted.
func (p *Parser) parseValueList() []ast.ValueNode {
	listStart := p.token().Span
	var parts []ast.ValueNode
	for !p.atEnd() {
		start, partStart := p.pos, p.token().Span
		n, d := p.parseValueNode()
		if d != nil {
			p.addError(d.WithNote(partStart, "while parsing attribute value part").
				WithNote(listStart, "while parsing attribute value"))
			p.skipAfterError(start)
			continue
		}
		parts = append(parts, n)
	}
	return parts
}

// parseValueNode parses one node in attribute-value context. Elements are
// not allowed here.
func (p *Parser) parseValueNode() (ast.ValueNode, *diag.Diagnostic) {
	tok := p.token()
	switch tok.Type {
	case token.STRING:
		p.nextToken()
		return ast.NewText(tok.Value, tok.Span), nil
	case token.LPAREN, token.LBRACKET:
		return p.parseValue()
	case token.LBRACE:
		return p.parseCode()
	case token.IF:
		n, d := parseIf(p, (*Parser).parseValueList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing if")
		}
		return n, nil
	case token.FOR:
		n, d := parseFor(p, (*Parser).parseValueList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing for")
		}
		return n, nil
	case token.WHILE:
		n, d := parseWhile(p, (*Parser).parseValueList)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing while")
		}
		return n, nil
	}
	d := diag.Unexpected(tok, nodeStarts[:4]...)
	if tok.Type == token.LT {
		d.WithHelp("elements cannot appear inside attribute values")
	}
	return nil, d
}

// ---------- Values and Code ----------

// parseValue parses `( expr )` or `[ ... ]`. A parenthesized value is the
// expression inside; a bracketed one is kept whole, brackets included.
func (p *Parser) parseValue() (*ast.Value, *diag.Diagnostic) {
	open := p.token()
	expr, span, d := delimited(p, open.Type, "expression", (*Parser).rest)
	if d != nil {
		return nil, d.WithNote(open.Span, "while parsing value")
	}
	if open.Type == token.LBRACKET {
		expr = ast.Expr{Text: p.src[span.Start.Offset:span.End.Offset], Span: span}
	}
	if strings.TrimSpace(expr.Text) == "" {
		return nil, diag.Unexpected(p.prev(), "expression").WithNote(open.Span, "while parsing value")
	}
	return ast.NewValue(expr, span), nil
}

// parseCode parses `{ statements }`. An empty block is allowed.
func (p *Parser) parseCode() (*ast.Code, *diag.Diagnostic) {
	open := p.token()
	block, span, d := delimited(p, token.LBRACE, "`{`", (*Parser).rest)
	if d != nil {
		return nil, d.WithNote(open.Span, "while parsing code block")
	}
	return ast.NewCode(block, span), nil
}

// ---------- Elements ----------

// parseName parses a markup name: a word optionally followed by adjacent
// `-`, `:` or `.` separated segments, such as `aria-current` or
// `hx-on:click`. Keywords are valid names.
func (p *Parser) parseName() (string, token.Span) {
	first := p.nextToken()
	var sb strings.Builder
	sb.WriteString(first.Value)
	span := first.Span

	for p.adjacent() && isNameSeparator(p.token()) {
		if p.pos+1 >= p.end {
			break
		}
		seg := p.tokens[p.pos+1]
		if seg.Span.Start.Offset != p.token().Span.End.Offset ||
			(!token.IsWord(seg.Type) && seg.Type != token.NUMBER) {
			break
		}
		sep := p.nextToken()
		p.nextToken()
		sb.WriteString(sep.Value)
		sb.WriteString(seg.Value)
		span.End = seg.Span.End
	}
	return sb.String(), span
}

func isNameSeparator(t token.Token) bool {
	return t.Type == token.MINUS || t.Type == token.COLON || (t.Type == token.PUNCT && t.Value == ".")
}

// parseElement parses an element from its `<` through its closing tag.
// Problems after the open tag name are recorded directly and a best-effort
// element is returned.
func (p *Parser) parseElement() (*ast.Element, *diag.Diagnostic) {
	lt := p.nextToken() // <
	el := &ast.Element{}

	if p.check(token.BANG) && p.adjacent() {
		p.nextToken()
		el.Bang = true
	}
	if !token.IsWord(p.token().Type) {
		return nil, diag.Unexpected(p.token(), "element name")
	}
	el.Name, el.NameSpan = p.parseName()
	opened := fmt.Sprintf("while parsing element `<%s>`", el.Tag())

	el.Attrs = p.parseAttrList(p.atTagEnd)

	switch {
	case p.atEnd():
		p.addError(diag.Unexpected(p.token(), "`>`", "`/>`").WithNote(el.NameSpan, opened))
		el.SetSpan(token.Span{Start: lt.Span.Start, End: p.prev().Span.End})
		return el, nil
	case p.check(token.SLASH):
		p.nextToken()
		p.nextToken() // >
		el.SelfClosing = true
	default:
		p.nextToken() // >
	}

	if el.SelfClosing || el.IsVoid() {
		el.SetSpan(token.Span{Start: lt.Span.Start, End: p.prev().Span.End})
		return el, nil
	}

	el.Children = p.parseChildren()
	p.parseCloseTag(el)
	el.SetSpan(token.Span{Start: lt.Span.Start, End: p.prev().Span.End})
	return el, nil
}

// parseCloseTag parses `</name>` for el. A different name is reported
// but still taken as the closing name.
func (p *Parser) parseCloseTag(el *ast.Element) {
	opened := fmt.Sprintf("`<%s>` opened here", el.Tag())

	if !p.atCloseTag() {
		p.addError(diag.Unexpected(p.token(), fmt.Sprintf("`</%s>`", el.Name)).
			WithNote(el.NameSpan, opened))
		return
	}
	p.nextToken() // <
	p.nextToken() // /

	if !token.IsWord(p.token().Type) {
		p.addError(diag.Unexpected(p.token(), "closing tag name").WithNote(el.NameSpan, opened))
		p.match(token.GT)
		return
	}
	name, span := p.parseName()
	el.CloseName, el.CloseSpan, el.HasClose = name, span, true

	if name != el.Name {
		p.addError(diag.Mismatched(el.Name, name, el.NameSpan, span))
	}
	if !p.match(token.GT) {
		p.addError(diag.Unexpected(p.token(), "`>`").
			WithNote(span, fmt.Sprintf("while parsing closing tag `</%s>`", name)))
	}
}

// atTagEnd returns true at `>` or `/>`.
func (p *Parser) atTagEnd() bool {
	return p.check(token.GT) || (p.check(token.SLASH) && p.checkPeek(token.GT))
}

// ---------- Attributes ----------

// parseAttrList parses attribute-list nodes until stop or the end of the
// range.
func (p *Parser) parseAttrList(stop func() bool) []ast.AttrNode {
	var attrs []ast.AttrNode
	for !p.atEnd() && !stop() {
		start, attrStart := p.pos, p.token().Span
		a, d := p.parseAttrNode()
		if d != nil {
			p.addError(d.WithNote(attrStart, "while parsing attribute"))
			p.skipAfterError(start)
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs
}

// parseAttrBody parses a control-flow body inside an attribute list.
func (p *Parser) parseAttrBody() []ast.AttrNode {
	return p.parseAttrList(func() bool { return false })
}

// parseAttrNode parses one attribute-list node.
func (p *Parser) parseAttrNode() (ast.AttrNode, *diag.Diagnostic) {
	tok := p.token()
	switch {
	case tok.Type == token.IF && p.controlKeyword():
		n, d := parseIf(p, (*Parser).parseAttrBody)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing if")
		}
		return n, nil
	case tok.Type == token.WHILE && p.controlKeyword():
		n, d := parseWhile(p, (*Parser).parseAttrBody)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing while")
		}
		return n, nil
	case tok.Type == token.FOR && p.looksLikeLoop():
		n, d := parseFor(p, (*Parser).parseAttrBody)
		if d != nil {
			return nil, d.WithNote(tok.Span, "while parsing for")
		}
		return n, nil
	case tok.Type == token.LBRACE:
		return p.parseCode()
	case token.IsWord(tok.Type):
		return p.parseAttribute()
	}
	return nil, diag.Unexpected(tok, "attribute name", "`{`", "`>`")
}

// parseAttribute parses `key`, `key="lit"`, `key=[ ... ]` or
// `key=( expr )`.
func (p *Parser) parseAttribute() (*ast.Attribute, *diag.Diagnostic) {
	attr := &ast.Attribute{}
	attr.Key, attr.KeySpan = p.parseName()

	if !p.match(token.ASSIGN) {
		attr.SetSpan(attr.KeySpan)
		return attr, nil
	}
	attr.HasValue = true

	tok := p.token()
	switch tok.Type {
	case token.STRING:
		p.nextToken()
		attr.Value = []ast.ValueNode{ast.NewText(tok.Value, tok.Span)}
	case token.LBRACKET:
		parts, _, d := delimited(p, token.LBRACKET, "`[`", (*Parser).parseValueList)
		if d != nil {
			return nil, d.WithNote(attr.KeySpan, "while parsing attribute value")
		}
		attr.Value = parts
	case token.LPAREN:
		v, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		attr.Value = []ast.ValueNode{v}
	default:
		return nil, diag.Unexpected(tok, "string literal", "`[`", "`(`").
			WithNote(attr.KeySpan, fmt.Sprintf("while parsing value of `%s`", attr.Key))
	}

	attr.SetSpan(token.Span{Start: attr.KeySpan.Start, End: p.prev().Span.End})
	return attr, nil
}
