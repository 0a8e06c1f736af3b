// Package ast declares the syntax tree of the template language.
//
// Nodes live in one of three contexts, each with its own interface:
//
//   - Node: element children (everything, including Element)
//   - ValueNode: parts of a bracketed attribute value (no Element)
//   - AttrNode: entries of an element's attribute list
//
// Control flow (If, For, While) has the same shape in every context and is
// generic over the child interface, so If[Node] holds element children and
// If[ValueNode] can never contain an Element.
package ast

import (
	"strings"

	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Node is a template node in element-children context.
type Node interface {
	Span() token.Span
	node() // marker method to restrict implementation
}

// ValueNode is a template node in attribute-value context.
type ValueNode interface {
	Span() token.Span
	valueNode()
}

// AttrNode is an entry of an element's attribute list.
type AttrNode interface {
	Span() token.Span
	attrNode()
}

// nodeBase provides common span handling for all nodes.
type nodeBase struct {
	span token.Span
}

func (n *nodeBase) Span() token.Span { return n.span }

// SetSpan sets the node's span. It is used by the parser once a node's
// extent is known.
func (n *nodeBase) SetSpan(s token.Span) { n.span = s }

// Expr is an opaque span of host-language source: an expression, a
// condition, a binding pattern or a block of statements. The compiler never
// looks inside it.
type Expr struct {
	Text string
	Span token.Span
}

// Text is a string literal, emitted verbatim.
type Text struct {
	nodeBase
	Text string // Decoded literal text
}

// NewText creates a Text node.
func NewText(text string, span token.Span) *Text {
	return &Text{nodeBase: nodeBase{span: span}, Text: text}
}

// Value is a computed value, written `( expr )` or `[ ... ]`. It produces
// exactly one output item.
type Value struct {
	nodeBase
	Expr Expr
}

// NewValue creates a Value node.
func NewValue(expr Expr, span token.Span) *Value {
	return &Value{nodeBase: nodeBase{span: span}, Expr: expr}
}

// Code is a computation, written `{ ... }`. Its statements run for their
// side effects; bindings they introduce are visible to later siblings.
type Code struct {
	nodeBase
	Block Expr // Statements between the braces
}

// NewCode creates a Code node.
func NewCode(block Expr, span token.Span) *Code {
	return &Code{nodeBase: nodeBase{span: span}, Block: block}
}

// If is a conditional: `if cond { ... } else { ... }`. An `else if` chain
// is represented as an Else holding a single nested *If[N].
type If[N any] struct {
	nodeBase
	Cond    Expr
	Then    []N
	Else    []N
	HasElse bool
}

// For is a loop: `for pattern in source { ... }`.
type For[N any] struct {
	nodeBase
	Pattern Expr
	Source  Expr
	Body    []N
}

// While is a loop: `while cond { ... }`.
type While[N any] struct {
	nodeBase
	Cond Expr
	Body []N
}

// Attribute is a key with an optional value. A value written as a plain
// string holds one *Text; `=[ ... ]` holds its parts; `=( expr )` holds a
// single *Value.
type Attribute struct {
	nodeBase
	Key      string
	KeySpan  token.Span
	Value    []ValueNode
	HasValue bool
}

// Element is a markup element.
type Element struct {
	nodeBase
	Name        string // Tag name as written, without a leading bang
	NameSpan    token.Span
	Bang        bool // <!doctype ...>
	Attrs       []AttrNode
	Children    []Node
	SelfClosing bool // <tag ... />
	CloseName   string
	CloseSpan   token.Span
	HasClose    bool
}

func (*Text) node()      {}
func (*Value) node()     {}
func (*Code) node()      {}
func (*If[N]) node()     {}
func (*For[N]) node()    {}
func (*While[N]) node()  {}
func (*Element) node()   {}
func (*Text) valueNode() {}

func (*Value) valueNode()    {}
func (*Code) valueNode()     {}
func (*If[N]) valueNode()    {}
func (*For[N]) valueNode()   {}
func (*While[N]) valueNode() {}

func (*Code) attrNode()      {}
func (*If[N]) attrNode()     {}
func (*For[N]) attrNode()    {}
func (*While[N]) attrNode()  {}
func (*Attribute) attrNode() {}

// voidElements can never have children or a closing tag.
var voidElements = map[string]bool{
	"area":    true,
	"base":    true,
	"br":      true,
	"col":     true,
	"embed":   true,
	"hr":      true,
	"img":     true,
	"input":   true,
	"link":    true,
	"meta":    true,
	"param":   true,
	"source":  true,
	"track":   true,
	"wbr":     true,
	"doctype": true,
}

// IsVoidTag reports whether name is a void element. Tag names are
// case-insensitive, so `<!DOCTYPE html>` is void too.
func IsVoidTag(name string) bool {
	return voidElements[strings.ToLower(name)]
}

// Tag returns the tag as it appears after `<`, including the bang.
func (e *Element) Tag() string {
	if e.Bang {
		return "!" + e.Name
	}
	return e.Name
}

// IsVoid reports whether e is a void element.
func (e *Element) IsVoid() bool {
	return IsVoidTag(e.Name)
}

// ClosingTag returns the name used for the closing tag. When the source
// closes an element with a different name, the closing name wins.
func (e *Element) ClosingTag() string {
	if e.HasClose && e.CloseName != "" {
		return e.CloseName
	}
	return e.Name
}

// Decl is a top-level declaration of a template file.
type Decl interface {
	Span() token.Span
	decl()
}

// Passthrough is host source outside any template declaration: a Go
// package clause and imports, or Starlark helper definitions.
type Passthrough struct {
	nodeBase
	Text string
}

// Template is a declaration `template Name(params) { ... }`.
type Template struct {
	nodeBase
	Name     string
	NameSpan token.Span
	Params   Expr // Raw parameter list, without parentheses
	Body     []Node
}

func (*Passthrough) decl() {}
func (*Template) decl()    {}

// File represents a complete parsed template file.
type File struct {
	Name   string // Source file path
	Source string
	Decls  []Decl
}

// Templates returns the template declarations of f in source order.
func (f *File) Templates() []*Template {
	var out []*Template
	for _, d := range f.Decls {
		if t, ok := d.(*Template); ok {
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns the template named name.
func (f *File) Lookup(name string) (*Template, bool) {
	for _, t := range f.Templates() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
