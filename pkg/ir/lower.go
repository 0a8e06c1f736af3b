package ir

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// LowerFile lowers every template of f and keeps passthrough segments in
// place. The result is not simplified.
func LowerFile(f *ast.File) *Program {
	prog := &Program{Name: f.Name}
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.Passthrough:
			prog.Segments = append(prog.Segments, &Passthrough{Text: d.Text, Span: d.Span()})
		case *ast.Template:
			prog.Segments = append(prog.Segments, LowerTemplate(d))
		}
	}
	return prog
}

// LowerTemplate lowers one template declaration.
func LowerTemplate(t *ast.Template) *Template {
	return &Template{
		Name:   t.Name,
		Params: t.Params,
		Body:   Lower(t.Body),
		Span:   t.Span(),
	}
}

// Lower translates element children into instructions, preserving order.
func Lower(nodes []ast.Node) []Instr {
	return lowerList(nil, nodes)
}

// lowerList appends the lowering of nodes to out. It serves all three node
// contexts.
func lowerList[N any](out []Instr, nodes []N) []Instr {
	for _, n := range nodes {
		out = lowerNode(out, n)
	}
	return out
}

func lowerNode(out []Instr, n any) []Instr {
	switch n := n.(type) {
	case *ast.Text:
		return append(out, &Literal{Text: n.Text, Span: n.Span()})
	case *ast.Value:
		return append(out, &EmitValue{Expr: n.Expr})
	case *ast.Code:
		if strings.TrimSpace(n.Block.Text) == "" {
			return out
		}
		return append(out, &RunComputation{Block: n.Block})
	case *ast.Element:
		return lowerElement(out, n)
	case *ast.Attribute:
		return lowerAttribute(out, n)

	case *ast.If[ast.Node]:
		return append(out, lowerIf(n))
	case *ast.If[ast.ValueNode]:
		return append(out, lowerIf(n))
	case *ast.If[ast.AttrNode]:
		return append(out, lowerIf(n))

	case *ast.For[ast.Node]:
		return append(out, lowerFor(n))
	case *ast.For[ast.ValueNode]:
		return append(out, lowerFor(n))
	case *ast.For[ast.AttrNode]:
		return append(out, lowerFor(n))

	case *ast.While[ast.Node]:
		return append(out, lowerWhile(n))
	case *ast.While[ast.ValueNode]:
		return append(out, lowerWhile(n))
	case *ast.While[ast.AttrNode]:
		return append(out, lowerWhile(n))
	}
	panic(fmt.Sprintf("ir: unexpected node %T", n))
}

func lowerIf[N any](n *ast.If[N]) *If {
	return &If{
		Cond:    n.Cond,
		Then:    lowerList(nil, n.Then),
		Else:    lowerList(nil, n.Else),
		HasElse: n.HasElse,
		Span:    n.Span(),
	}
}

func lowerFor[N any](n *ast.For[N]) *For {
	return &For{
		Pattern: n.Pattern,
		Source:  n.Source,
		Body:    lowerList(nil, n.Body),
		Span:    n.Span(),
	}
}

func lowerWhile[N any](n *ast.While[N]) *While {
	return &While{
		Cond: n.Cond,
		Body: lowerList(nil, n.Body),
		Span: n.Span(),
	}
}

// lowerElement lowers an element to its open tag, attributes, children and
// closing tag. A self-closed element that is not void gets an explicit
// closing tag, since HTML ignores `/>` on normal elements.
func lowerElement(out []Instr, el *ast.Element) []Instr {
	open := token.Span{Start: el.Span().Start, End: el.NameSpan.End}
	out = append(out, &Literal{Text: "<" + el.Tag(), Span: open})
	out = lowerList(out, el.Attrs)
	out = append(out, &Literal{Text: ">", Span: el.NameSpan})

	if el.IsVoid() {
		return out
	}
	out = lowerList(out, el.Children)

	closeSpan := el.NameSpan
	if el.HasClose {
		closeSpan = el.CloseSpan
	}
	return append(out, &Literal{Text: "</" + el.ClosingTag() + ">", Span: closeSpan})
}

// lowerAttribute lowers ` key` or ` key="..."`.
func lowerAttribute(out []Instr, a *ast.Attribute) []Instr {
	out = append(out, &Literal{Text: " " + a.Key, Span: a.KeySpan})
	if !a.HasValue {
		return out
	}
	out = append(out, &Literal{Text: `="`, Span: a.Span()})
	out = lowerList(out, a.Value)
	return append(out, &Literal{Text: `"`, Span: a.Span()})
}
