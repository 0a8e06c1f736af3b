// Package ir defines the instruction form that templates are lowered to
// before code generation.
//
// A template body is a flat, ordered list of instructions. Markup is
// nothing but Literal text at this level; only computed values, code and
// control flow remain structured.
package ir

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptmpl/pkg/ast"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Instr is a single IR instruction.
type Instr interface {
	SourceSpan() token.Span
	instr()
}

// Literal emits fixed text.
type Literal struct {
	Text string
	Span token.Span
}

// EmitValue evaluates a host expression and emits the result as one item.
type EmitValue struct {
	Expr ast.Expr
}

// RunComputation runs host statements. Bindings stay visible to later
// instructions at the same level.
type RunComputation struct {
	Block ast.Expr
}

// If runs Then or Else depending on Cond.
type If struct {
	Cond    ast.Expr
	Then    []Instr
	Else    []Instr
	HasElse bool
	Span    token.Span
}

// For runs Body once per element of Source, bound to Pattern.
type For struct {
	Pattern ast.Expr
	Source  ast.Expr
	Body    []Instr
	Span    token.Span
}

// While runs Body as long as Cond holds.
type While struct {
	Cond ast.Expr
	Body []Instr
	Span token.Span
}

func (l *Literal) SourceSpan() token.Span        { return l.Span }
func (e *EmitValue) SourceSpan() token.Span      { return e.Expr.Span }
func (r *RunComputation) SourceSpan() token.Span { return r.Block.Span }
func (i *If) SourceSpan() token.Span             { return i.Span }
func (f *For) SourceSpan() token.Span            { return f.Span }
func (w *While) SourceSpan() token.Span          { return w.Span }

func (*Literal) instr()        {}
func (*EmitValue) instr()      {}
func (*RunComputation) instr() {}
func (*If) instr()             {}
func (*For) instr()            {}
func (*While) instr()          {}

// Program is a lowered template file.
type Program struct {
	Name     string // Source file path
	Segments []Segment
}

// Segment is a top-level part of a Program.
type Segment interface {
	segment()
}

// Passthrough is host source copied to the output unchanged.
type Passthrough struct {
	Text string
	Span token.Span
}

// Template is a lowered template declaration.
type Template struct {
	Name   string
	Params ast.Expr
	Body   []Instr
	Span   token.Span
}

func (*Passthrough) segment() {}
func (*Template) segment()    {}

// Templates returns the templates of p in source order.
func (p *Program) Templates() []*Template {
	var out []*Template
	for _, s := range p.Segments {
		if t, ok := s.(*Template); ok {
			out = append(out, t)
		}
	}
	return out
}

// Walk calls fn for every instruction in depth-first order. Branches and
// bodies are visited after the instruction that owns them.
func Walk(instrs []Instr, fn func(Instr)) {
	for _, in := range instrs {
		fn(in)
		switch in := in.(type) {
		case *If:
			Walk(in.Then, fn)
			Walk(in.Else, fn)
		case *For:
			Walk(in.Body, fn)
		case *While:
			Walk(in.Body, fn)
		}
	}
}

// LiteralText concatenates the text of every Literal in depth-first order.
func LiteralText(instrs []Instr) string {
	var sb strings.Builder
	Walk(instrs, func(in Instr) {
		if lit, ok := in.(*Literal); ok {
			sb.WriteString(lit.Text)
		}
	})
	return sb.String()
}

// Dump renders instrs as an indented listing, one instruction per line.
func Dump(instrs []Instr) string {
	var sb strings.Builder
	dump(&sb, instrs, 0)
	return sb.String()
}

func dump(sb *strings.Builder, instrs []Instr, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, in := range instrs {
		switch in := in.(type) {
		case *Literal:
			fmt.Fprintf(sb, "%sliteral %q\n", indent, in.Text)
		case *EmitValue:
			fmt.Fprintf(sb, "%semit (%s)\n", indent, in.Expr.Text)
		case *RunComputation:
			fmt.Fprintf(sb, "%srun {%s}\n", indent, in.Block.Text)
		case *If:
			fmt.Fprintf(sb, "%sif %s\n", indent, in.Cond.Text)
			dump(sb, in.Then, depth+1)
			if in.HasElse {
				fmt.Fprintf(sb, "%selse\n", indent)
				dump(sb, in.Else, depth+1)
			}
		case *For:
			fmt.Fprintf(sb, "%sfor %s in %s\n", indent, in.Pattern.Text, in.Source.Text)
			dump(sb, in.Body, depth+1)
		case *While:
			fmt.Fprintf(sb, "%swhile %s\n", indent, in.Cond.Text)
			dump(sb, in.Body, depth+1)
		}
	}
}
