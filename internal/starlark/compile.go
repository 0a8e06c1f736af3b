// Package starlark renders templates whose host language is Starlark.
//
// A lowered template file is translated into one Starlark program. Each
// template becomes a function named __template_<Name> whose body calls the
// __emit and __value builtins; passthrough text becomes module-level code
// shared by all templates of the file. A line table maps every generated
// line back to the template so evaluation errors point at the template.
package starlark

import (
	"fmt"
	"strings"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leaptmpl/pkg/ir"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

const indentUnit = "    "

// FileOptions are the dialect options generated programs are run with.
var FileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// FuncName returns the Starlark function name of a template.
func FuncName(template string) string {
	return "__template_" + template
}

// Program is a template file translated to Starlark.
type Program struct {
	Name   string // Template file path
	Source string

	lines  []lineInfo
	order  []string
	params map[string]Params

	once     sync.Once
	compiled *starlark.Program
	loadErr  error
}

// Check resolves the program without running it, reporting syntax errors
// and undefined names at their template positions.
func (p *Program) Check() error {
	_, err := p.load()
	return err
}

func (p *Program) load() (*starlark.Program, error) {
	p.once.Do(func() {
		_, p.compiled, p.loadErr = starlark.SourceProgramOptions(FileOptions, p.Name, p.Source, isPredeclared)
		if p.loadErr != nil {
			p.loadErr = p.wrap(p.loadErr, "")
		}
	})
	return p.compiled, p.loadErr
}

// Params describes the parameters a template declares.
type Params struct {
	Names    []string
	Required []string
	Kwargs   bool // Declares **kwargs, so every argument is accepted
}

// Accepts reports whether an argument named name can be passed.
func (p Params) Accepts(name string) bool {
	if p.Kwargs {
		return true
	}
	for _, n := range p.Names {
		if n == name {
			return true
		}
	}
	return false
}

type lineInfo struct {
	pos    token.Position // Template position of the line's first template byte
	prefix int            // Generated bytes before that byte
}

// Templates returns the template names in declaration order.
func (p *Program) Templates() []string {
	return p.order
}

// Params returns the declared parameters of a template.
func (p *Program) Params(template string) (Params, bool) {
	params, ok := p.params[template]
	return params, ok
}

// Position maps a generated line and column to the template.
func (p *Program) Position(line, col int) token.Position {
	if line < 1 || line > len(p.lines) {
		return token.Position{File: p.Name}
	}
	l := p.lines[line-1]
	pos := l.pos
	if pos.File == "" {
		pos.File = p.Name
	}
	if off := col - 1 - l.prefix; off > 0 && pos.IsValid() {
		pos.Column += off
	}
	return pos
}

// Compile translates prog into a Starlark program.
func Compile(prog *ir.Program) (*Program, error) {
	b := &builder{params: make(map[string]Params)}
	for _, seg := range prog.Segments {
		switch seg := seg.(type) {
		case *ir.Passthrough:
			b.passthrough(seg)
		case *ir.Template:
			if err := b.template(prog.Name, seg); err != nil {
				return nil, err
			}
		}
	}
	return &Program{
		Name:   prog.Name,
		Source: b.sb.String(),
		lines:  b.lines,
		order:  b.order,
		params: b.params,
	}, nil
}

type builder struct {
	sb     strings.Builder
	lines  []lineInfo
	depth  int
	order  []string
	params map[string]Params
}

// write adds text, which may span several lines, at the current depth.
// pos is where text starts in the template; continuation lines map to the
// lines that follow it.
func (b *builder) write(head, text, tail string, pos token.Position) {
	indent := strings.Repeat(indentUnit, b.depth)
	for i, l := range strings.Split(text, "\n") {
		info := lineInfo{pos: pos, prefix: len(indent) + len(head)}
		if i == 0 {
			l = indent + head + l
		} else {
			info = lineInfo{pos: token.Position{File: pos.File, Line: pos.Line + i, Column: 1}}
		}
		b.sb.WriteString(l)
		b.lines = append(b.lines, info)
		if i == strings.Count(text, "\n") {
			b.sb.WriteString(tail)
		}
		b.sb.WriteByte('\n')
	}
}

func (b *builder) passthrough(p *ir.Passthrough) {
	text := strings.TrimSuffix(p.Text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	start := p.Span.Start
	for i, l := range strings.Split(text, "\n") {
		b.sb.WriteString(strings.TrimRight(l, "\r"))
		b.sb.WriteByte('\n')
		b.lines = append(b.lines, lineInfo{pos: token.Position{File: start.File, Line: start.Line + i, Column: 1}})
	}
}

func (b *builder) template(file string, t *ir.Template) error {
	params, err := parseParams(file, t)
	if err != nil {
		return err
	}
	b.order = append(b.order, t.Name)
	b.params[t.Name] = params

	pos := t.Params.Span.Start
	if !pos.IsValid() {
		pos = t.Span.Start
	}
	b.write("def "+FuncName(t.Name)+"(", strings.TrimSpace(t.Params.Text), "):", pos)
	b.body(t.Body, t.Span.Start)
	return nil
}

// body writes an indented block, or pass when it is empty.
func (b *builder) body(instrs []ir.Instr, pos token.Position) {
	b.depth++
	defer func() { b.depth-- }()
	if len(instrs) == 0 {
		b.write("", "pass", "", pos)
		return
	}
	for _, in := range instrs {
		b.instr(in)
	}
}

func (b *builder) instr(in ir.Instr) {
	switch in := in.(type) {
	case *ir.Literal:
		b.write("__emit(", syntax.Quote(in.Text, false), ")", in.Span.Start)
	case *ir.EmitValue:
		b.write("__value((", in.Expr.Text, "))", in.Expr.Span.Start)
	case *ir.RunComputation:
		start := in.Block.Span.Start
		for i, l := range dedent(in.Block.Text, start.Column) {
			pos := token.Position{File: start.File, Line: start.Line + i, Column: 1}
			if i == 0 {
				pos = start
			}
			b.write("", l, "", pos)
		}
	case *ir.If:
		b.ifChain(in)
	case *ir.For:
		b.write("for "+in.Pattern.Text+" in (", in.Source.Text, "):", in.Source.Span.Start)
		b.body(in.Body, in.Span.Start)
	case *ir.While:
		b.write("while (", in.Cond.Text, "):", in.Cond.Span.Start)
		b.body(in.Body, in.Span.Start)
	default:
		panic(fmt.Sprintf("starlark: unexpected instruction %T", in))
	}
}

func (b *builder) ifChain(in *ir.If) {
	b.write("if (", in.Cond.Text, "):", in.Cond.Span.Start)
	for {
		b.body(in.Then, in.Span.Start)
		if !in.HasElse {
			return
		}
		if len(in.Else) == 1 {
			if next, ok := in.Else[0].(*ir.If); ok {
				b.write("elif (", next.Cond.Text, "):", next.Cond.Span.Start)
				in = next
				continue
			}
		}
		b.write("", "else:", "", in.Span.Start)
		b.body(in.Else, in.Span.Start)
		return
	}
}

// dedent removes the indentation a code block had in the template. The
// first line starts at column; later lines lose up to as much leading
// whitespace so nested statements keep their relative indentation.
func dedent(text string, column int) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		l := strings.TrimRight(lines[i], "\r \t")
		if i > 0 {
			n := 0
			for n < column-1 && n < len(l) && (l[n] == ' ' || l[n] == '\t') {
				n++
			}
			l = l[n:]
		}
		lines[i] = l
	}
	return lines
}

// parseParams reads a template's parameter list with the Starlark parser.
func parseParams(file string, t *ir.Template) (Params, error) {
	src := "def f(" + t.Params.Text + "): pass\n"
	f, err := FileOptions.Parse(file, src, 0)
	if err != nil {
		msg := err.Error()
		if se, ok := err.(syntax.Error); ok {
			msg = se.Msg
		}
		return Params{}, &RenderError{
			Pos:      withFile(t.Params.Span.Start, file),
			Template: t.Name,
			Msg:      "invalid parameters: " + msg,
			Cause:    err,
		}
	}

	var params Params
	def := f.Stmts[0].(*syntax.DefStmt)
	for _, p := range def.Params {
		switch p := p.(type) {
		case *syntax.Ident:
			params.Names = append(params.Names, p.Name)
			params.Required = append(params.Required, p.Name)
		case *syntax.BinaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				params.Names = append(params.Names, id.Name)
			}
		case *syntax.UnaryExpr:
			if p.Op == syntax.STARSTAR {
				params.Kwargs = true
			}
		}
	}
	return params, nil
}

func withFile(pos token.Position, file string) token.Position {
	if pos.File == "" {
		pos.File = file
	}
	return pos
}
