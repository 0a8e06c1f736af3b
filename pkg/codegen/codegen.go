// Package codegen generates Go source from lowered templates.
//
// Every template declaration becomes a function returning a stream:
//
//	func Page(ctx context.Context, title string) stream.Stream[string] {
//		return stream.NewCooperative(ctx, func(ctx context.Context, _out stream.Emitter[string]) error {
//			if !_out.Emit("<h1>") {
//				return nil
//			}
//			...
//			return nil
//		})
//	}
//
// Host expressions and statements are copied verbatim; the Go compiler
// type-checks them. Code blocks can reach the emitter as `_out`.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	gotoken "go/token"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/leapstack-labs/leaptmpl/pkg/ir"
	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Header is the first line of every generated file.
const Header = "// Code generated by leaptmpl. DO NOT EDIT."

// OutputPath returns the path of the Go file generated for a template file.
func OutputPath(src string) string {
	return src + ".go"
}

// Generate produces a formatted Go file from prog.
func Generate(prog *ir.Program, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := &generator{opts: opts}
	g.printf("%s\n\n", Header)
	for _, seg := range prog.Segments {
		switch seg := seg.(type) {
		case *ir.Passthrough:
			g.buf.WriteString(seg.Text)
		case *ir.Template:
			if err := g.template(seg); err != nil {
				return nil, err
			}
		}
	}
	if !bytes.HasSuffix(g.buf.Bytes(), []byte("\n")) {
		g.buf.WriteByte('\n')
	}

	return finish(prog.Name, g.buf.Bytes(), opts)
}

// finish adds the imports generated code needs and formats the file.
func finish(name string, src []byte, opts Options) ([]byte, error) {
	fset := gotoken.NewFileSet()
	file, err := parser.ParseFile(fset, OutputPath(name), src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("generated code for %s does not parse: %w", name, err)
	}

	astutil.AddImport(fset, file, "context")
	astutil.AddImport(fset, file, opts.streamImport())

	var out bytes.Buffer
	if err := format.Node(&out, fset, file); err != nil {
		return nil, fmt.Errorf("formatting generated code for %s: %w", name, err)
	}

	formatted, err := imports.Process(OutputPath(name), out.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting generated code for %s: %w", name, err)
	}
	return formatted, nil
}

type generator struct {
	buf   bytes.Buffer
	opts  Options
	depth int
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

// line writes one indented line.
func (g *generator) line(format string, args ...any) {
	g.buf.WriteString(strings.Repeat("\t", g.depth))
	g.printf(format, args...)
	g.buf.WriteByte('\n')
}

// host returns host source prefixed with a line directive when enabled,
// so compiler errors in it point into the template. Relative directive
// paths resolve against the generated file's directory, which is the
// template's directory.
func (g *generator) host(text string, span token.Span) string {
	if !g.opts.LineDirectives || !span.Start.IsValid() || span.Start.File == "" {
		return text
	}
	file := filepath.Base(span.Start.File)
	return fmt.Sprintf("/*line %s:%d:%d*/%s", file, span.Start.Line, span.Start.Column, text)
}

func (g *generator) template(t *ir.Template) error {
	item := g.opts.ItemType.GoType()

	params := "ctx context.Context"
	if p := strings.TrimSpace(t.Params.Text); p != "" {
		params += ", " + g.host(p, t.Params.Span)
	}

	g.line("func %s(%s) stream.Stream[%s] {", t.Name, params, item)
	g.depth++
	g.line("return stream.%s(ctx, func(ctx context.Context, _out stream.Emitter[%s]) error {", g.opts.constructor(), item)
	g.depth++
	if err := g.instrs(t.Body); err != nil {
		return fmt.Errorf("template %s: %w", t.Name, err)
	}
	g.line("return nil")
	g.depth--
	g.line("})")
	g.depth--
	g.line("}")
	return nil
}

func (g *generator) instrs(list []ir.Instr) error {
	for _, in := range list {
		if err := g.instr(in); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) instr(in ir.Instr) error {
	switch in := in.(type) {
	case *ir.Literal:
		g.emit(g.literal(in.Text))
	case *ir.EmitValue:
		g.emit(g.value(in))
	case *ir.RunComputation:
		for _, l := range strings.Split(g.host(in.Block.Text, in.Block.Span), "\n") {
			g.line("%s", strings.TrimRight(l, " \t"))
		}
	case *ir.If:
		return g.ifChain(in)
	case *ir.For:
		head, err := g.rangeClause(in)
		if err != nil {
			return err
		}
		g.line("for %s {", head)
		if err := g.block(in.Body); err != nil {
			return err
		}
		g.line("}")
	case *ir.While:
		g.line("for %s {", g.host(in.Cond.Text, in.Cond.Span))
		if err := g.block(in.Body); err != nil {
			return err
		}
		g.line("}")
	default:
		return fmt.Errorf("unexpected instruction %T", in)
	}
	return nil
}

func (g *generator) block(body []ir.Instr) error {
	g.depth++
	defer func() { g.depth-- }()
	return g.instrs(body)
}

// emit writes a call to the emitter that stops the producer once the
// consumer has gone away.
func (g *generator) emit(arg string) {
	g.line("if !_out.Emit(%s) {", arg)
	g.depth++
	g.line("return nil")
	g.depth--
	g.line("}")
}

func (g *generator) literal(text string) string {
	q := strconv.Quote(text)
	if g.opts.ItemType == ItemBytes {
		return "[]byte(" + q + ")"
	}
	return q
}

// value emits the host expression as is, so the compiler rejects values
// that are not of the item type. Only the escaper's result is converted:
// Escape accepts any string or byte slice type and nothing else.
func (g *generator) value(v *ir.EmitValue) string {
	expr := g.host(v.Expr.Text, v.Expr.Span)
	if g.opts.Escape != EscapeHTML {
		return expr
	}
	return g.opts.ItemType.GoType() + "(stream.Escape(" + expr + "))"
}

func (g *generator) ifChain(in *ir.If) error {
	g.line("if %s {", g.host(in.Cond.Text, in.Cond.Span))
	for {
		if err := g.block(in.Then); err != nil {
			return err
		}
		if !in.HasElse {
			break
		}
		if len(in.Else) == 1 {
			if next, ok := in.Else[0].(*ir.If); ok {
				g.line("} else if %s {", g.host(next.Cond.Text, next.Cond.Span))
				in = next
				continue
			}
		}
		g.line("} else {")
		if err := g.block(in.Else); err != nil {
			return err
		}
		break
	}
	g.line("}")
	return nil
}

// rangeClause maps `pattern in source` onto a Go range clause. A single
// name binds the element; two names bind index and element.
func (g *generator) rangeClause(f *ir.For) (string, error) {
	source := g.host(f.Source.Text, f.Source.Span)

	names := strings.Split(f.Pattern.Text, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
		if !isIdent(names[i]) {
			return "", fmt.Errorf("%s: loop pattern %q must be one or two identifiers", f.Pattern.Span.Start, f.Pattern.Text)
		}
	}

	switch {
	case len(names) == 1 && names[0] == "_":
		return "range " + source, nil
	case len(names) == 1:
		return fmt.Sprintf("_, %s := range %s", names[0], source), nil
	case len(names) == 2 && names[0] == "_" && names[1] == "_":
		return "range " + source, nil
	case len(names) == 2 && names[1] == "_":
		return fmt.Sprintf("%s := range %s", names[0], source), nil
	case len(names) == 2:
		return fmt.Sprintf("%s, %s := range %s", names[0], names[1], source), nil
	}
	return "", fmt.Errorf("%s: loop pattern %q must be one or two identifiers", f.Pattern.Span.Start, f.Pattern.Text)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r >= 0x80
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
